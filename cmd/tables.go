package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/takutakahashi/trackerctl/pkg/output"
	"github.com/takutakahashi/trackerctl/pkg/tracker"
)

const maxCellWidth = 60

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > maxCellWidth {
		return string(r[:maxCellWidth-3]) + "..."
	}
	return s
}

func username(u *tracker.UserRef) string {
	if u == nil {
		return "-"
	}
	return u.Username
}

func joinIDs(ids []int) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

func projectTable(projects []tracker.Project) *output.Table {
	table := &output.Table{Headers: []string{"ID", "NAME", "OWNER", "MEMBERS", "PROGRESS", "START", "END"}}
	for _, p := range projects {
		table.Append(
			strconv.Itoa(p.ID),
			truncate(p.Name),
			username(p.Owner),
			strconv.Itoa(p.MemberCount),
			fmt.Sprintf("%d%%", p.Progress),
			orDash(p.StartDate),
			orDash(p.EndDate),
		)
	}
	return table
}

func projectDetail(p *tracker.Project) *output.Table {
	members := make([]string, 0, len(p.MembersDetail))
	for _, m := range p.MembersDetail {
		members = append(members, m.Username)
	}

	table := &output.Table{Headers: []string{"FIELD", "VALUE"}}
	table.Append("ID", strconv.Itoa(p.ID))
	table.Append("Name", p.Name)
	table.Append("Description", truncate(p.Description))
	table.Append("Owner", username(p.Owner))
	table.Append("Members", orDash(strings.Join(members, ", ")))
	table.Append("Start", orDash(p.StartDate))
	table.Append("End", orDash(p.EndDate))
	table.Append("Funds", orDash(p.FundsAllocated))
	table.Append("Progress", fmt.Sprintf("%d%%", p.Progress))
	table.Append("Issues", fmt.Sprintf("%d total, %d open, %d in progress, %d closed",
		p.Stats.Total, p.Stats.Open, p.Stats.InProgress, p.Stats.Closed))
	table.Append("Created", formatTime(p.CreatedAt))
	return table
}

func issueTable(issues []tracker.Issue) *output.Table {
	table := &output.Table{Headers: []string{"ID", "TITLE", "PROJECT", "STATUS", "PRIORITY", "ASSIGNEES", "CREATED"}}
	for _, i := range issues {
		table.Append(
			strconv.Itoa(i.ID),
			truncate(i.Title),
			strconv.Itoa(i.Project),
			i.Status,
			i.Priority,
			joinIDs(i.Assignees),
			formatTime(i.CreatedAt),
		)
	}
	return table
}

func issueDetail(i *tracker.Issue) *output.Table {
	table := &output.Table{Headers: []string{"FIELD", "VALUE"}}
	table.Append("ID", strconv.Itoa(i.ID))
	table.Append("Title", i.Title)
	table.Append("Description", truncate(i.Description))
	table.Append("Project", strconv.Itoa(i.Project))
	table.Append("Reporter", username(i.Reporter))
	table.Append("Assignees", joinIDs(i.Assignees))
	table.Append("Status", i.Status)
	table.Append("Priority", i.Priority)
	table.Append("Comments", strconv.Itoa(len(i.Comments)))
	table.Append("Created", formatTime(i.CreatedAt))
	table.Append("Updated", formatTime(i.UpdatedAt))
	return table
}

func commentTable(comments []tracker.Comment) *output.Table {
	table := &output.Table{Headers: []string{"ID", "AUTHOR", "CREATED", "CONTENT"}}
	for _, c := range comments {
		table.Append(strconv.Itoa(c.ID), username(c.Author), formatTime(c.CreatedAt), truncate(c.Content))
	}
	return table
}

func userTable(users []tracker.UserRef) *output.Table {
	table := &output.Table{Headers: []string{"ID", "USERNAME", "NAME", "ROLE"}}
	for _, u := range users {
		name := strings.TrimSpace(u.FirstName + " " + u.LastName)
		table.Append(strconv.Itoa(u.ID), u.Username, orDash(name), orDash(u.Role))
	}
	return table
}

func roomTable(rooms []tracker.ChatRoom) *output.Table {
	table := &output.Table{Headers: []string{"ID", "NAME", "TYPE", "UNREAD", "LAST MESSAGE"}}
	for _, r := range rooms {
		last := "-"
		if r.LastMessage != nil {
			last = truncate(fmt.Sprintf("%s: %s", r.LastMessage.Sender, r.LastMessage.Content))
		}
		table.Append(strconv.Itoa(r.ID), truncate(r.Name), r.RoomType, strconv.Itoa(r.UnreadCount), last)
	}
	return table
}

func roomDetail(r *tracker.ChatRoom) *output.Table {
	members := make([]string, 0, len(r.Members))
	for _, m := range r.Members {
		members = append(members, m.Username)
	}

	table := &output.Table{Headers: []string{"FIELD", "VALUE"}}
	table.Append("ID", strconv.Itoa(r.ID))
	table.Append("Name", r.Name)
	table.Append("Type", r.RoomType)
	if r.Project != nil {
		table.Append("Project", strconv.Itoa(*r.Project))
	}
	table.Append("Members", orDash(strings.Join(members, ", ")))
	table.Append("Messages", strconv.Itoa(len(r.Messages)))
	table.Append("Unread", strconv.Itoa(r.UnreadCount))
	return table
}

func messageTable(messages []tracker.Message) *output.Table {
	table := &output.Table{Headers: []string{"ID", "SENDER", "SENT", "READ", "CONTENT"}}
	for _, m := range messages {
		table.Append(strconv.Itoa(m.ID), username(m.Sender), formatTime(m.CreatedAt), strconv.FormatBool(m.IsRead), truncate(m.Content))
	}
	return table
}

func notificationTable(notifications []tracker.Notification) *output.Table {
	table := &output.Table{Headers: []string{"ID", "TYPE", "READ", "CREATED", "MESSAGE"}}
	for _, n := range notifications {
		table.Append(strconv.Itoa(n.ID), n.Type, strconv.FormatBool(n.IsRead), formatTime(n.CreatedAt), truncate(n.Message))
	}
	return table
}
