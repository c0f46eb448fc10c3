package fakebackend

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/takutakahashi/trackerctl/pkg/tracker"
)

func (b *Backend) routes() {
	api := b.echo.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/token/", b.obtainToken)
	auth.POST("/token/refresh/", b.refreshToken)
	auth.POST("/register/", b.register)

	public := api.Group("", b.authenticate(true))
	public.GET("/projects/", b.listProjects)
	public.GET("/projects/:id/", b.getProject)

	private := api.Group("", b.authenticate(false))
	private.POST("/projects/", b.createProject)
	private.PUT("/projects/:id/", b.updateProject)
	private.DELETE("/projects/:id/", b.deleteProject)

	private.GET("/issues/", b.listIssues)
	private.POST("/issues/", b.createIssue)
	private.GET("/issues/:id/", b.getIssue)
	private.PUT("/issues/:id/", b.updateIssue)
	private.DELETE("/issues/:id/", b.deleteIssue)

	private.GET("/comments/", b.listComments)
	private.POST("/comments/", b.createComment)
	private.DELETE("/comments/:id/", b.deleteComment)

	private.GET("/users/", b.listUsers)
	private.GET("/users/me/", b.me)
	private.GET("/users/:id/", b.getUser)

	private.GET("/chat-rooms/", b.listRooms)
	private.POST("/chat-rooms/", b.createRoom)
	private.GET("/chat-rooms/:id/", b.getRoom)
	private.DELETE("/chat-rooms/:id/", b.deleteRoom)
	private.POST("/chat-rooms/:id/join/", b.joinRoom)
	private.POST("/chat-rooms/:id/leave/", b.leaveRoom)

	private.POST("/messages/", b.createMessage)
	private.POST("/messages/:id/mark_read/", b.markMessageRead)

	private.GET("/notifications/", b.listNotifications)
	private.POST("/notifications/mark_all_read/", b.markAllNotificationsRead)
	private.POST("/notifications/:id/mark_read/", b.markNotification(true))
	private.POST("/notifications/:id/mark_unread/", b.markNotification(false))
	private.DELETE("/notifications/:id/", b.deleteNotification)
}

func paramID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusNotFound, "Not found.")
	}
	return id, nil
}

func notFound() error {
	return echo.NewHTTPError(http.StatusNotFound, "Not found.")
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func paged[T any](b *Backend, c echo.Context, items []T) error {
	return b.list(c, items, len(items), func(from, to int) interface{} {
		return items[from:to]
	})
}

// --- projects ---

func (b *Backend) projectView(p *tracker.Project) tracker.Project {
	view := *p
	view.Members = append([]int{}, p.Members...)
	view.MembersDetail = []tracker.UserRef{}
	for _, id := range p.Members {
		if ref := b.userRef(id); ref != nil {
			view.MembersDetail = append(view.MembersDetail, tracker.UserRef{ID: ref.ID, Username: ref.Username})
		}
	}
	view.MemberCount = len(p.Members)
	view.Issues = []tracker.IssueSummary{}
	view.Stats = tracker.ProjectStats{}
	for _, id := range sortedKeys(b.issues) {
		issue := b.issues[id]
		if issue.Project != p.ID {
			continue
		}
		view.Issues = append(view.Issues, tracker.IssueSummary{ID: issue.ID, Title: issue.Title, Status: issue.Status, Priority: issue.Priority})
		view.Stats.Total++
		switch issue.Status {
		case tracker.StatusOpen:
			view.Stats.Open++
		case tracker.StatusInProgress:
			view.Stats.InProgress++
		case tracker.StatusClosed:
			view.Stats.Closed++
		}
	}
	view.Progress = 0
	if view.Stats.Total > 0 {
		view.Progress = view.Stats.Closed * 100 / view.Stats.Total
	}
	return view
}

func (b *Backend) listProjects(c echo.Context) error {
	b.mu.Lock()
	projects := []tracker.Project{}
	for _, id := range sortedKeys(b.projects) {
		projects = append(projects, b.projectView(b.projects[id]))
	}
	b.mu.Unlock()
	return paged(b, c, projects)
}

func (b *Backend) getProject(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.projects[id]
	if !ok {
		return notFound()
	}
	return c.JSON(http.StatusOK, b.projectView(p))
}

func (b *Backend) bindProject(c echo.Context) (*tracker.ProjectInput, error) {
	var input tracker.ProjectInput
	if err := c.Bind(&input); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, fieldErrors{"name": []string{"This field is required."}}
	}
	for _, member := range input.Members {
		if _, ok := b.accounts[member]; !ok {
			return nil, fieldErrors{"members": []string{fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", member)}}
		}
	}
	return &input, nil
}

func applyProject(p *tracker.Project, input *tracker.ProjectInput) {
	p.Name = input.Name
	p.Description = input.Description
	p.Members = append([]int{}, input.Members...)
	p.StartDate = deref(input.StartDate)
	p.EndDate = deref(input.EndDate)
	p.FundsAllocated = deref(input.FundsAllocated)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (b *Backend) createProject(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	input, err := b.bindProject(c)
	if err != nil {
		return err
	}
	actor := currentUserID(c)
	p := &tracker.Project{ID: b.id(), Owner: b.userRef(actor), CreatedAt: time.Now().UTC()}
	if p.Owner != nil {
		p.Owner = &tracker.UserRef{ID: p.Owner.ID, Username: p.Owner.Username}
	}
	applyProject(p, input)
	b.projects[p.ID] = p

	// every project gets a discussion room
	roomID := b.id()
	r := &room{members: map[int]bool{actor: true}}
	projectID := p.ID
	now := time.Now().UTC()
	r.ChatRoom = tracker.ChatRoom{ID: roomID, Name: p.Name + " - Discussion", RoomType: tracker.RoomProject, Project: &projectID, CreatedAt: &now, UpdatedAt: now}
	for _, member := range p.Members {
		r.members[member] = true
		if member != actor {
			b.notify(member, actor, "project_joined", fmt.Sprintf("You have been added to project '%s'", p.Name))
		}
	}
	b.rooms[roomID] = r

	return c.JSON(http.StatusCreated, b.projectView(p))
}

func (b *Backend) updateProject(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.projects[id]
	if !ok {
		return notFound()
	}
	input, err := b.bindProject(c)
	if err != nil {
		return err
	}
	applyProject(p, input)

	actor := currentUserID(c)
	recipients := map[int]bool{}
	for _, member := range p.Members {
		recipients[member] = true
	}
	if p.Owner != nil {
		recipients[p.Owner.ID] = true
	}
	for _, member := range sortedKeys(recipients) {
		if member != actor {
			b.notify(member, actor, "general", fmt.Sprintf("Project '%s' has been updated", p.Name))
		}
	}
	return c.JSON(http.StatusOK, b.projectView(p))
}

func (b *Backend) deleteProject(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.projects[id]; !ok {
		return notFound()
	}
	delete(b.projects, id)
	for issueID, issue := range b.issues {
		if issue.Project == id {
			delete(b.issues, issueID)
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// --- issues ---

var priorityRank = map[string]int{tracker.PriorityLow: 0, tracker.PriorityMedium: 1, tracker.PriorityHigh: 2}

func (b *Backend) issueView(issue *tracker.Issue) tracker.Issue {
	view := *issue
	view.Assignees = append([]int{}, issue.Assignees...)
	view.Comments = []tracker.Comment{}
	for _, id := range sortedKeys(b.comments) {
		if b.comments[id].Issue == issue.ID {
			view.Comments = append(view.Comments, *b.comments[id])
		}
	}
	return view
}

func (b *Backend) listIssues(c echo.Context) error {
	status := c.QueryParam("status")
	priority := c.QueryParam("priority")
	project := c.QueryParam("project")
	search := strings.ToLower(c.QueryParam("search"))
	ordering := c.QueryParam("ordering")

	b.mu.Lock()
	issues := []tracker.Issue{}
	for _, id := range sortedKeys(b.issues) {
		issue := b.issues[id]
		if status != "" && issue.Status != status {
			continue
		}
		if priority != "" && issue.Priority != priority {
			continue
		}
		if project != "" && strconv.Itoa(issue.Project) != project {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(issue.Title+" "+issue.Description), search) {
			continue
		}
		issues = append(issues, b.issueView(issue))
	}
	b.mu.Unlock()

	desc := strings.HasPrefix(ordering, "-")
	switch strings.TrimPrefix(ordering, "-") {
	case "priority":
		sort.SliceStable(issues, func(i, j int) bool {
			if desc {
				return priorityRank[issues[i].Priority] > priorityRank[issues[j].Priority]
			}
			return priorityRank[issues[i].Priority] < priorityRank[issues[j].Priority]
		})
	case "created_at":
		sort.SliceStable(issues, func(i, j int) bool {
			if desc {
				return issues[i].ID > issues[j].ID
			}
			return issues[i].ID < issues[j].ID
		})
	default:
		// newest first
		sort.SliceStable(issues, func(i, j int) bool { return issues[i].ID > issues[j].ID })
	}
	return paged(b, c, issues)
}

func (b *Backend) getIssue(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	issue, ok := b.issues[id]
	if !ok {
		return notFound()
	}
	return c.JSON(http.StatusOK, b.issueView(issue))
}

func (b *Backend) bindIssue(c echo.Context) (*tracker.IssueInput, error) {
	var input tracker.IssueInput
	if err := c.Bind(&input); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	errs := fieldErrors{}
	if strings.TrimSpace(input.Title) == "" {
		errs["title"] = []string{"This field is required."}
	}
	if _, ok := b.projects[input.Project]; !ok {
		errs["project"] = []string{fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", input.Project)}
	}
	if input.Status == "" {
		input.Status = tracker.StatusOpen
	}
	if input.Priority == "" {
		input.Priority = tracker.PriorityMedium
	}
	if _, ok := priorityRank[input.Priority]; !ok {
		errs["priority"] = []string{fmt.Sprintf("\"%s\" is not a valid choice.", input.Priority)}
	}
	switch input.Status {
	case tracker.StatusOpen, tracker.StatusInProgress, tracker.StatusClosed:
	default:
		errs["status"] = []string{fmt.Sprintf("\"%s\" is not a valid choice.", input.Status)}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return &input, nil
}

func (b *Backend) createIssue(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	input, err := b.bindIssue(c)
	if err != nil {
		return err
	}
	actor := currentUserID(c)
	now := time.Now().UTC()
	issue := &tracker.Issue{
		ID:          b.id(),
		Title:       input.Title,
		Description: input.Description,
		Project:     input.Project,
		Reporter:    b.userRef(actor),
		Assignees:   append([]int{}, input.Assignees...),
		Status:      input.Status,
		Priority:    input.Priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	b.issues[issue.ID] = issue

	project := b.projects[issue.Project]
	recipients := map[int]bool{}
	for _, member := range project.Members {
		recipients[member] = true
	}
	if project.Owner != nil {
		recipients[project.Owner.ID] = true
	}
	for _, member := range sortedKeys(recipients) {
		if member != actor {
			b.notify(member, actor, "issue_assigned", fmt.Sprintf("New issue '%s' in project '%s'", issue.Title, project.Name))
		}
	}
	return c.JSON(http.StatusCreated, b.issueView(issue))
}

func (b *Backend) updateIssue(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	issue, ok := b.issues[id]
	if !ok {
		return notFound()
	}
	input, err := b.bindIssue(c)
	if err != nil {
		return err
	}
	oldStatus := issue.Status
	issue.Title = input.Title
	issue.Description = input.Description
	issue.Project = input.Project
	issue.Assignees = append([]int{}, input.Assignees...)
	issue.Status = input.Status
	issue.Priority = input.Priority
	issue.UpdatedAt = time.Now().UTC()

	if issue.Status != oldStatus {
		actor := currentUserID(c)
		for _, member := range b.issueWatchers(issue) {
			if member != actor {
				b.notify(member, actor, "issue_status_changed", fmt.Sprintf("Issue '%s' status changed to %s", issue.Title, issue.Status))
			}
		}
	}
	return c.JSON(http.StatusOK, b.issueView(issue))
}

func (b *Backend) issueWatchers(issue *tracker.Issue) []int {
	recipients := map[int]bool{}
	for _, member := range issue.Assignees {
		recipients[member] = true
	}
	if issue.Reporter != nil {
		recipients[issue.Reporter.ID] = true
	}
	return sortedKeys(recipients)
}

func (b *Backend) deleteIssue(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.issues[id]; !ok {
		return notFound()
	}
	delete(b.issues, id)
	return c.NoContent(http.StatusNoContent)
}

// --- comments ---

func (b *Backend) listComments(c echo.Context) error {
	b.mu.Lock()
	comments := []tracker.Comment{}
	for _, id := range sortedKeys(b.comments) {
		comments = append(comments, *b.comments[id])
	}
	b.mu.Unlock()
	// like the real server, the issue filter is not applied
	return paged(b, c, comments)
}

func (b *Backend) createComment(c echo.Context) error {
	var input struct {
		Issue   int    `json:"issue"`
		Content string `json:"content"`
	}
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	issue, ok := b.issues[input.Issue]
	if !ok {
		return fieldErrors{"issue": []string{fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", input.Issue)}}
	}
	if strings.TrimSpace(input.Content) == "" {
		return fieldErrors{"content": []string{"This field may not be blank."}}
	}

	actor := currentUserID(c)
	comment := &tracker.Comment{ID: b.id(), Issue: issue.ID, Author: b.userRef(actor), Content: input.Content, CreatedAt: time.Now().UTC()}
	b.comments[comment.ID] = comment

	for _, member := range b.issueWatchers(issue) {
		if member != actor {
			b.notify(member, actor, "issue_commented", fmt.Sprintf("New comment on issue '%s'", issue.Title))
		}
	}
	return c.JSON(http.StatusCreated, comment)
}

func (b *Backend) deleteComment(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.comments[id]; !ok {
		return notFound()
	}
	delete(b.comments, id)
	return c.NoContent(http.StatusNoContent)
}

// --- users ---

func (b *Backend) listUsers(c echo.Context) error {
	b.mu.Lock()
	users := []tracker.UserRef{}
	for _, id := range sortedKeys(b.accounts) {
		users = append(users, *b.userRef(id))
	}
	b.mu.Unlock()
	sort.SliceStable(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return paged(b, c, users)
}

func (b *Backend) me(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	acct, ok := b.accounts[currentUserID(c)]
	if !ok {
		return notFound()
	}
	return c.JSON(http.StatusOK, acct.user)
}

func (b *Backend) getUser(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	acct, ok := b.accounts[id]
	if !ok {
		return notFound()
	}
	return c.JSON(http.StatusOK, acct.user)
}

// --- chat ---

func (b *Backend) roomMessages(roomID int) []tracker.Message {
	messages := []tracker.Message{}
	for _, id := range sortedKeys(b.messages) {
		if b.messages[id].Room == roomID {
			messages = append(messages, *b.messages[id])
		}
	}
	return messages
}

func (b *Backend) unreadCount(roomID, userID int) int {
	count := 0
	for _, m := range b.roomMessages(roomID) {
		if !m.IsRead && (m.Sender == nil || m.Sender.ID != userID) {
			count++
		}
	}
	return count
}

func (b *Backend) roomDetail(r *room, userID int) map[string]interface{} {
	members := []tracker.UserRef{}
	for _, id := range sortedKeys(r.members) {
		if ref := b.userRef(id); ref != nil {
			members = append(members, tracker.UserRef{ID: ref.ID, Username: ref.Username, FirstName: ref.FirstName, LastName: ref.LastName})
		}
	}
	messages := b.roomMessages(r.ID)
	var last interface{}
	if len(messages) > 0 {
		last = messages[len(messages)-1]
	}
	return map[string]interface{}{
		"id":           r.ID,
		"name":         r.Name,
		"room_type":    r.RoomType,
		"project":      r.Project,
		"members":      members,
		"messages":     messages,
		"last_message": last,
		"unread_count": b.unreadCount(r.ID, userID),
		"created_at":   r.CreatedAt,
		"updated_at":   r.UpdatedAt,
	}
}

func (b *Backend) roomSummary(r *room, userID int) map[string]interface{} {
	var last interface{}
	if messages := b.roomMessages(r.ID); len(messages) > 0 {
		m := messages[len(messages)-1]
		sender := "Unknown"
		if m.Sender != nil {
			sender = m.Sender.Username
		}
		content := m.Content
		if len(content) > 50 {
			content = content[:50]
		}
		last = map[string]interface{}{"content": content, "sender": sender, "created_at": m.CreatedAt}
	}
	return map[string]interface{}{
		"id":           r.ID,
		"name":         r.Name,
		"room_type":    r.RoomType,
		"last_message": last,
		"unread_count": b.unreadCount(r.ID, userID),
		"updated_at":   r.UpdatedAt,
	}
}

// memberRoom returns the room if the user belongs to it
func (b *Backend) memberRoom(c echo.Context) (*room, error) {
	id, err := paramID(c)
	if err != nil {
		return nil, err
	}
	r, ok := b.rooms[id]
	if !ok || !r.members[currentUserID(c)] {
		return nil, notFound()
	}
	return r, nil
}

func (b *Backend) listRooms(c echo.Context) error {
	userID := currentUserID(c)
	b.mu.Lock()
	var rooms []*room
	for _, r := range b.rooms {
		if r.members[userID] {
			rooms = append(rooms, r)
		}
	}
	sort.SliceStable(rooms, func(i, j int) bool {
		if rooms[i].UpdatedAt.Equal(rooms[j].UpdatedAt) {
			return rooms[i].ID > rooms[j].ID
		}
		return rooms[i].UpdatedAt.After(rooms[j].UpdatedAt)
	})
	summaries := make([]map[string]interface{}, 0, len(rooms))
	for _, r := range rooms {
		summaries = append(summaries, b.roomSummary(r, userID))
	}
	b.mu.Unlock()
	return paged(b, c, summaries)
}

func (b *Backend) getRoom(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, err := b.memberRoom(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b.roomDetail(r, currentUserID(c)))
}

func (b *Backend) createRoom(c echo.Context) error {
	var input tracker.ChatRoomInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(input.Name) == "" {
		return fieldErrors{"name": []string{"This field is required."}}
	}
	if input.RoomType == "" {
		input.RoomType = tracker.RoomGroup
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if input.Project != nil {
		if _, ok := b.projects[*input.Project]; !ok {
			return fieldErrors{"project": []string{fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", *input.Project)}}
		}
	}
	now := time.Now().UTC()
	r := &room{members: map[int]bool{currentUserID(c): true}}
	r.ChatRoom = tracker.ChatRoom{ID: b.id(), Name: input.Name, RoomType: input.RoomType, Project: input.Project, CreatedAt: &now, UpdatedAt: now}
	b.rooms[r.ID] = r
	return c.JSON(http.StatusCreated, b.roomDetail(r, currentUserID(c)))
}

func (b *Backend) deleteRoom(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, err := b.memberRoom(c)
	if err != nil {
		return err
	}
	delete(b.rooms, r.ID)
	return c.NoContent(http.StatusNoContent)
}

func (b *Backend) joinRoom(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, err := b.memberRoom(c)
	if err != nil {
		return err
	}
	r.members[currentUserID(c)] = true
	return c.JSON(http.StatusOK, tracker.StatusResponse{Status: "joined"})
}

func (b *Backend) leaveRoom(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, err := b.memberRoom(c)
	if err != nil {
		return err
	}
	delete(r.members, currentUserID(c))
	return c.JSON(http.StatusOK, tracker.StatusResponse{Status: "left"})
}

// AddRoomMember adds a user to a chat room
func (b *Backend) AddRoomMember(roomID int, username string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.rooms[roomID]
	if !ok {
		return fmt.Errorf("unknown room %d", roomID)
	}
	acct := b.accountByUsername(username)
	if acct == nil {
		return fmt.Errorf("unknown user %s", username)
	}
	r.members[acct.user.ID] = true
	return nil
}

func (b *Backend) createMessage(c echo.Context) error {
	var input struct {
		Room    int    `json:"room"`
		Content string `json:"content"`
	}
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.rooms[input.Room]
	if !ok {
		return fieldErrors{"room": []string{fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", input.Room)}}
	}
	if strings.TrimSpace(input.Content) == "" {
		return fieldErrors{"content": []string{"This field may not be blank."}}
	}
	now := time.Now().UTC()
	m := &tracker.Message{ID: b.id(), Room: r.ID, Sender: b.userRef(currentUserID(c)), Content: input.Content, CreatedAt: now}
	if m.Sender != nil {
		m.Sender = &tracker.UserRef{ID: m.Sender.ID, Username: m.Sender.Username, FirstName: m.Sender.FirstName, LastName: m.Sender.LastName}
	}
	b.messages[m.ID] = m
	r.UpdatedAt = now
	return c.JSON(http.StatusCreated, m)
}

func (b *Backend) markMessageRead(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.messages[id]
	if !ok {
		return notFound()
	}
	if r, ok := b.rooms[m.Room]; !ok || !r.members[currentUserID(c)] {
		return notFound()
	}
	m.IsRead = true
	return c.JSON(http.StatusOK, tracker.StatusResponse{Status: "marked as read"})
}

// --- notifications ---

func (b *Backend) ownNotification(c echo.Context) (*tracker.Notification, error) {
	id, err := paramID(c)
	if err != nil {
		return nil, err
	}
	n, ok := b.notifications[id]
	if !ok || n.Recipient == nil || n.Recipient.ID != currentUserID(c) {
		return nil, notFound()
	}
	return n, nil
}

func (b *Backend) listNotifications(c echo.Context) error {
	userID := currentUserID(c)
	b.mu.Lock()
	notifications := []tracker.Notification{}
	keys := sortedKeys(b.notifications)
	for i := len(keys) - 1; i >= 0; i-- {
		n := b.notifications[keys[i]]
		if n.Recipient != nil && n.Recipient.ID == userID {
			view := *n
			view.Recipient = &tracker.UserRef{ID: n.Recipient.ID, Username: n.Recipient.Username}
			if n.Actor != nil {
				view.Actor = &tracker.UserRef{ID: n.Actor.ID, Username: n.Actor.Username}
			}
			notifications = append(notifications, view)
		}
	}
	b.mu.Unlock()
	return paged(b, c, notifications)
}

func (b *Backend) markNotification(read bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		b.mu.Lock()
		defer b.mu.Unlock()
		n, err := b.ownNotification(c)
		if err != nil {
			return err
		}
		n.IsRead = read
		status := "marked as unread"
		if read {
			status = "marked as read"
		}
		return c.JSON(http.StatusOK, tracker.StatusResponse{Status: status})
	}
}

func (b *Backend) markAllNotificationsRead(c echo.Context) error {
	userID := currentUserID(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, n := range b.notifications {
		if n.Recipient != nil && n.Recipient.ID == userID {
			n.IsRead = true
		}
	}
	return c.JSON(http.StatusOK, tracker.StatusResponse{Status: "all marked as read"})
}

func (b *Backend) deleteNotification(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, err := b.ownNotification(c)
	if err != nil {
		return err
	}
	delete(b.notifications, n.ID)
	return c.NoContent(http.StatusNoContent)
}
