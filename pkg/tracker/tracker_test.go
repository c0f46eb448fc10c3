package tracker_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takutakahashi/trackerctl/internal/fakebackend"
	"github.com/takutakahashi/trackerctl/pkg/client"
	"github.com/takutakahashi/trackerctl/pkg/credentials"
	"github.com/takutakahashi/trackerctl/pkg/logger"
	"github.com/takutakahashi/trackerctl/pkg/tracker"
)

type fixture struct {
	backend *fakebackend.Backend
	tracker *tracker.Tracker
	store   *credentials.MemoryStore
	bobID   int
}

func newFixture(t *testing.T, opts fakebackend.Options) *fixture {
	t.Helper()
	opts.Users = append(opts.Users,
		fakebackend.SeedUser{Username: "alice", Password: "secret1", Email: "alice@example.com", FirstName: "Alice"},
	)
	backend := fakebackend.New(opts).Start()
	t.Cleanup(backend.Close)
	bobID := backend.AddUser(fakebackend.SeedUser{Username: "bob", Password: "secret2", Email: "bob@example.com"})

	store := credentials.NewMemoryStore()
	c := client.New(backend.URL(), client.WithStore(store), client.WithLogger(logger.Discard()))
	login(t, c, store, "alice", "secret1")

	return &fixture{backend: backend, tracker: tracker.New(c), store: store, bobID: bobID}
}

func login(t *testing.T, c *client.Client, store credentials.Store, username, password string) {
	t.Helper()
	pair, err := c.ObtainToken(context.Background(), username, password)
	require.NoError(t, err)
	require.NoError(t, store.Set(credentials.KeyAccess, pair.Access))
	require.NoError(t, store.Set(credentials.KeyRefresh, pair.Refresh))
}

func strPtr(s string) *string { return &s }

func TestProjects(t *testing.T) {
	f := newFixture(t, fakebackend.Options{})
	ctx := context.Background()
	projects := f.tracker.Projects

	_, err := projects.Create(ctx, &tracker.ProjectInput{Name: "  "})
	assert.Error(t, err)

	created, err := projects.Create(ctx, &tracker.ProjectInput{
		Name:           "Apollo",
		Description:    "Moon",
		StartDate:      strPtr("2024-01-01"),
		FundsAllocated: strPtr("1000.00"),
		Members:        []int{f.bobID},
	})
	require.NoError(t, err)
	assert.Equal(t, "Apollo", created.Name)
	require.NotNil(t, created.Owner)
	assert.Equal(t, "alice", created.Owner.Username)
	assert.Equal(t, 1, created.MemberCount)
	assert.Equal(t, "2024-01-01", created.StartDate)

	got, err := projects.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	input := tracker.InputFromProject(got)
	input.Description = "Moon landing"
	updated, err := projects.Update(ctx, got.ID, input)
	require.NoError(t, err)
	assert.Equal(t, "Moon landing", updated.Description)
	assert.Equal(t, "1000.00", updated.FundsAllocated)

	list, err := projects.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, projects.Delete(ctx, created.ID))
	_, err = projects.Get(ctx, created.ID)
	assert.True(t, client.IsNotFound(err))

	_, err = projects.Get(ctx, 0)
	assert.Error(t, err)
}

func TestIssues(t *testing.T) {
	f := newFixture(t, fakebackend.Options{})
	ctx := context.Background()

	project, err := f.tracker.Projects.Create(ctx, &tracker.ProjectInput{Name: "Apollo"})
	require.NoError(t, err)

	inputs := []tracker.IssueInput{
		{Title: "Broken login", Description: "500 on submit", Project: project.ID, Priority: tracker.PriorityHigh},
		{Title: "Typo", Project: project.ID, Priority: tracker.PriorityLow, Status: tracker.StatusClosed},
		{Title: "Slow search", Project: project.ID, Assignees: []int{f.bobID}},
	}
	for i := range inputs {
		_, err := f.tracker.Issues.Create(ctx, &inputs[i])
		require.NoError(t, err)
	}

	_, err = f.tracker.Issues.Create(ctx, &tracker.IssueInput{Title: "x"})
	assert.Error(t, err)
	_, err = f.tracker.Issues.Create(ctx, &tracker.IssueInput{Title: "x", Project: project.ID, Status: "blocked"})
	assert.Error(t, err)

	tests := []struct {
		name   string
		filter tracker.IssueFilter
		want   []string
	}{
		{name: "all newest first", filter: tracker.IssueFilter{}, want: []string{"Slow search", "Typo", "Broken login"}},
		{name: "by status", filter: tracker.IssueFilter{Status: tracker.StatusClosed}, want: []string{"Typo"}},
		{name: "by priority", filter: tracker.IssueFilter{Priority: tracker.PriorityHigh}, want: []string{"Broken login"}},
		{name: "by project", filter: tracker.IssueFilter{Project: project.ID}, want: []string{"Slow search", "Typo", "Broken login"}},
		{name: "search description", filter: tracker.IssueFilter{Search: "submit"}, want: []string{"Broken login"}},
		{name: "order by priority desc", filter: tracker.IssueFilter{Ordering: "-priority"}, want: []string{"Broken login", "Slow search", "Typo"}},
		{name: "order by created asc", filter: tracker.IssueFilter{Ordering: "created_at"}, want: []string{"Broken login", "Typo", "Slow search"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues, err := f.tracker.Issues.List(ctx, tt.filter)
			require.NoError(t, err)
			titles := make([]string, 0, len(issues))
			for _, issue := range issues {
				titles = append(titles, issue.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}

	_, err = f.tracker.Issues.List(ctx, tracker.IssueFilter{Priority: "urgent"})
	assert.Error(t, err)

	issues, err := f.tracker.Issues.List(ctx, tracker.IssueFilter{Search: "Slow"})
	require.NoError(t, err)
	require.Len(t, issues, 1)

	input := tracker.InputFromIssue(&issues[0])
	input.Status = tracker.StatusInProgress
	updated, err := f.tracker.Issues.Update(ctx, issues[0].ID, input)
	require.NoError(t, err)
	assert.Equal(t, tracker.StatusInProgress, updated.Status)
	assert.Equal(t, []int{f.bobID}, updated.Assignees)

	require.NoError(t, f.tracker.Issues.Delete(ctx, updated.ID))
	_, err = f.tracker.Issues.Get(ctx, updated.ID)
	assert.True(t, client.IsNotFound(err))
}

func TestComments(t *testing.T) {
	f := newFixture(t, fakebackend.Options{})
	ctx := context.Background()

	project, err := f.tracker.Projects.Create(ctx, &tracker.ProjectInput{Name: "Apollo"})
	require.NoError(t, err)
	first, err := f.tracker.Issues.Create(ctx, &tracker.IssueInput{Title: "One", Project: project.ID})
	require.NoError(t, err)
	second, err := f.tracker.Issues.Create(ctx, &tracker.IssueInput{Title: "Two", Project: project.ID})
	require.NoError(t, err)

	_, err = f.tracker.Comments.Create(ctx, first.ID, "  ")
	assert.Error(t, err)

	c1, err := f.tracker.Comments.Create(ctx, first.ID, "Looking into it")
	require.NoError(t, err)
	_, err = f.tracker.Comments.Create(ctx, second.ID, "Unrelated")
	require.NoError(t, err)

	comments, err := f.tracker.Comments.List(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "Looking into it", comments[0].Content)
	require.NotNil(t, comments[0].Author)
	assert.Equal(t, "alice", comments[0].Author.Username)

	issue, err := f.tracker.Issues.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, issue.Comments, 1)

	require.NoError(t, f.tracker.Comments.Delete(ctx, c1.ID))
	comments, err = f.tracker.Comments.List(ctx, first.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestUsers(t *testing.T) {
	f := newFixture(t, fakebackend.Options{})
	ctx := context.Background()

	me, err := f.tracker.Users.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)
	assert.Equal(t, "alice@example.com", me.Email)

	users, err := f.tracker.Users.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)

	bob, err := f.tracker.Users.Get(ctx, f.bobID)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", bob.Email)
}

func TestChat(t *testing.T) {
	f := newFixture(t, fakebackend.Options{})
	ctx := context.Background()

	_, err := f.tracker.ChatRooms.Create(ctx, &tracker.ChatRoomInput{Name: "x", RoomType: "broadcast"})
	assert.Error(t, err)

	room, err := f.tracker.ChatRooms.Create(ctx, &tracker.ChatRoomInput{Name: "General"})
	require.NoError(t, err)
	assert.Equal(t, tracker.RoomGroup, room.RoomType)
	require.Len(t, room.Members, 1)

	_, err = f.tracker.Messages.Send(ctx, room.ID, "")
	assert.Error(t, err)
	sent, err := f.tracker.Messages.Send(ctx, room.ID, "hello team")
	require.NoError(t, err)
	assert.Equal(t, "alice", sent.Sender.Username)

	messages, err := f.tracker.Messages.List(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "hello team", messages[0].Content)

	rooms, err := f.tracker.ChatRooms.List(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.NotNil(t, rooms[0].LastMessage)
	assert.Equal(t, "alice", rooms[0].LastMessage.Sender)

	require.NoError(t, f.tracker.Messages.MarkRead(ctx, sent.ID))
	require.NoError(t, f.tracker.ChatRooms.Join(ctx, room.ID))
	require.NoError(t, f.tracker.ChatRooms.Leave(ctx, room.ID))

	// non-members no longer see the room
	_, err = f.tracker.ChatRooms.Get(ctx, room.ID)
	assert.True(t, client.IsNotFound(err))
}

func TestProjectCreatesDiscussionRoom(t *testing.T) {
	f := newFixture(t, fakebackend.Options{})
	ctx := context.Background()

	project, err := f.tracker.Projects.Create(ctx, &tracker.ProjectInput{Name: "Apollo"})
	require.NoError(t, err)

	rooms, err := f.tracker.ChatRooms.List(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "Apollo - Discussion", rooms[0].Name)
	assert.Equal(t, tracker.RoomProject, rooms[0].RoomType)

	room, err := f.tracker.ChatRooms.Get(ctx, rooms[0].ID)
	require.NoError(t, err)
	require.NotNil(t, room.Project)
	assert.Equal(t, project.ID, *room.Project)

	require.NoError(t, f.tracker.ChatRooms.Delete(ctx, room.ID))
}

func TestNotifications(t *testing.T) {
	f := newFixture(t, fakebackend.Options{})
	ctx := context.Background()

	first, err := f.backend.Notify("alice", "general", "first")
	require.NoError(t, err)
	_, err = f.backend.Notify("alice", "general", "second")
	require.NoError(t, err)
	_, err = f.backend.Notify("bob", "general", "not mine")
	require.NoError(t, err)

	all, err := f.tracker.Notifications.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "second", all[0].Message)

	require.NoError(t, f.tracker.Notifications.MarkRead(ctx, first))
	unread, err := f.tracker.Notifications.Unread(ctx)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "second", unread[0].Message)

	require.NoError(t, f.tracker.Notifications.MarkUnread(ctx, first))
	unread, err = f.tracker.Notifications.Unread(ctx)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	require.NoError(t, f.tracker.Notifications.MarkAllRead(ctx))
	unread, err = f.tracker.Notifications.Unread(ctx)
	require.NoError(t, err)
	assert.Empty(t, unread)

	require.NoError(t, f.tracker.Notifications.Delete(ctx, first))
	all, err = f.tracker.Notifications.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestListFollowsPagination(t *testing.T) {
	f := newFixture(t, fakebackend.Options{PageSize: 2})
	ctx := context.Background()

	project, err := f.tracker.Projects.Create(ctx, &tracker.ProjectInput{Name: "Apollo"})
	require.NoError(t, err)
	for _, title := range []string{"a", "b", "c", "d", "e"} {
		_, err := f.tracker.Issues.Create(ctx, &tracker.IssueInput{Title: title, Project: project.ID})
		require.NoError(t, err)
	}

	issues, err := f.tracker.Issues.List(ctx, tracker.IssueFilter{Ordering: "created_at"})
	require.NoError(t, err)
	require.Len(t, issues, 5)
	assert.Equal(t, "a", issues[0].Title)
	assert.Equal(t, "e", issues[4].Title)
}

func TestServicesRefreshExpiredSession(t *testing.T) {
	f := newFixture(t, fakebackend.Options{})
	ctx := context.Background()

	before, _, err := f.store.Get(credentials.KeyAccess)
	require.NoError(t, err)

	f.backend.ExpireAccessTokens()
	me, err := f.tracker.Users.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)
	assert.Equal(t, 1, f.backend.RefreshCalls())

	after, _, err := f.store.Get(credentials.KeyAccess)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}
