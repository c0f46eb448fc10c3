// Package tracker provides typed access to the tracker's REST resources.
package tracker

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/takutakahashi/trackerctl/pkg/client"
)

// maxPages bounds how many pages a list call follows
const maxPages = 100

// Tracker groups the resource services
type Tracker struct {
	client *client.Client

	Projects      *ProjectService
	Issues        *IssueService
	Comments      *CommentService
	Users         *UserService
	ChatRooms     *ChatRoomService
	Messages      *MessageService
	Notifications *NotificationService
}

// New creates a Tracker over c
func New(c *client.Client) *Tracker {
	t := &Tracker{client: c}
	t.Projects = &ProjectService{client: c}
	t.Issues = &IssueService{client: c}
	t.Comments = &CommentService{client: c}
	t.Users = &UserService{client: c}
	t.ChatRooms = &ChatRoomService{client: c}
	t.Messages = &MessageService{client: c, rooms: t.ChatRooms}
	t.Notifications = &NotificationService{client: c}
	return t
}

// Client returns the underlying client
func (t *Tracker) Client() *client.Client {
	return t.client
}

// listAll fetches path and follows pagination links
func listAll[T any](ctx context.Context, c *client.Client, path string) ([]T, error) {
	all := []T{}
	for page := 0; path != "" && page < maxPages; page++ {
		resp, err := c.Do(ctx, http.MethodGet, path, nil, nil)
		if err != nil {
			return nil, err
		}
		items, next := UnwrapResults[T](resp.Body)
		all = append(all, items...)
		path = next
	}
	return all, nil
}

func withQuery(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}

func resourcePath(collection string, id int) string {
	return fmt.Sprintf("/%s/%d/", collection, id)
}

func actionPath(collection string, id int, action string) string {
	return fmt.Sprintf("/%s/%d/%s/", collection, id, action)
}

func requireID(kind string, id int) error {
	if id <= 0 {
		return fmt.Errorf("%s ID is required", kind)
	}
	return nil
}
