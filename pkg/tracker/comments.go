package tracker

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/takutakahashi/trackerctl/pkg/client"
)

// CommentService manages issue comments
type CommentService struct {
	client *client.Client
}

// List returns the comments on an issue
func (s *CommentService) List(ctx context.Context, issueID int) ([]Comment, error) {
	if err := requireID("issue", issueID); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("issue", strconv.Itoa(issueID))
	comments, err := listAll[Comment](ctx, s.client, withQuery("/comments/", q))
	if err != nil {
		return nil, err
	}

	// servers that ignore the filter return every comment
	filtered := comments[:0]
	for _, c := range comments {
		if c.Issue == issueID {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

// Create adds a comment to an issue
func (s *CommentService) Create(ctx context.Context, issueID int, content string) (*Comment, error) {
	if err := requireID("issue", issueID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("comment content is required")
	}
	var comment Comment
	body := map[string]interface{}{"issue": issueID, "content": content}
	if err := s.client.Post(ctx, "/comments/", body, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// Delete deletes a comment
func (s *CommentService) Delete(ctx context.Context, id int) error {
	if err := requireID("comment", id); err != nil {
		return err
	}
	return s.client.Delete(ctx, resourcePath("comments", id))
}
