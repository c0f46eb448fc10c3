package tracker

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/takutakahashi/trackerctl/pkg/client"
)

// IssueFilter narrows an issue listing. Zero values are ignored.
type IssueFilter struct {
	Status   string
	Priority string
	Project  int
	Search   string
	// Ordering is a field name, prefixed with "-" for descending order
	Ordering string
}

func (f IssueFilter) query() url.Values {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Priority != "" {
		q.Set("priority", f.Priority)
	}
	if f.Project > 0 {
		q.Set("project", strconv.Itoa(f.Project))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Ordering != "" {
		q.Set("ordering", f.Ordering)
	}
	return q
}

// IssueService manages issues
type IssueService struct {
	client *client.Client
}

// List returns the issues matching filter
func (s *IssueService) List(ctx context.Context, filter IssueFilter) ([]Issue, error) {
	if err := validateIssueFilter(filter); err != nil {
		return nil, err
	}
	return listAll[Issue](ctx, s.client, withQuery("/issues/", filter.query()))
}

// Get returns a single issue with its comments
func (s *IssueService) Get(ctx context.Context, id int) (*Issue, error) {
	if err := requireID("issue", id); err != nil {
		return nil, err
	}
	var issue Issue
	if err := s.client.Get(ctx, resourcePath("issues", id), &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// Create creates an issue reported by the current user
func (s *IssueService) Create(ctx context.Context, input *IssueInput) (*Issue, error) {
	if err := validateIssue(input); err != nil {
		return nil, err
	}
	var issue Issue
	if err := s.client.Post(ctx, "/issues/", input, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// Update replaces an issue's writable fields
func (s *IssueService) Update(ctx context.Context, id int, input *IssueInput) (*Issue, error) {
	if err := requireID("issue", id); err != nil {
		return nil, err
	}
	if err := validateIssue(input); err != nil {
		return nil, err
	}
	var issue Issue
	if err := s.client.Put(ctx, resourcePath("issues", id), input, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// Delete deletes an issue
func (s *IssueService) Delete(ctx context.Context, id int) error {
	if err := requireID("issue", id); err != nil {
		return err
	}
	return s.client.Delete(ctx, resourcePath("issues", id))
}

// InputFromIssue returns the writable fields of i
func InputFromIssue(i *Issue) *IssueInput {
	return &IssueInput{
		Title:       i.Title,
		Description: i.Description,
		Project:     i.Project,
		Assignees:   append([]int{}, i.Assignees...),
		Status:      i.Status,
		Priority:    i.Priority,
	}
}

func validateIssue(input *IssueInput) error {
	if input == nil || strings.TrimSpace(input.Title) == "" {
		return fmt.Errorf("issue title is required")
	}
	if input.Project <= 0 {
		return fmt.Errorf("issue project is required")
	}
	return validateIssueFilter(IssueFilter{Status: input.Status, Priority: input.Priority})
}

func validateIssueFilter(f IssueFilter) error {
	switch f.Status {
	case "", StatusOpen, StatusInProgress, StatusClosed:
	default:
		return fmt.Errorf("invalid issue status %q", f.Status)
	}
	switch f.Priority {
	case "", PriorityLow, PriorityMedium, PriorityHigh:
	default:
		return fmt.Errorf("invalid issue priority %q", f.Priority)
	}
	return nil
}
