package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/takutakahashi/trackerctl/pkg/client"
)

// ProjectService manages projects
type ProjectService struct {
	client *client.Client
}

// List returns all projects visible to the current user
func (s *ProjectService) List(ctx context.Context) ([]Project, error) {
	return listAll[Project](ctx, s.client, "/projects/")
}

// Get returns a single project
func (s *ProjectService) Get(ctx context.Context, id int) (*Project, error) {
	if err := requireID("project", id); err != nil {
		return nil, err
	}
	var project Project
	if err := s.client.Get(ctx, resourcePath("projects", id), &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// Create creates a project owned by the current user
func (s *ProjectService) Create(ctx context.Context, input *ProjectInput) (*Project, error) {
	if err := validateProject(input); err != nil {
		return nil, err
	}
	var project Project
	if err := s.client.Post(ctx, "/projects/", input, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// Update replaces a project's writable fields
func (s *ProjectService) Update(ctx context.Context, id int, input *ProjectInput) (*Project, error) {
	if err := requireID("project", id); err != nil {
		return nil, err
	}
	if err := validateProject(input); err != nil {
		return nil, err
	}
	var project Project
	if err := s.client.Put(ctx, resourcePath("projects", id), input, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// Delete deletes a project
func (s *ProjectService) Delete(ctx context.Context, id int) error {
	if err := requireID("project", id); err != nil {
		return err
	}
	return s.client.Delete(ctx, resourcePath("projects", id))
}

// InputFromProject returns the writable fields of p, for edits that start
// from the current state
func InputFromProject(p *Project) *ProjectInput {
	input := &ProjectInput{
		Name:        p.Name,
		Description: p.Description,
		Members:     append([]int{}, p.Members...),
	}
	if p.StartDate != "" {
		v := p.StartDate
		input.StartDate = &v
	}
	if p.EndDate != "" {
		v := p.EndDate
		input.EndDate = &v
	}
	if p.FundsAllocated != "" {
		v := p.FundsAllocated
		input.FundsAllocated = &v
	}
	return input
}

func validateProject(input *ProjectInput) error {
	if input == nil || strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("project name is required")
	}
	return nil
}
