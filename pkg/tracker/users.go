package tracker

import (
	"context"

	"github.com/takutakahashi/trackerctl/pkg/client"
)

// MePath is the current user endpoint
const MePath = "/users/me/"

// UserService reads users
type UserService struct {
	client *client.Client
}

// List returns all users in their short form
func (s *UserService) List(ctx context.Context) ([]UserRef, error) {
	return listAll[UserRef](ctx, s.client, "/users/")
}

// Get returns a single user
func (s *UserService) Get(ctx context.Context, id int) (*User, error) {
	if err := requireID("user", id); err != nil {
		return nil, err
	}
	var user User
	if err := s.client.Get(ctx, resourcePath("users", id), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Me returns the authenticated user
func (s *UserService) Me(ctx context.Context) (*User, error) {
	var user User
	if err := s.client.Get(ctx, MePath, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
