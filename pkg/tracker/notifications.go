package tracker

import (
	"context"

	"github.com/takutakahashi/trackerctl/pkg/client"
)

// NotificationService manages the current user's notifications
type NotificationService struct {
	client *client.Client
}

// List returns all notifications, newest first as sent by the server
func (s *NotificationService) List(ctx context.Context) ([]Notification, error) {
	return listAll[Notification](ctx, s.client, "/notifications/")
}

// Unread returns the unread notifications
func (s *NotificationService) Unread(ctx context.Context) ([]Notification, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	unread := make([]Notification, 0, len(all))
	for _, n := range all {
		if !n.IsRead {
			unread = append(unread, n)
		}
	}
	return unread, nil
}

// MarkRead marks a notification as read
func (s *NotificationService) MarkRead(ctx context.Context, id int) error {
	return s.action(ctx, id, "mark_read")
}

// MarkUnread marks a notification as unread
func (s *NotificationService) MarkUnread(ctx context.Context, id int) error {
	return s.action(ctx, id, "mark_unread")
}

// MarkAllRead marks every notification as read
func (s *NotificationService) MarkAllRead(ctx context.Context) error {
	return s.client.Post(ctx, "/notifications/mark_all_read/", nil, nil)
}

// Delete deletes a notification
func (s *NotificationService) Delete(ctx context.Context, id int) error {
	if err := requireID("notification", id); err != nil {
		return err
	}
	return s.client.Delete(ctx, resourcePath("notifications", id))
}

func (s *NotificationService) action(ctx context.Context, id int, action string) error {
	if err := requireID("notification", id); err != nil {
		return err
	}
	return s.client.Post(ctx, actionPath("notifications", id, action), nil, nil)
}
