package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/takutakahashi/trackerctl/pkg/client"
)

// ChatRoomService manages chat rooms the current user belongs to
type ChatRoomService struct {
	client *client.Client
}

// List returns the current user's rooms
func (s *ChatRoomService) List(ctx context.Context) ([]ChatRoom, error) {
	return listAll[ChatRoom](ctx, s.client, "/chat-rooms/")
}

// Get returns a room with its members and messages
func (s *ChatRoomService) Get(ctx context.Context, id int) (*ChatRoom, error) {
	if err := requireID("chat room", id); err != nil {
		return nil, err
	}
	var room ChatRoom
	if err := s.client.Get(ctx, resourcePath("chat-rooms", id), &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// Create creates a room with the current user as a member
func (s *ChatRoomService) Create(ctx context.Context, input *ChatRoomInput) (*ChatRoom, error) {
	if input == nil || strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("chat room name is required")
	}
	body := *input
	switch body.RoomType {
	case "":
		body.RoomType = RoomGroup
	case RoomGroup, RoomDirect, RoomProject:
	default:
		return nil, fmt.Errorf("invalid room type %q", body.RoomType)
	}
	if body.RoomType != RoomProject {
		body.Project = nil
	}

	var room ChatRoom
	if err := s.client.Post(ctx, "/chat-rooms/", &body, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// Join adds the current user to a room
func (s *ChatRoomService) Join(ctx context.Context, id int) error {
	return s.action(ctx, id, "join")
}

// Leave removes the current user from a room
func (s *ChatRoomService) Leave(ctx context.Context, id int) error {
	return s.action(ctx, id, "leave")
}

// Delete deletes a room
func (s *ChatRoomService) Delete(ctx context.Context, id int) error {
	if err := requireID("chat room", id); err != nil {
		return err
	}
	return s.client.Delete(ctx, resourcePath("chat-rooms", id))
}

func (s *ChatRoomService) action(ctx context.Context, id int, action string) error {
	if err := requireID("chat room", id); err != nil {
		return err
	}
	return s.client.Post(ctx, actionPath("chat-rooms", id, action), nil, nil)
}

// MessageService manages chat messages
type MessageService struct {
	client *client.Client
	rooms  *ChatRoomService
}

// List returns the messages of a room, oldest first
func (s *MessageService) List(ctx context.Context, roomID int) ([]Message, error) {
	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Messages == nil {
		return []Message{}, nil
	}
	return room.Messages, nil
}

// Send posts a message to a room
func (s *MessageService) Send(ctx context.Context, roomID int, content string) (*Message, error) {
	if err := requireID("chat room", roomID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("message content is required")
	}
	var message Message
	body := map[string]interface{}{"room": roomID, "content": content}
	if err := s.client.Post(ctx, "/messages/", body, &message); err != nil {
		return nil, err
	}
	return &message, nil
}

// MarkRead marks a message as read
func (s *MessageService) MarkRead(ctx context.Context, id int) error {
	if err := requireID("message", id); err != nil {
		return err
	}
	return s.client.Post(ctx, actionPath("messages", id, "mark_read"), nil, nil)
}
