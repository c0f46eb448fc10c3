package tracker

import (
	"encoding/json"
	"time"
)

// Issue states
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusClosed     = "closed"
)

// Issue priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Chat room types
const (
	RoomProject = "project"
	RoomDirect  = "direct"
	RoomGroup   = "group"
)

// User is the detailed user returned by /users/{id}/ and /users/me/
type User struct {
	ID         int        `json:"id"`
	Username   string     `json:"username"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Email      string     `json:"email,omitempty"`
	Role       string     `json:"role,omitempty"`
	Bio        string     `json:"bio,omitempty"`
	DateJoined *time.Time `json:"date_joined,omitempty"`
	LastLogin  *time.Time `json:"last_login,omitempty"`
}

// DisplayName returns the full name, or the username when no name is set
func (u *User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Username
	}
	return name
}

// UserRef is the short form of a user embedded in other resources
type UserRef struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role,omitempty"`
}

// ProjectStats counts a project's issues by status
type ProjectStats struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"in_progress"`
	Closed     int `json:"closed"`
}

// IssueSummary is the short form of an issue embedded in a project
type IssueSummary struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

// Project is a tracked project
type Project struct {
	ID             int            `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Owner          *UserRef       `json:"owner"`
	Members        []int          `json:"members"`
	MembersDetail  []UserRef      `json:"members_detail,omitempty"`
	MemberCount    int            `json:"member_count"`
	CreatedAt      time.Time      `json:"created_at"`
	StartDate      string         `json:"start_date,omitempty"`
	EndDate        string         `json:"end_date,omitempty"`
	FundsAllocated string         `json:"funds_allocated,omitempty"`
	Issues         []IssueSummary `json:"issues,omitempty"`
	Progress       int            `json:"progress"`
	Stats          ProjectStats   `json:"stats"`
}

// ProjectInput is the writable part of a project. Dates are YYYY-MM-DD;
// nil fields are sent as null.
type ProjectInput struct {
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	StartDate      *string `json:"start_date"`
	EndDate        *string `json:"end_date"`
	FundsAllocated *string `json:"funds_allocated"`
	Members        []int   `json:"members"`
}

// Issue is a tracked issue
type Issue struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Project     int       `json:"project"`
	Reporter    *UserRef  `json:"reporter"`
	Assignees   []int     `json:"assignees"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Comments    []Comment `json:"comments,omitempty"`
}

// IssueInput is the writable part of an issue
type IssueInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Project     int    `json:"project"`
	Assignees   []int  `json:"assignees"`
	Status      string `json:"status,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

// Comment is a comment on an issue
type Comment struct {
	ID        int       `json:"id"`
	Issue     int       `json:"issue"`
	Author    *UserRef  `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is a chat message
type Message struct {
	ID        int       `json:"id"`
	Room      int       `json:"room"`
	Sender    *UserRef  `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	IsRead    bool      `json:"is_read"`
}

// MessagePreview is the last message of a room. The list endpoint sends
// the sender as a username, the detail endpoint as a user object.
type MessagePreview struct {
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalJSON accepts both sender forms
func (m *MessagePreview) UnmarshalJSON(data []byte) error {
	var raw struct {
		Content   string          `json:"content"`
		Sender    json.RawMessage `json:"sender"`
		CreatedAt time.Time       `json:"created_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Content = raw.Content
	m.CreatedAt = raw.CreatedAt
	m.Sender = ""

	if len(raw.Sender) == 0 || string(raw.Sender) == "null" {
		return nil
	}
	var username string
	if err := json.Unmarshal(raw.Sender, &username); err == nil {
		m.Sender = username
		return nil
	}
	var ref UserRef
	if err := json.Unmarshal(raw.Sender, &ref); err != nil {
		return err
	}
	m.Sender = ref.Username
	return nil
}

// ChatRoom is a chat room. Members and Messages are only present on the
// detail endpoint.
type ChatRoom struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	RoomType    string          `json:"room_type"`
	Project     *int            `json:"project,omitempty"`
	Members     []UserRef       `json:"members,omitempty"`
	Messages    []Message       `json:"messages,omitempty"`
	LastMessage *MessagePreview `json:"last_message"`
	UnreadCount int             `json:"unread_count"`
	CreatedAt   *time.Time      `json:"created_at,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ChatRoomInput is the writable part of a chat room
type ChatRoomInput struct {
	Name     string `json:"name"`
	RoomType string `json:"room_type"`
	Project  *int   `json:"project,omitempty"`
}

// Notification is a notification for the current user
type Notification struct {
	ID        int       `json:"id"`
	Recipient *UserRef  `json:"recipient"`
	Actor     *UserRef  `json:"actor"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusResponse is returned by action endpoints such as join or mark_read
type StatusResponse struct {
	Status string `json:"status"`
}
