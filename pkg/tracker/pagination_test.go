package tracker

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnwrapResults(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantIDs  []int
		wantNext string
	}{
		{name: "bare array", body: `[{"id":1},{"id":2}]`, wantIDs: []int{1, 2}},
		{name: "paginated", body: `{"count":3,"next":"http://x/api/issues/?page=2","previous":null,"results":[{"id":3}]}`, wantIDs: []int{3}, wantNext: "http://x/api/issues/?page=2"},
		{name: "last page", body: `{"count":1,"next":null,"previous":null,"results":[{"id":4}]}`, wantIDs: []int{4}},
		{name: "empty array", body: `[]`, wantIDs: []int{}},
		{name: "object without results", body: `{"detail":"ok"}`, wantIDs: []int{}},
		{name: "results not an array", body: `{"results":{"id":1}}`, wantIDs: []int{}},
		{name: "null", body: `null`, wantIDs: []int{}},
		{name: "empty body", body: ``, wantIDs: []int{}},
		{name: "scalar", body: `42`, wantIDs: []int{}},
		{name: "malformed", body: `[{"id":`, wantIDs: []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, next := UnwrapResults[Issue]([]byte(tt.body))
			assert.NotNil(t, items)

			ids := make([]int, 0, len(items))
			for _, item := range items {
				ids = append(ids, item.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantNext, next)
		})
	}
}

func TestMessagePreview_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantSender  string
		wantContent string
	}{
		{name: "list form", body: `{"content":"hi","sender":"alice","created_at":"2024-05-01T10:00:00Z"}`, wantSender: "alice", wantContent: "hi"},
		{name: "detail form", body: `{"id":4,"room":1,"content":"hey","sender":{"id":2,"username":"bob"},"created_at":"2024-05-01T10:00:00Z","is_read":false}`, wantSender: "bob", wantContent: "hey"},
		{name: "no sender", body: `{"content":"x","sender":null,"created_at":"2024-05-01T10:00:00Z"}`, wantContent: "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var preview MessagePreview
			require.NoError(t, json.Unmarshal([]byte(tt.body), &preview))
			assert.Equal(t, tt.wantSender, preview.Sender)
			assert.Equal(t, tt.wantContent, preview.Content)
			assert.False(t, preview.CreatedAt.IsZero())
		})
	}
}

func TestUser_DisplayName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", (&User{Username: "ada", FirstName: "Ada", LastName: "Lovelace"}).DisplayName())
	assert.Equal(t, "Lovelace", (&User{Username: "ada", LastName: "Lovelace"}).DisplayName())
	assert.Equal(t, "ada", (&User{Username: "ada"}).DisplayName())
}
