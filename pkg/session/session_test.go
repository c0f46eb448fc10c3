package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takutakahashi/trackerctl/internal/fakebackend"
	"github.com/takutakahashi/trackerctl/pkg/client"
	"github.com/takutakahashi/trackerctl/pkg/credentials"
	"github.com/takutakahashi/trackerctl/pkg/logger"
)

func newManager(t *testing.T, baseURL string, opts ...client.Option) (*Manager, *credentials.MemoryStore) {
	t.Helper()
	store := credentials.NewMemoryStore()
	opts = append([]client.Option{client.WithStore(store), client.WithLogger(logger.Discard())}, opts...)
	c := client.New(baseURL, opts...)
	return NewManager(c, logger.Discard()), store
}

func newBackend(t *testing.T) *fakebackend.Backend {
	t.Helper()
	b := fakebackend.New(fakebackend.Options{
		Users: []fakebackend.SeedUser{{Username: "alice", Password: "secret1", Email: "alice@example.com", FirstName: "Alice"}},
	}).Start()
	t.Cleanup(b.Close)
	return b
}

func TestManager_Login(t *testing.T) {
	b := newBackend(t)
	m, store := newManager(t, b.URL())
	ctx := context.Background()

	ok, err := m.IsAuthenticated()
	require.NoError(t, err)
	assert.False(t, ok)

	user, err := m.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "alice", user.Username)

	ok, err = m.IsAuthenticated()
	require.NoError(t, err)
	assert.True(t, ok)

	for _, key := range []string{credentials.KeyAccess, credentials.KeyRefresh, credentials.KeyUser} {
		_, present, err := store.Get(key)
		require.NoError(t, err)
		assert.True(t, present, key)
	}

	cached, err := m.CurrentUser()
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "alice@example.com", cached.Email)
	assert.Equal(t, "Alice", cached.DisplayName())
}

func TestManager_LoginRejected(t *testing.T) {
	b := newBackend(t)
	m, store := newManager(t, b.URL())

	_, err := m.Login(context.Background(), "alice", "nope")
	require.Error(t, err)
	assert.True(t, client.IsUnauthorized(err))

	_, present, err := store.Get(credentials.KeyAccess)
	require.NoError(t, err)
	assert.False(t, present)
}

// refreshWriteFailure fails every write of the refresh token
type refreshWriteFailure struct {
	*credentials.MemoryStore
}

func (s refreshWriteFailure) Set(key, value string) error {
	if key == credentials.KeyRefresh {
		return errors.New("disk full")
	}
	return s.MemoryStore.Set(key, value)
}

func TestManager_LoginStoreFailureLeavesNoToken(t *testing.T) {
	b := newBackend(t)
	store := refreshWriteFailure{credentials.NewMemoryStore()}
	c := client.New(b.URL(), client.WithStore(store), client.WithLogger(logger.Discard()))
	m := NewManager(c, logger.Discard())

	_, err := m.Login(context.Background(), "alice", "secret1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to store refresh token")

	_, ok, err := store.Get(credentials.KeyAccess)
	require.NoError(t, err)
	assert.False(t, ok)

	authenticated, err := m.IsAuthenticated()
	require.NoError(t, err)
	assert.False(t, authenticated)
}

func TestManager_LoginProfileUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case client.TokenPath:
			_, _ = w.Write([]byte(`{"access":"A1","refresh":"R1"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	m, store := newManager(t, server.URL)
	require.NoError(t, store.Set(credentials.KeyUser, `{"id":9,"username":"stale"}`))

	user, err := m.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)
	assert.Nil(t, user)

	access, _, err := store.Get(credentials.KeyAccess)
	require.NoError(t, err)
	assert.Equal(t, "A1", access)

	_, present, err := store.Get(credentials.KeyUser)
	require.NoError(t, err)
	assert.False(t, present)
}

func TestManager_Register(t *testing.T) {
	b := newBackend(t)
	m, _ := newManager(t, b.URL())
	ctx := context.Background()

	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr string
	}{
		{name: "missing fields", req: RegisterRequest{Username: "dave"}, wantErr: "missing required fields: email, password"},
		{name: "taken username", req: RegisterRequest{Username: "alice", Email: "other@example.com", Password: "secret1"}, wantErr: "Username is already taken."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Register(ctx, tt.req)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	user, err := m.Register(ctx, RegisterRequest{Username: "dave", Email: "dave@example.com", Password: "secret9", FirstName: "Dave"})
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "dave", user.Username)
	assert.Equal(t, 1, b.TokenCalls())
}

func TestManager_Logout(t *testing.T) {
	b := newBackend(t)
	m, store := newManager(t, b.URL())

	_, err := m.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)
	require.NoError(t, m.Logout())

	for _, key := range []string{credentials.KeyAccess, credentials.KeyRefresh, credentials.KeyUser} {
		_, present, err := store.Get(key)
		require.NoError(t, err)
		assert.False(t, present, key)
	}

	user, err := m.CurrentUser()
	require.NoError(t, err)
	assert.Nil(t, user)

	// logging out twice is fine
	require.NoError(t, m.Logout())
}

func TestManager_SessionExpires(t *testing.T) {
	b := newBackend(t)
	redirects := 0
	m, store := newManager(t, b.URL(), client.WithRedirect(client.RedirectFunc(func(context.Context) { redirects++ })))
	ctx := context.Background()

	_, err := m.Login(ctx, "alice", "secret1")
	require.NoError(t, err)

	b.ExpireAccessTokens()
	b.RevokeRefreshTokens()

	_, err = m.RefreshCurrentUser(ctx)
	require.Error(t, err)
	assert.True(t, client.IsUnauthorized(err))
	assert.Equal(t, 1, redirects)

	ok, err := m.IsAuthenticated()
	require.NoError(t, err)
	assert.False(t, ok)

	_, present, err := store.Get(credentials.KeyUser)
	require.NoError(t, err)
	assert.False(t, present)
}

func TestManager_CurrentUserCorrupt(t *testing.T) {
	m, store := newManager(t, "http://unused.invalid")
	require.NoError(t, store.Set(credentials.KeyUser, "{"))

	_, err := m.CurrentUser()
	assert.Error(t, err)
}

func TestInspectToken(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"token_type": "access",
		"user_id":    42,
		"jti":        "abc",
		"iat":        now.Unix(),
		"exp":        now.Add(5 * time.Minute).Unix(),
	}).SignedString([]byte("any-key"))
	require.NoError(t, err)

	info, err := InspectToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "access", info.TokenType)
	assert.Equal(t, "42", info.UserID)
	assert.Equal(t, "abc", info.ID)
	assert.Equal(t, "HS256", info.Algorithm)
	require.NotNil(t, info.ExpiresAt)
	assert.True(t, info.ExpiresAt.Equal(now.Add(5*time.Minute)))
	assert.False(t, info.Expired(now))
	assert.Equal(t, 5*time.Minute, info.Remaining(now))
	assert.True(t, info.Expired(now.Add(10*time.Minute)))
	assert.Zero(t, info.Remaining(now.Add(10*time.Minute)))

	stringID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "7"}).SignedString([]byte("k"))
	require.NoError(t, err)
	info, err = InspectToken(stringID)
	require.NoError(t, err)
	assert.Equal(t, "7", info.UserID)
	assert.Nil(t, info.ExpiresAt)
	assert.False(t, info.Expired(now))

	_, err = InspectToken("not-a-jwt")
	assert.Error(t, err)
}
