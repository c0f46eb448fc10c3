// Package session manages the signed-in user: obtaining and storing
// tokens, the cached profile, and signing out.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/takutakahashi/trackerctl/pkg/client"
	"github.com/takutakahashi/trackerctl/pkg/credentials"
	"github.com/takutakahashi/trackerctl/pkg/tracker"
)

// RegisterPath is the public registration endpoint
const RegisterPath = "/auth/register/"

// ErrNotAuthenticated is returned when an operation needs a stored session
var ErrNotAuthenticated = errors.New("not logged in")

// RegisterRequest is the payload for creating an account
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Manager drives the session lifecycle over a client and its store
type Manager struct {
	client *client.Client
	store  credentials.Store
	log    logrus.FieldLogger
}

// NewManager creates a Manager using the client's credential store
func NewManager(c *client.Client, log logrus.FieldLogger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{client: c, store: c.Store(), log: log}
}

// Login obtains a token pair, stores it and caches the user profile. A
// profile that cannot be fetched is not a login failure; the cached user
// is cleared and nil is returned in its place.
func (m *Manager) Login(ctx context.Context, username, password string) (*tracker.User, error) {
	pair, err := m.client.ObtainToken(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if err := m.store.Set(credentials.KeyAccess, pair.Access); err != nil {
		return nil, fmt.Errorf("failed to store access token: %w", err)
	}
	if err := m.store.Set(credentials.KeyRefresh, pair.Refresh); err != nil {
		// an access token without its refresh token would look logged in
		if rmErr := m.store.Remove(credentials.KeyAccess); rmErr != nil {
			m.log.Warnf("[SESSION] Failed to remove access token: %v", rmErr)
		}
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	m.log.WithField("username", username).Info("[SESSION] Logged in")

	user, err := m.RefreshCurrentUser(ctx)
	if err != nil {
		m.log.Warnf("[SESSION] Failed to fetch user profile: %v", err)
		return nil, nil
	}
	return user, nil
}

// Register creates an account and then logs in with the same credentials
func (m *Manager) Register(ctx context.Context, req RegisterRequest) (*tracker.User, error) {
	if err := validateRegister(req); err != nil {
		return nil, err
	}
	if err := m.client.DoUnauthenticated(ctx, http.MethodPost, RegisterPath, req, nil); err != nil {
		return nil, err
	}
	m.log.WithField("username", req.Username).Info("[SESSION] Registered")
	return m.Login(ctx, req.Username, req.Password)
}

// Logout removes the tokens and the cached user
func (m *Manager) Logout() error {
	var errs []error
	for _, key := range []string{credentials.KeyAccess, credentials.KeyRefresh, credentials.KeyUser} {
		if err := m.store.Remove(key); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", key, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	m.log.Info("[SESSION] Logged out")
	return nil
}

// IsAuthenticated reports whether an access token is stored. Expiry is not
// checked; it is discovered when the server rejects the token.
func (m *Manager) IsAuthenticated() (bool, error) {
	token, ok, err := m.store.Get(credentials.KeyAccess)
	if err != nil {
		return false, err
	}
	return ok && token != "", nil
}

// CurrentUser returns the cached profile, or nil if none is cached
func (m *Manager) CurrentUser() (*tracker.User, error) {
	raw, ok, err := m.store.Get(credentials.KeyUser)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var user tracker.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("failed to decode cached user: %w", err)
	}
	return &user, nil
}

// RefreshCurrentUser fetches /users/me/ and caches it. On failure the
// cached profile is removed.
func (m *Manager) RefreshCurrentUser(ctx context.Context) (*tracker.User, error) {
	var user tracker.User
	if err := m.client.Get(ctx, tracker.MePath, &user); err != nil {
		if removeErr := m.store.Remove(credentials.KeyUser); removeErr != nil {
			m.log.Warnf("[SESSION] Failed to clear cached user: %v", removeErr)
		}
		return nil, err
	}

	data, err := json.Marshal(&user)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user: %w", err)
	}
	if err := m.store.Set(credentials.KeyUser, string(data)); err != nil {
		return nil, fmt.Errorf("failed to cache user: %w", err)
	}
	return &user, nil
}

func validateRegister(req RegisterRequest) error {
	var missing []string
	if strings.TrimSpace(req.Username) == "" {
		missing = append(missing, "username")
	}
	if strings.TrimSpace(req.Email) == "" {
		missing = append(missing, "email")
	}
	if req.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}
