// Package fakebackend is an in-process stand-in for the tracker REST API
// and its SimpleJWT token endpoints. It is used by tests only.
package fakebackend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/takutakahashi/trackerctl/pkg/tracker"
)

// SeedUser is a user present when the backend starts
type SeedUser struct {
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
	Role      string
}

// Options configures a Backend
type Options struct {
	Users      []SeedUser
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// RotateRefresh makes the refresh endpoint issue a new refresh token
	RotateRefresh bool
	// PageSize > 0 wraps list responses in {count, next, previous, results}
	PageSize int
}

type account struct {
	user     tracker.User
	password string
}

// Backend is a fake tracker server
type Backend struct {
	opts   Options
	echo   *echo.Echo
	server *httptest.Server

	mu            sync.Mutex
	nextID        int
	accounts      map[int]*account
	projects      map[int]*tracker.Project
	issues        map[int]*tracker.Issue
	comments      map[int]*tracker.Comment
	rooms         map[int]*room
	messages      map[int]*tracker.Message
	notifications map[int]*tracker.Notification

	// tokens issued before these generations are rejected
	accessGen  int
	refreshGen int

	tokenCalls   int32
	refreshCalls int32
	requests     int32
}

type room struct {
	tracker.ChatRoom
	members map[int]bool
}

// New creates a Backend. Call Start to serve it.
func New(opts Options) *Backend {
	if len(opts.Secret) == 0 {
		opts.Secret = []byte("fakebackend-signing-key")
	}
	if opts.AccessTTL == 0 {
		opts.AccessTTL = 5 * time.Minute
	}
	if opts.RefreshTTL == 0 {
		opts.RefreshTTL = 24 * time.Hour
	}

	b := &Backend{
		opts:          opts,
		accounts:      make(map[int]*account),
		projects:      make(map[int]*tracker.Project),
		issues:        make(map[int]*tracker.Issue),
		comments:      make(map[int]*tracker.Comment),
		rooms:         make(map[int]*room),
		messages:      make(map[int]*tracker.Message),
		notifications: make(map[int]*tracker.Notification),
	}
	for _, u := range opts.Users {
		b.addAccount(u)
	}

	b.echo = echo.New()
	b.echo.HideBanner = true
	b.echo.HidePort = true
	b.echo.HTTPErrorHandler = errorHandler
	b.routes()
	return b
}

// Start serves the backend on a local port
func (b *Backend) Start() *Backend {
	b.server = httptest.NewServer(b.echo)
	return b
}

// Close stops the server
func (b *Backend) Close() {
	if b.server != nil {
		b.server.Close()
	}
}

// URL returns the API base URL, e.g. http://127.0.0.1:1234/api
func (b *Backend) URL() string {
	return b.server.URL + "/api"
}

// Handler returns the HTTP handler
func (b *Backend) Handler() http.Handler {
	return b.echo
}

// TokenCalls returns how many times the token endpoint was called
func (b *Backend) TokenCalls() int {
	return int(atomic.LoadInt32(&b.tokenCalls))
}

// RefreshCalls returns how many times the refresh endpoint was called
func (b *Backend) RefreshCalls() int {
	return int(atomic.LoadInt32(&b.refreshCalls))
}

// Requests returns how many API requests were served
func (b *Backend) Requests() int {
	return int(atomic.LoadInt32(&b.requests))
}

// ExpireAccessTokens invalidates every access token issued so far
func (b *Backend) ExpireAccessTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accessGen++
}

// RevokeRefreshTokens invalidates every refresh token issued so far
func (b *Backend) RevokeRefreshTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshGen++
}

// AddUser creates a user and returns its ID
func (b *Backend) AddUser(u SeedUser) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addAccount(u)
}

// Notify creates a notification for username
func (b *Backend) Notify(username, kind, message string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	acct := b.accountByUsername(username)
	if acct == nil {
		return 0, fmt.Errorf("unknown user %s", username)
	}
	return b.notify(acct.user.ID, 0, kind, message), nil
}

func (b *Backend) addAccount(u SeedUser) int {
	id := b.id()
	now := time.Now().UTC()
	role := u.Role
	if role == "" {
		role = "developer"
	}
	b.accounts[id] = &account{
		user: tracker.User{
			ID:         id,
			Username:   u.Username,
			FirstName:  u.FirstName,
			LastName:   u.LastName,
			Email:      u.Email,
			Role:       role,
			DateJoined: &now,
		},
		password: u.Password,
	}
	return id
}

func (b *Backend) id() int {
	b.nextID++
	return b.nextID
}

func (b *Backend) accountByUsername(username string) *account {
	for _, acct := range b.accounts {
		if acct.user.Username == username {
			return acct
		}
	}
	return nil
}

func (b *Backend) userRef(id int) *tracker.UserRef {
	acct, ok := b.accounts[id]
	if !ok {
		return nil
	}
	return &tracker.UserRef{
		ID:        acct.user.ID,
		Username:  acct.user.Username,
		FirstName: acct.user.FirstName,
		LastName:  acct.user.LastName,
		Role:      acct.user.Role,
	}
}

func (b *Backend) notify(recipient, actor int, kind, message string) int {
	id := b.id()
	b.notifications[id] = &tracker.Notification{
		ID:        id,
		Recipient: b.userRef(recipient),
		Actor:     b.userRef(actor),
		Type:      kind,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	return id
}

// list writes items either as a bare array or as one page
func (b *Backend) list(c echo.Context, items interface{}, total int, slice func(from, to int) interface{}) error {
	if b.opts.PageSize <= 0 {
		return c.JSON(http.StatusOK, items)
	}

	page := 1
	if raw := c.QueryParam("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusNotFound, "Invalid page.")
		}
		page = n
	}
	from := (page - 1) * b.opts.PageSize
	if from > total || (from == total && total > 0) {
		return echo.NewHTTPError(http.StatusNotFound, "Invalid page.")
	}
	to := from + b.opts.PageSize
	if to > total {
		to = total
	}

	resp := map[string]interface{}{
		"count":    total,
		"next":     nil,
		"previous": nil,
		"results":  slice(from, to),
	}
	if to < total {
		resp["next"] = pageURL(c, page+1)
	}
	if page > 1 {
		resp["previous"] = pageURL(c, page-1)
	}
	return c.JSON(http.StatusOK, resp)
}

func pageURL(c echo.Context, page int) string {
	req := c.Request()
	q := req.URL.Query()
	q.Set("page", strconv.Itoa(page))
	u := url.URL{Scheme: c.Scheme(), Host: req.Host, Path: req.URL.Path, RawQuery: q.Encode()}
	return u.String()
}

// errorHandler renders errors the way the REST framework does
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	var body interface{} = map[string]string{"detail": "Internal server error."}

	var fieldErr fieldErrors
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &fieldErr):
		code = http.StatusBadRequest
		body = fieldErr
	case errors.As(err, &httpErr):
		code = httpErr.Code
		detail := map[string]string{"detail": fmt.Sprint(httpErr.Message)}
		if code == http.StatusUnauthorized && httpErr.Internal != nil {
			detail["code"] = httpErr.Internal.Error()
		}
		body = detail
	}

	_ = c.JSON(code, body)
}

// fieldErrors is a validation failure keyed by field
type fieldErrors map[string][]string

func (f fieldErrors) Error() string {
	data, _ := json.Marshal(map[string][]string(f))
	return string(data)
}
