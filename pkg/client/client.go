// Package client is an HTTP client for the tracker REST API that attaches
// bearer tokens and transparently refreshes an expired access token.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/takutakahashi/trackerctl/pkg/credentials"
	"github.com/takutakahashi/trackerctl/pkg/utils"
)

// DefaultUserAgent is sent when no user agent is configured
const DefaultUserAgent = "trackerctl"

// Client performs JSON calls against the tracker API
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      credentials.Store
	redirect   Redirector
	log        logrus.FieldLogger
	userAgent  string

	// refreshGroup is non-nil when concurrent refreshes are coalesced
	refreshGroup *singleflight.Group
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithStore sets the credential store
func WithStore(store credentials.Store) Option {
	return func(c *Client) {
		if store != nil {
			c.store = store
		}
	}
}

// WithRedirect sets the capability invoked when the session cannot be recovered
func WithRedirect(redirect Redirector) Option {
	return func(c *Client) {
		if redirect != nil {
			c.redirect = redirect
		}
	}
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithRefreshCoalescing makes concurrent requests that hit a 401 share a
// single refresh call instead of each refreshing on its own.
func WithRefreshCoalescing() Option {
	return func(c *Client) {
		c.refreshGroup = &singleflight.Group{}
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// New creates a Client for baseURL, e.g. "http://localhost:8000/api".
// Without options it uses an in-memory store, a no-op redirect and an
// http.Client with no timeout.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		store:      credentials.NewMemoryStore(),
		redirect:   RedirectFunc(func(context.Context) {}),
		log:        logrus.StandardLogger(),
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Store returns the credential store
func (c *Client) Store() credentials.Store {
	return c.store
}

// Response is a successful API response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the body into v. An empty body leaves v untouched.
func (r *Response) Decode(v interface{}) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type attempt int

const (
	attemptFirst attempt = iota
	attemptRetried
)

func (a attempt) String() string {
	if a == attemptRetried {
		return "retried"
	}
	return "first"
}

// pendingRequest is an outbound call and its retry state
type pendingRequest struct {
	method    string
	url       string
	body      []byte
	header    http.Header
	requestID string
	attempt   attempt

	// authorize is false for absolute URLs outside the API's origin
	authorize bool
}

// Do sends a request through the authorization pipeline. path is relative
// to the base URL; absolute http(s) URLs such as pagination links are used
// as given. body is JSON-encoded unless it is nil, []byte or
// json.RawMessage. Non-2xx responses are returned as *HTTPError.
func (c *Client) Do(ctx context.Context, method, path string, body interface{}, headers http.Header) (*Response, error) {
	req, err := c.newPendingRequest(method, path, body, headers)
	if err != nil {
		return nil, err
	}

	var token string
	if req.authorize {
		if token, err = c.accessToken(); err != nil {
			return nil, err
		}
	}

	resp, err := c.send(ctx, req, token)
	if err == nil {
		return resp, nil
	}
	if !IsUnauthorized(err) || !req.authorize || req.attempt == attemptRetried {
		return nil, err
	}

	// at most one refresh per request
	req.attempt = attemptRetried
	log := c.requestLogger(req)

	access, refreshErr := c.refreshAccess(ctx)
	if refreshErr != nil {
		if errors.Is(refreshErr, errStore) {
			return nil, refreshErr
		}
		// an aborted caller says nothing about the session
		if ctx.Err() != nil {
			log.Debugf("[CLIENT] Token refresh abandoned: %v", refreshErr)
			return nil, refreshErr
		}
		log.Infof("[CLIENT] Session could not be refreshed: %v", refreshErr)
		c.invalidate(ctx)
		return nil, err
	}

	log.Debug("[CLIENT] Access token refreshed, replaying request")
	return c.send(ctx, req, access)
}

// DoJSON sends a request and decodes a successful body into out
func (c *Client) DoJSON(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := c.Do(ctx, method, path, body, nil)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.Decode(out)
}

// Get sends a GET request
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.DoJSON(ctx, http.MethodGet, path, nil, out)
}

// Post sends a POST request
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.DoJSON(ctx, http.MethodPost, path, body, out)
}

// Put sends a PUT request
func (c *Client) Put(ctx context.Context, path string, body, out interface{}) error {
	return c.DoJSON(ctx, http.MethodPut, path, body, out)
}

// Patch sends a PATCH request
func (c *Client) Patch(ctx context.Context, path string, body, out interface{}) error {
	return c.DoJSON(ctx, http.MethodPatch, path, body, out)
}

// Delete sends a DELETE request
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.DoJSON(ctx, http.MethodDelete, path, nil, nil)
}

// DoUnauthenticated sends a request without a bearer token and without
// the refresh pipeline. It is used by the token and registration endpoints.
func (c *Client) DoUnauthenticated(ctx context.Context, method, path string, body, out interface{}) error {
	req, err := c.newPendingRequest(method, path, body, nil)
	if err != nil {
		return err
	}
	resp, err := c.send(ctx, req, "")
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.Decode(out)
}

func (c *Client) newPendingRequest(method, path string, body interface{}, headers http.Header) (*pendingRequest, error) {
	if method == "" {
		method = http.MethodGet
	}

	var data []byte
	switch b := body.(type) {
	case nil:
	case []byte:
		data = b
	case json.RawMessage:
		data = b
	default:
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		data = encoded
	}

	header := make(http.Header)
	for key, values := range headers {
		header[key] = append([]string(nil), values...)
	}

	requestID := header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
	}

	target := c.resolve(path)
	return &pendingRequest{
		method:    strings.ToUpper(method),
		url:       target,
		body:      data,
		header:    header,
		requestID: requestID,
		attempt:   attemptFirst,
		authorize: c.sameOrigin(target),
	}, nil
}

// sameOrigin reports whether target has the base URL's scheme and host
func (c *Client) sameOrigin(target string) bool {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return false
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, base.Scheme) && strings.EqualFold(u.Host, base.Host)
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// send performs one HTTP round trip. token is attached when non-empty.
func (c *Client) send(ctx context.Context, req *pendingRequest, token string) (*Response, error) {
	var bodyReader io.Reader
	if req.body != nil {
		bodyReader = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range req.header {
		httpReq.Header[key] = append([]string(nil), values...)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("X-Request-ID", req.requestID)
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	log := c.requestLogger(req)
	log.Debug("[CLIENT] Sending request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer utils.SafeCloseResponse(resp)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.WithField("status", resp.StatusCode).Debug("[CLIENT] Request failed")
		return nil, &HTTPError{
			Method:     req.method,
			URL:        req.url,
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       data,
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

func (c *Client) requestLogger(req *pendingRequest) logrus.FieldLogger {
	return c.log.WithFields(logrus.Fields{
		"method":     req.method,
		"url":        req.url,
		"request_id": req.requestID,
		"attempt":    req.attempt.String(),
	})
}

func (c *Client) accessToken() (string, error) {
	token, ok, err := c.store.Get(credentials.KeyAccess)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read access token: %w", errStore, err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// refreshAccess exchanges the stored refresh token for a new access token
// and stores it.
func (c *Client) refreshAccess(ctx context.Context) (string, error) {
	refresh, ok, err := c.store.Get(credentials.KeyRefresh)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read refresh token: %w", errStore, err)
	}
	if !ok || refresh == "" {
		return "", ErrNoRefreshToken
	}

	if c.refreshGroup == nil {
		return c.exchange(ctx, refresh)
	}

	// the shared exchange must not fail because one waiter gave up
	ch := c.refreshGroup.DoChan(refresh, func() (interface{}, error) {
		return c.exchange(context.WithoutCancel(ctx), refresh)
	})
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("failed to refresh token: %w", ctx.Err())
	case res := <-ch:
		if res.Shared {
			c.log.Debug("[CLIENT] Joined in-flight token refresh")
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) exchange(ctx context.Context, refresh string) (string, error) {
	token, err := c.RefreshToken(ctx, refresh)
	if err != nil {
		return "", err
	}
	if err := c.store.Set(credentials.KeyAccess, token.Access); err != nil {
		return "", fmt.Errorf("%w: failed to store access token: %w", errStore, err)
	}
	if token.Refresh != "" {
		// servers that rotate refresh tokens return a new one
		if err := c.store.Set(credentials.KeyRefresh, token.Refresh); err != nil {
			return "", fmt.Errorf("%w: failed to store refresh token: %w", errStore, err)
		}
	}
	return token.Access, nil
}

// invalidate wipes both tokens and asks for a new login
func (c *Client) invalidate(ctx context.Context) {
	for _, key := range []string{credentials.KeyAccess, credentials.KeyRefresh} {
		if err := c.store.Remove(key); err != nil {
			c.log.Warnf("[CLIENT] Failed to remove %s token: %v", key, err)
		}
	}
	c.redirect.RedirectToLogin(ctx)
}
