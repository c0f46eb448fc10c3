package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"
)

var (
	// ErrNoRefreshToken means a 401 could not be recovered because no
	// refresh token is stored
	ErrNoRefreshToken = errors.New("no refresh token stored")

	// errStore marks credential store failures, which never count as
	// authorization failures
	errStore = errors.New("credential store error")
)

// maxErrorBody bounds how much of a response body Error() prints
const maxErrorBody = 512

// HTTPError is a non-2xx response. The body is kept as received.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if len(body) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut] + "..."
	}
	if body == "" {
		return fmt.Sprintf("%s %s: server returned status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: server returned status %d: %s", e.Method, e.URL, e.StatusCode, body)
}

// Detail returns a human readable message from a REST framework error
// body ({"detail": "..."} or field errors), falling back to the raw body.
func (e *HTTPError) Detail() string {
	var detail struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(e.Body, &detail); err == nil && detail.Detail != "" {
		return detail.Detail
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(e.Body, &fields); err == nil && len(fields) > 0 {
		parts := make([]string, 0, len(fields))
		for field, value := range fields {
			parts = append(parts, fmt.Sprintf("%s: %v", field, flatten(value)))
		}
		sort.Strings(parts)
		return strings.Join(parts, "; ")
	}

	if body := strings.TrimSpace(string(e.Body)); body != "" {
		return body
	}
	return http.StatusText(e.StatusCode)
}

func flatten(value interface{}) string {
	switch v := value.(type) {
	case []interface{}:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, fmt.Sprint(item))
		}
		return strings.Join(items, ", ")
	default:
		return fmt.Sprint(v)
	}
}

// StatusCode returns the HTTP status of err, or 0 if err is not an *HTTPError
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 response
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 response
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
