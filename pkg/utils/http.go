package utils

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// HTTPClientConfig holds configuration for HTTP client creation
type HTTPClientConfig struct {
	Timeout time.Duration
	Breaker *BreakerConfig
}

// BreakerConfig configures the optional circuit breaker in front of the transport
type BreakerConfig struct {
	Name         string
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
}

// DefaultHTTPClientConfig returns default HTTP client configuration
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout: 30 * time.Second,
	}
}

// DefaultBreakerConfig returns the breaker settings used when the breaker is enabled without overrides
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "trackerctl",
		MaxRequests:  1,
		Interval:     30 * time.Second,
		Timeout:      10 * time.Second,
		MinRequests:  3,
		FailureRatio: 0.6,
	}
}

// NewHTTPClient creates a new HTTP client with the given configuration
func NewHTTPClient(config HTTPClientConfig) *http.Client {
	client := &http.Client{
		Timeout: config.Timeout,
	}
	if config.Breaker != nil {
		client.Transport = NewBreakerTransport(http.DefaultTransport, *config.Breaker)
	}
	return client
}

// NewDefaultHTTPClient creates a new HTTP client with default configuration
func NewDefaultHTTPClient() *http.Client {
	return NewHTTPClient(DefaultHTTPClientConfig())
}

// BreakerTransport is an http.RoundTripper guarded by a circuit breaker.
// Transport errors and 5xx responses count as failures; every other
// response, including 401, counts as a success.
type BreakerTransport struct {
	next    http.RoundTripper
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerTransport wraps next with a circuit breaker
func NewBreakerTransport(next http.RoundTripper, config BreakerConfig) *BreakerTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	minRequests := config.MinRequests
	ratio := config.FailureRatio
	return &BreakerTransport{
		next: next,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        config.Name,
			MaxRequests: config.MaxRequests,
			Interval:    config.Interval,
			Timeout:     config.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < minRequests {
					return false
				}
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return failureRatio >= ratio
			},
		}),
	}
}

// RoundTrip implements http.RoundTripper
func (t *BreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	_, err := t.breaker.Execute(func() (interface{}, error) {
		r, err := t.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		resp = r
		if r.StatusCode >= 500 {
			return nil, HTTPError{StatusCode: r.StatusCode, Message: r.Status, URL: req.URL.String()}
		}
		return nil, nil
	})
	if resp != nil {
		// 5xx responses are handed back to the caller as-is
		return resp, nil
	}
	if err != nil {
		return nil, fmt.Errorf("circuit breaker %s: %w", t.breaker.Name(), err)
	}
	return resp, nil
}

// State returns the current breaker state
func (t *BreakerTransport) State() gobreaker.State {
	return t.breaker.State()
}

// HTTPError represents an HTTP error with status code and message
type HTTPError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// SafeCloseResponse safely closes HTTP response body
func SafeCloseResponse(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
}
