package client

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/takutakahashi/trackerctl/pkg/credentials"
	"github.com/takutakahashi/trackerctl/pkg/utils"
)

// Environment variables read by ConfigFromEnv
const (
	EnvBaseURL = "TRACKERCTL_BASE_URL"
	EnvTimeout = "TRACKERCTL_TIMEOUT"
)

// Config holds the settings needed to build a Client
type Config struct {
	BaseURL         string
	Timeout         time.Duration
	UserAgent       string
	CoalesceRefresh bool
	Breaker         *utils.BreakerConfig
}

// ConfigFromEnv creates a client configuration from environment variables
func ConfigFromEnv() (*Config, error) {
	baseURL := os.Getenv(EnvBaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("%s environment variable is not set", EnvBaseURL)
	}

	config := &Config{
		BaseURL: baseURL,
		Timeout: utils.DefaultHTTPClientConfig().Timeout,
	}
	if raw := os.Getenv(EnvTimeout); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvTimeout, err)
		}
		config.Timeout = timeout
	}
	return config, nil
}

// NewFromConfig creates a Client from config
func NewFromConfig(config *Config, store credentials.Store, redirect Redirector, log logrus.FieldLogger) (*Client, error) {
	if config == nil || config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	opts := []Option{
		WithHTTPClient(utils.NewHTTPClient(utils.HTTPClientConfig{
			Timeout: config.Timeout,
			Breaker: config.Breaker,
		})),
		WithStore(store),
		WithRedirect(redirect),
		WithLogger(log),
		WithUserAgent(config.UserAgent),
	}
	if config.CoalesceRefresh {
		opts = append(opts, WithRefreshCoalescing())
	}
	return New(config.BaseURL, opts...), nil
}
