// Package config loads trackerctl settings from flags, TRACKERCTL_*
// environment variables and an optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/takutakahashi/trackerctl/internal/encryption"
	"github.com/takutakahashi/trackerctl/pkg/client"
	"github.com/takutakahashi/trackerctl/pkg/credentials"
	"github.com/takutakahashi/trackerctl/pkg/logger"
	"github.com/takutakahashi/trackerctl/pkg/notify"
	"github.com/takutakahashi/trackerctl/pkg/utils"
)

const (
	// EnvPrefix prefixes every environment variable, e.g. TRACKERCTL_BASE_URL
	EnvPrefix = "TRACKERCTL"
	// DefaultBaseURL points at a local development server
	DefaultBaseURL = "http://localhost:8000/api"
	// DefaultProfile is used when no profile is given
	DefaultProfile = "default"
)

// Output formats accepted by the CLI
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
	OutputTOML  = "toml"
)

// Config is the complete CLI configuration
type Config struct {
	BaseURL   string        `json:"base_url" mapstructure:"base_url"`
	Profile   string        `json:"profile" mapstructure:"profile"`
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
	Output    string        `json:"output" mapstructure:"output"`
	UserAgent string        `json:"user_agent" mapstructure:"user_agent"`

	Store      StoreConfig       `json:"store" mapstructure:"store"`
	Encryption encryption.Config `json:"encryption" mapstructure:"encryption"`
	Log        logger.Config     `json:"log" mapstructure:"log"`
	Breaker    BreakerConfig     `json:"breaker" mapstructure:"breaker"`
	Refresh    RefreshConfig     `json:"refresh" mapstructure:"refresh"`
	Watch      WatchConfig       `json:"watch" mapstructure:"watch"`

	// ConfigFile is the file that was read, empty when none was found
	ConfigFile string `json:"-" mapstructure:"-"`
}

// StoreConfig selects the credential store backend
type StoreConfig struct {
	Type       string                       `json:"type" mapstructure:"type"`
	Dir        string                       `json:"dir" mapstructure:"dir"`
	Encrypt    bool                         `json:"encrypt" mapstructure:"encrypt"`
	S3         credentials.S3Config         `json:"s3" mapstructure:"s3"`
	Kubernetes credentials.KubernetesConfig `json:"kubernetes" mapstructure:"kubernetes"`
}

// BreakerConfig enables the circuit breaker in front of the HTTP transport
type BreakerConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	MaxRequests  uint32        `json:"max_requests" mapstructure:"max_requests"`
	Interval     time.Duration `json:"interval" mapstructure:"interval"`
	Timeout      time.Duration `json:"timeout" mapstructure:"timeout"`
	MinRequests  uint32        `json:"min_requests" mapstructure:"min_requests"`
	FailureRatio float64       `json:"failure_ratio" mapstructure:"failure_ratio"`
}

// RefreshConfig controls token refresh behaviour
type RefreshConfig struct {
	Coalesce bool `json:"coalesce" mapstructure:"coalesce"`
}

// WatchConfig configures "notifications watch"
type WatchConfig struct {
	notify.Config `mapstructure:",squash"`
	SlackWebhook  string `json:"slack_webhook" mapstructure:"slack_webhook"`
	SlackChannel  string `json:"slack_channel" mapstructure:"slack_channel"`
}

// DefaultDir returns the directory searched for config.yaml
func DefaultDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "trackerctl")
	}
	return ".trackerctl"
}

// New returns a viper instance with defaults and environment binding set up
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// SetDefaults registers every key with its default. Keys must be known to
// viper for environment variables to reach them during Unmarshal.
func SetDefaults(v *viper.Viper) {
	breaker := utils.DefaultBreakerConfig()
	logCfg := logger.DefaultConfig()

	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("profile", DefaultProfile)
	v.SetDefault("timeout", utils.DefaultHTTPClientConfig().Timeout)
	v.SetDefault("output", OutputTable)
	v.SetDefault("user_agent", client.DefaultUserAgent)

	v.SetDefault("store.type", credentials.StoreTypeFile)
	v.SetDefault("store.dir", "")
	v.SetDefault("store.encrypt", false)
	v.SetDefault("store.s3.bucket", "")
	v.SetDefault("store.s3.region", "")
	v.SetDefault("store.s3.prefix", "")
	v.SetDefault("store.s3.endpoint", "")
	v.SetDefault("store.s3.access_key", "")
	v.SetDefault("store.s3.secret_key", "")
	v.SetDefault("store.kubernetes.namespace", "")
	v.SetDefault("store.kubernetes.kubeconfig", "")
	v.SetDefault("store.kubernetes.name_prefix", "")

	v.SetDefault("encryption.kms_key_id", "")
	v.SetDefault("encryption.kms_region", "")
	v.SetDefault("encryption.key_file", "")
	v.SetDefault("encryption.key_env", encryption.DefaultKeyEnvVar)

	v.SetDefault("log.level", logCfg.Level)
	v.SetDefault("log.format", logCfg.Format)
	v.SetDefault("log.output", logCfg.Output)
	v.SetDefault("log.file", "")

	v.SetDefault("breaker.enabled", false)
	v.SetDefault("breaker.max_requests", breaker.MaxRequests)
	v.SetDefault("breaker.interval", breaker.Interval)
	v.SetDefault("breaker.timeout", breaker.Timeout)
	v.SetDefault("breaker.min_requests", breaker.MinRequests)
	v.SetDefault("breaker.failure_ratio", breaker.FailureRatio)

	v.SetDefault("refresh.coalesce", false)

	v.SetDefault("watch.schedule", notify.DefaultSchedule)
	v.SetDefault("watch.dedupe_ttl", notify.DefaultDedupeTTL)
	v.SetDefault("watch.mark_read", false)
	v.SetDefault("watch.slack_webhook", "")
	v.SetDefault("watch.slack_channel", "")
}

// Load reads the config file and unmarshals the merged settings. An
// explicit configFile must exist; otherwise config.{yaml,json,toml} is
// looked up in DefaultDir and its absence is not an error.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(DefaultDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("base_url is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if strings.TrimSpace(c.Profile) == "" {
		return fmt.Errorf("profile is required")
	}
	switch c.Output {
	case OutputTable, OutputJSON, OutputYAML, OutputTOML:
	default:
		return fmt.Errorf("unknown output format: %s", c.Output)
	}
	switch c.Store.Type {
	case "", credentials.StoreTypeMemory, credentials.StoreTypeFile, credentials.StoreTypeS3, credentials.StoreTypeKubernetes:
	default:
		return fmt.Errorf("unknown store type: %s", c.Store.Type)
	}
	if c.Store.Type == credentials.StoreTypeS3 && c.Store.S3.Bucket == "" {
		return fmt.Errorf("store.s3.bucket is required for the s3 store")
	}
	return nil
}

// Credentials returns the credential store configuration
func (c *Config) Credentials() *credentials.Config {
	return &credentials.Config{
		Type:       c.Store.Type,
		Profile:    c.Profile,
		Dir:        c.Store.Dir,
		S3:         c.Store.S3,
		Kubernetes: c.Store.Kubernetes,
		Encrypt:    c.Store.Encrypt,
		Encryption: c.Encryption,
	}
}

// Client returns the HTTP client configuration
func (c *Config) Client() *client.Config {
	cfg := &client.Config{
		BaseURL:         strings.TrimRight(c.BaseURL, "/"),
		Timeout:         c.Timeout,
		UserAgent:       c.UserAgent,
		CoalesceRefresh: c.Refresh.Coalesce,
	}
	if c.Breaker.Enabled {
		breaker := utils.DefaultBreakerConfig()
		breaker.MaxRequests = c.Breaker.MaxRequests
		breaker.Interval = c.Breaker.Interval
		breaker.Timeout = c.Breaker.Timeout
		breaker.MinRequests = c.Breaker.MinRequests
		breaker.FailureRatio = c.Breaker.FailureRatio
		cfg.Breaker = &breaker
	}
	return cfg
}
