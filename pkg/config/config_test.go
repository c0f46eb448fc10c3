package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takutakahashi/trackerctl/pkg/credentials"
	"github.com/takutakahashi/trackerctl/pkg/notify"
)

// isolate keeps the user's real config directory out of the tests
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultProfile, cfg.Profile)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, OutputTable, cfg.Output)
	assert.Equal(t, credentials.StoreTypeFile, cfg.Store.Type)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.False(t, cfg.Breaker.Enabled)
	assert.False(t, cfg.Refresh.Coalesce)
	assert.Equal(t, notify.DefaultSchedule, cfg.Watch.Schedule)
	assert.Equal(t, notify.DefaultDedupeTTL, cfg.Watch.DedupeTTL)
	assert.Empty(t, cfg.ConfigFile)
}

func TestLoadDefaultLocation(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "trackerctl", "config.yaml")
	writeFile(t, path, "base_url: https://tracker.example.com/api\nprofile: work\n")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "https://tracker.example.com/api", cfg.BaseURL)
	assert.Equal(t, "work", cfg.Profile)
	assert.Equal(t, path, cfg.ConfigFile)
}

func TestLoadFileFormats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "config.yaml",
			content: `base_url: https://a.example.com/api
timeout: 45s
output: json
store:
  type: s3
  encrypt: true
  s3:
    bucket: creds
    region: eu-west-1
breaker:
  enabled: true
  min_requests: 5
refresh:
  coalesce: true
watch:
  schedule: "*/5 * * * *"
  mark_read: true
  slack_webhook: https://hooks.slack.com/services/x
`,
		},
		{
			name: "toml",
			file: "config.toml",
			content: `base_url = "https://a.example.com/api"
timeout = "45s"
output = "json"

[store]
type = "s3"
encrypt = true

[store.s3]
bucket = "creds"
region = "eu-west-1"

[breaker]
enabled = true
min_requests = 5

[refresh]
coalesce = true

[watch]
schedule = "*/5 * * * *"
mark_read = true
slack_webhook = "https://hooks.slack.com/services/x"
`,
		},
		{
			name: "json",
			file: "config.json",
			content: `{
  "base_url": "https://a.example.com/api",
  "timeout": "45s",
  "output": "json",
  "store": {"type": "s3", "encrypt": true, "s3": {"bucket": "creds", "region": "eu-west-1"}},
  "breaker": {"enabled": true, "min_requests": 5},
  "refresh": {"coalesce": true},
  "watch": {"schedule": "*/5 * * * *", "mark_read": true, "slack_webhook": "https://hooks.slack.com/services/x"}
}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			path := filepath.Join(dir, tt.file)
			writeFile(t, path, tt.content)

			cfg, err := Load(New(), path)
			require.NoError(t, err)

			assert.Equal(t, "https://a.example.com/api", cfg.BaseURL)
			assert.Equal(t, 45*time.Second, cfg.Timeout)
			assert.Equal(t, OutputJSON, cfg.Output)
			assert.Equal(t, credentials.StoreTypeS3, cfg.Store.Type)
			assert.True(t, cfg.Store.Encrypt)
			assert.Equal(t, "creds", cfg.Store.S3.Bucket)
			assert.Equal(t, "eu-west-1", cfg.Store.S3.Region)
			assert.True(t, cfg.Breaker.Enabled)
			assert.Equal(t, uint32(5), cfg.Breaker.MinRequests)
			assert.Equal(t, 0.6, cfg.Breaker.FailureRatio)
			assert.True(t, cfg.Refresh.Coalesce)
			assert.Equal(t, "*/5 * * * *", cfg.Watch.Schedule)
			assert.True(t, cfg.Watch.MarkRead)
			assert.Equal(t, "https://hooks.slack.com/services/x", cfg.Watch.SlackWebhook)
		})
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "base_url: https://file.example.com/api\ntimeout: 10s\n")

	t.Setenv("TRACKERCTL_BASE_URL", "https://env.example.com/api")
	t.Setenv("TRACKERCTL_REFRESH_COALESCE", "true")
	t.Setenv("TRACKERCTL_STORE_TYPE", "memory")
	t.Setenv("TRACKERCTL_LOG_LEVEL", "debug")

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com/api", cfg.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.True(t, cfg.Refresh.Coalesce)
	assert.Equal(t, credentials.StoreTypeMemory, cfg.Store.Type)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		missing bool
		wantErr string
	}{
		{name: "explicit file missing", missing: true, wantErr: "failed to read config file"},
		{name: "malformed yaml", content: "base_url: [unterminated\n", wantErr: "failed to read config file"},
		{name: "unknown output", content: "output: xml\n", wantErr: "unknown output format"},
		{name: "unknown store", content: "store:\n  type: etcd\n", wantErr: "unknown store type"},
		{name: "s3 without bucket", content: "store:\n  type: s3\n", wantErr: "store.s3.bucket is required"},
		{name: "negative timeout", content: "timeout: -1s\n", wantErr: "timeout must not be negative"},
		{name: "empty base url", content: "base_url: \" \"\n", wantErr: "base_url is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			path := filepath.Join(dir, "config.yaml")
			if !tt.missing {
				writeFile(t, path, tt.content)
			}

			_, err := Load(New(), path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCredentials(t *testing.T) {
	cfg := &Config{
		Profile: "work",
		Store: StoreConfig{
			Type:    credentials.StoreTypeKubernetes,
			Encrypt: true,
			Kubernetes: credentials.KubernetesConfig{
				Namespace: "tools",
			},
		},
	}
	cfg.Encryption.KeyFile = "/etc/trackerctl/key"

	creds := cfg.Credentials()
	assert.Equal(t, credentials.StoreTypeKubernetes, creds.Type)
	assert.Equal(t, "work", creds.Profile)
	assert.Equal(t, "tools", creds.Kubernetes.Namespace)
	assert.True(t, creds.Encrypt)
	assert.Equal(t, "/etc/trackerctl/key", creds.Encryption.KeyFile)
}

func TestClient(t *testing.T) {
	cfg := &Config{
		BaseURL:   "https://tracker.example.com/api/",
		Timeout:   5 * time.Second,
		UserAgent: "ua",
		Refresh:   RefreshConfig{Coalesce: true},
	}

	c := cfg.Client()
	assert.Equal(t, "https://tracker.example.com/api", c.BaseURL)
	assert.Equal(t, 5*time.Second, c.Timeout)
	assert.Equal(t, "ua", c.UserAgent)
	assert.True(t, c.CoalesceRefresh)
	assert.Nil(t, c.Breaker)

	cfg.Breaker = BreakerConfig{Enabled: true, MaxRequests: 2, MinRequests: 4, FailureRatio: 0.5, Interval: time.Minute, Timeout: time.Second}
	c = cfg.Client()
	require.NotNil(t, c.Breaker)
	assert.Equal(t, "trackerctl", c.Breaker.Name)
	assert.Equal(t, uint32(2), c.Breaker.MaxRequests)
	assert.Equal(t, uint32(4), c.Breaker.MinRequests)
	assert.Equal(t, 0.5, c.Breaker.FailureRatio)
}
