// Package logger builds the logrus logger shared by the client, the
// credential stores and the CLI.
package logger

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Config holds logging configuration
type Config struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"` // "text" or "json"
	Output string `json:"output" mapstructure:"output"` // "stderr", "stdout" or "file"
	File   string `json:"file" mapstructure:"file"`
}

// DefaultConfig logs warnings and above as text on stderr
func DefaultConfig() Config {
	return Config{
		Level:  "warn",
		Format: "text",
		Output: "stderr",
	}
}

// New creates a logger from cfg. The returned cleanup function closes the
// log file when output is "file" and is always safe to call.
func New(cfg Config) (*logrus.Logger, func(), error) {
	l := logrus.New()
	cleanup := func() {}

	level := cfg.Level
	if level == "" {
		level = "warn"
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, cleanup, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	l.SetLevel(parsed)

	switch strings.ToLower(cfg.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	default:
		return nil, cleanup, fmt.Errorf("unknown log format: %s", cfg.Format)
	}

	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		l.SetOutput(os.Stderr)
	case "stdout":
		l.SetOutput(os.Stdout)
	case "file":
		if cfg.File == "" {
			return nil, cleanup, fmt.Errorf("log output is file but no log file is configured")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, cleanup, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0600)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to open log file: %w", err)
		}
		l.SetOutput(f)
		cleanup = func() { _ = f.Close() }
	default:
		return nil, cleanup, fmt.Errorf("unknown log output: %s", cfg.Output)
	}

	return l, cleanup, nil
}

// Discard returns a logger that drops everything, for library defaults and tests
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Fingerprint returns a short, non-reversible identifier for a secret so
// that log lines can tell tokens apart without revealing them.
func Fingerprint(secret string) string {
	if secret == "" {
		return "none"
	}
	hash := sha256.Sum256([]byte(secret))
	return fmt.Sprintf("sha256:%x", hash[:4])
}
