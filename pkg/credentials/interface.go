// Package credentials persists the client's access token, refresh token
// and cached user profile across process restarts.
package credentials

import (
	"github.com/takutakahashi/trackerctl/internal/encryption"
)

// Well-known keys
const (
	KeyAccess  = "access"
	KeyRefresh = "refresh"
	KeyUser    = "user"
)

// Store backends selectable through Config.Type
const (
	StoreTypeMemory     = "memory"
	StoreTypeFile       = "file"
	StoreTypeS3         = "s3"
	StoreTypeKubernetes = "kubernetes"
)

// Store is a synchronous key-value store for credentials
type Store interface {
	// Get returns the value for key and whether it was present
	Get(key string) (string, bool, error)

	// Set stores value under key, replacing any previous value
	Set(key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error

	// Close releases any resources held by the store
	Close() error
}

// Config holds configuration for credential store backends
type Config struct {
	Type    string `json:"type" mapstructure:"type"` // "memory", "file", "s3", "kubernetes"
	Profile string `json:"profile" mapstructure:"profile"`

	// File backend
	Dir string `json:"dir" mapstructure:"dir"`

	S3         S3Config         `json:"s3" mapstructure:"s3"`
	Kubernetes KubernetesConfig `json:"kubernetes" mapstructure:"kubernetes"`

	Encrypt    bool              `json:"encrypt" mapstructure:"encrypt"`
	Encryption encryption.Config `json:"encryption" mapstructure:"encryption"`
}

// S3Config configures the S3 backend
type S3Config struct {
	Bucket    string `json:"bucket" mapstructure:"bucket"`
	Region    string `json:"region" mapstructure:"region"`
	Prefix    string `json:"prefix" mapstructure:"prefix"`
	Endpoint  string `json:"endpoint" mapstructure:"endpoint"`
	AccessKey string `json:"access_key" mapstructure:"access_key"`
	SecretKey string `json:"secret_key" mapstructure:"secret_key"`
}

// KubernetesConfig configures the Kubernetes Secret backend
type KubernetesConfig struct {
	Namespace  string `json:"namespace" mapstructure:"namespace"`
	Kubeconfig string `json:"kubeconfig" mapstructure:"kubeconfig"`
	NamePrefix string `json:"name_prefix" mapstructure:"name_prefix"`
}
