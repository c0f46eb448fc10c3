package credentials

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/takutakahashi/trackerctl/internal/encryption"
)

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*FileStore)(nil)
	_ Store = (*S3Store)(nil)
	_ Store = (*SecretStore)(nil)
)

// DefaultDir returns the directory used by the file backend when none is configured
func DefaultDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "trackerctl", "credentials")
	}
	return filepath.Join(".trackerctl", "credentials")
}

// NewStore creates a Store based on the configuration
func NewStore(ctx context.Context, config *Config, log logrus.FieldLogger) (Store, error) {
	if config == nil {
		return nil, fmt.Errorf("credential store config is required")
	}

	profile := config.Profile
	if profile == "" {
		profile = "default"
	}

	var store Store
	var err error

	switch config.Type {
	case StoreTypeMemory:
		store = NewMemoryStore()
	case StoreTypeFile, "":
		dir := config.Dir
		if dir == "" {
			dir = DefaultDir()
		}
		store, err = NewFileStore(filepath.Join(dir, profile+".json"))
	case StoreTypeS3:
		store, err = NewS3Store(ctx, config.S3, profile, log)
	case StoreTypeKubernetes:
		store, err = NewSecretStore(config.Kubernetes, profile)
	default:
		return nil, fmt.Errorf("unsupported credential store type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	log.Debugf("[STORE] Using %s credential store for profile %s", storeType(config.Type), profile)

	if !config.Encrypt {
		return store, nil
	}

	service, err := encryption.NewFactory(config.Encryption, log).Create(ctx)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create encryption service: %w", err)
	}
	return NewEncryptedStore(store, encryption.NewRegistry(service, log)), nil
}

func storeType(t string) string {
	if t == "" {
		return StoreTypeFile
	}
	return t
}
