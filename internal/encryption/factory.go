package encryption

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Config selects the encryption backend
type Config struct {
	KMSKeyID  string `json:"kms_key_id" mapstructure:"kms_key_id"`
	KMSRegion string `json:"kms_region" mapstructure:"kms_region"`
	KeyFile   string `json:"key_file" mapstructure:"key_file"`
	KeyEnvVar string `json:"key_env" mapstructure:"key_env"`
}

// Factory creates the Service described by a Config
type Factory struct {
	config Config
	log    logrus.FieldLogger

	newKMS func(ctx context.Context, keyID, region string) (*KMSService, error)
}

// NewFactory creates a Factory
func NewFactory(config Config, log logrus.FieldLogger) *Factory {
	return &Factory{config: config, log: log, newKMS: NewKMSService}
}

// Create picks a backend in order KMS, local key, noop. A KMS key that
// cannot encrypt a probe value falls through to the next option.
func (f *Factory) Create(ctx context.Context) (Service, error) {
	if f.config.KMSKeyID != "" && f.config.KMSRegion != "" {
		service, err := f.newKMS(ctx, f.config.KMSKeyID, f.config.KMSRegion)
		if err == nil {
			err = probe(ctx, service)
		}
		if err == nil {
			f.log.Infof("[ENCRYPTION] Using AWS KMS encryption (key: %s, region: %s)", f.config.KMSKeyID, f.config.KMSRegion)
			return service, nil
		}
		f.log.Warnf("[ENCRYPTION] KMS unavailable, falling back to next option: %v", err)
	}

	envVar := f.config.KeyEnvVar
	if envVar == "" {
		envVar = DefaultKeyEnvVar
	}
	if f.config.KeyFile != "" || os.Getenv(envVar) != "" {
		service, err := NewLocalService(f.config.KeyFile, envVar)
		if err != nil {
			return nil, err
		}
		f.log.Infof("[ENCRYPTION] Using local AES-256-GCM encryption (key fingerprint: %s)", service.KeyID())
		return service, nil
	}

	f.log.Debug("[ENCRYPTION] No encryption configured, storing credentials as plaintext")
	return NewNoopService(), nil
}

func probe(ctx context.Context, service Service) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := service.Encrypt(ctx, "probe")
	return err
}
