package encryption

import (
	"context"
)

// NoopService stores values as plaintext
type NoopService struct{}

// NewNoopService creates a NoopService
func NewNoopService() *NoopService {
	return &NoopService{}
}

// Encrypt returns the plaintext unchanged
func (s *NoopService) Encrypt(ctx context.Context, plaintext string) (*EncryptedData, error) {
	return &EncryptedData{
		EncryptedValue: plaintext,
		Metadata:       newMetadata("noop", "noop"),
	}, nil
}

// Decrypt returns the stored value unchanged
func (s *NoopService) Decrypt(ctx context.Context, encrypted *EncryptedData) (string, error) {
	return encrypted.EncryptedValue, nil
}

// Algorithm returns "noop"
func (s *NoopService) Algorithm() string {
	return "noop"
}

// KeyID returns "noop"
func (s *NoopService) KeyID() string {
	return "noop"
}

var _ Service = (*NoopService)(nil)
