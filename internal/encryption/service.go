// Package encryption encrypts credential values before they reach a
// persistent store.
package encryption

import (
	"context"
	"time"
)

// Service encrypts and decrypts string values
type Service interface {
	// Encrypt encrypts plaintext
	Encrypt(ctx context.Context, plaintext string) (*EncryptedData, error)

	// Decrypt reverses Encrypt
	Decrypt(ctx context.Context, encrypted *EncryptedData) (string, error)

	// Algorithm returns the algorithm name
	Algorithm() string

	// KeyID returns the key identifier
	KeyID() string
}

// EncryptedData holds a ciphertext together with its metadata
type EncryptedData struct {
	EncryptedValue string   `json:"value"`
	Metadata       Metadata `json:"metadata"`
}

// Metadata describes how a value was encrypted
type Metadata struct {
	Algorithm   string    `json:"alg"` // "noop", "aws-kms", "aes-256-gcm"
	KeyID       string    `json:"kid"`
	EncryptedAt time.Time `json:"at"`
	Version     string    `json:"v"`
}

const metadataVersion = "v1"

func newMetadata(algorithm, keyID string) Metadata {
	return Metadata{
		Algorithm:   algorithm,
		KeyID:       keyID,
		EncryptedAt: time.Now().UTC(),
		Version:     metadataVersion,
	}
}
