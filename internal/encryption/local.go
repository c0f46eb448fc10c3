package encryption

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
)

// DefaultKeyEnvVar holds a base64 encoded 32 byte key when no key file is configured
const DefaultKeyEnvVar = "TRACKERCTL_ENCRYPTION_KEY"

// LocalService encrypts with AES-256-GCM using a local key
type LocalService struct {
	gcm            cipher.AEAD
	keyFingerprint string
}

// NewLocalService loads a raw 32 byte key from keyPath, or a base64 key
// from the keyEnvVar environment variable when keyPath is empty.
func NewLocalService(keyPath string, keyEnvVar string) (*LocalService, error) {
	if keyEnvVar == "" {
		keyEnvVar = DefaultKeyEnvVar
	}

	var key []byte
	var err error

	if keyPath != "" {
		key, err = os.ReadFile(keyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read encryption key from file: %w", err)
		}
	} else {
		keyB64 := os.Getenv(keyEnvVar)
		if keyB64 == "" {
			return nil, fmt.Errorf("encryption key not found: neither key file nor %s is set", keyEnvVar)
		}
		key, err = base64.StdEncoding.DecodeString(keyB64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode encryption key: %w", err)
		}
	}

	return NewLocalServiceFromKey(key)
}

// NewLocalServiceFromKey builds a LocalService from raw key bytes
func NewLocalServiceFromKey(key []byte) (*LocalService, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes for AES-256, got %d bytes", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	hash := sha256.Sum256(key)
	return &LocalService{
		gcm:            gcm,
		keyFingerprint: fmt.Sprintf("sha256:%x", hash[:8]),
	}, nil
}

// Encrypt seals plaintext with a random nonce prepended to the ciphertext
func (s *LocalService) Encrypt(ctx context.Context, plaintext string) (*EncryptedData, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := s.gcm.Seal(nonce, nonce, []byte(plaintext), nil)

	return &EncryptedData{
		EncryptedValue: base64.StdEncoding.EncodeToString(ciphertext),
		Metadata:       newMetadata(s.Algorithm(), s.keyFingerprint),
	}, nil
}

// Decrypt opens a value produced by Encrypt
func (s *LocalService) Decrypt(ctx context.Context, encrypted *EncryptedData) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encrypted.EncryptedValue)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	nonceSize := s.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", fmt.Errorf("ciphertext too short: %d bytes, expected at least %d bytes", len(ciphertext), nonceSize)
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := s.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}

// Algorithm returns "aes-256-gcm"
func (s *LocalService) Algorithm() string {
	return "aes-256-gcm"
}

// KeyID returns the key fingerprint
func (s *LocalService) KeyID() string {
	return s.keyFingerprint
}

var _ Service = (*LocalService)(nil)
