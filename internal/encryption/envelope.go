package encryption

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const envelopePrefix = "ENC:"

// Seal encrypts plaintext with the registry's primary service and encodes
// the result with its metadata as a single string.
func (r *Registry) Seal(ctx context.Context, plaintext string) (string, error) {
	encrypted, err := r.primary.Encrypt(ctx, plaintext)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(encrypted)
	if err != nil {
		return "", fmt.Errorf("failed to marshal encrypted value: %w", err)
	}
	return envelopePrefix + string(data), nil
}

// Open decodes a value produced by Seal. Values without the envelope
// prefix are returned unchanged.
func (r *Registry) Open(ctx context.Context, sealed string) (string, error) {
	if !strings.HasPrefix(sealed, envelopePrefix) {
		return sealed, nil
	}

	var encrypted EncryptedData
	if err := json.Unmarshal([]byte(strings.TrimPrefix(sealed, envelopePrefix)), &encrypted); err != nil {
		return "", fmt.Errorf("failed to unmarshal encrypted value: %w", err)
	}

	service, err := r.ForDecryption(encrypted.Metadata)
	if err != nil {
		return "", err
	}
	return service.Decrypt(ctx, &encrypted)
}

// IsSealed reports whether value carries the envelope prefix
func IsSealed(value string) bool {
	return strings.HasPrefix(value, envelopePrefix)
}
