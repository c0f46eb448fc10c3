package credentials

import (
	"context"
	"fmt"

	"github.com/takutakahashi/trackerctl/internal/encryption"
)

// EncryptedStore seals values before handing them to the wrapped store.
// Plaintext values already in the backend are still readable.
type EncryptedStore struct {
	next     Store
	registry *encryption.Registry
}

var _ Store = (*EncryptedStore)(nil)

// NewEncryptedStore wraps next with registry
func NewEncryptedStore(next Store, registry *encryption.Registry) *EncryptedStore {
	return &EncryptedStore{next: next, registry: registry}
}

// Get returns the decrypted value for key
func (e *EncryptedStore) Get(key string) (string, bool, error) {
	sealed, ok, err := e.next.Get(key)
	if err != nil || !ok {
		return "", ok, err
	}
	value, err := e.registry.Open(context.Background(), sealed)
	if err != nil {
		return "", false, fmt.Errorf("failed to decrypt %s: %w", key, err)
	}
	return value, true, nil
}

// Set encrypts value and stores it under key
func (e *EncryptedStore) Set(key, value string) error {
	sealed, err := e.registry.Seal(context.Background(), value)
	if err != nil {
		return fmt.Errorf("failed to encrypt %s: %w", key, err)
	}
	return e.next.Set(key, sealed)
}

// Remove deletes key from the wrapped store
func (e *EncryptedStore) Remove(key string) error {
	return e.next.Remove(key)
}

// Close closes the wrapped store
func (e *EncryptedStore) Close() error {
	return e.next.Close()
}
