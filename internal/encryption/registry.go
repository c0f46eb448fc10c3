package encryption

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Registry tracks several services so values written under an older
// configuration stay readable after the primary service changes.
type Registry struct {
	primary Service
	log     logrus.FieldLogger

	byAlgorithm      map[string]Service
	byAlgorithmAndID map[string]Service
}

// NewRegistry creates a Registry that encrypts with primary
func NewRegistry(primary Service, log logrus.FieldLogger) *Registry {
	r := &Registry{
		primary:          primary,
		log:              log,
		byAlgorithm:      make(map[string]Service),
		byAlgorithmAndID: make(map[string]Service),
	}
	r.Register(primary)
	// plaintext values written before encryption was enabled
	r.Register(NewNoopService())
	return r
}

// Register adds a service used for decryption
func (r *Registry) Register(service Service) {
	if service == nil {
		return
	}
	if _, exists := r.byAlgorithm[service.Algorithm()]; !exists {
		r.byAlgorithm[service.Algorithm()] = service
	}
	r.byAlgorithmAndID[registryKey(service.Algorithm(), service.KeyID())] = service
}

// ForEncryption returns the primary service
func (r *Registry) ForEncryption() Service {
	return r.primary
}

// ForDecryption returns the service matching metadata, preferring an
// exact key match, then the algorithm, then nothing.
func (r *Registry) ForDecryption(metadata Metadata) (Service, error) {
	if service, ok := r.byAlgorithmAndID[registryKey(metadata.Algorithm, metadata.KeyID)]; ok {
		return service, nil
	}
	if service, ok := r.byAlgorithm[metadata.Algorithm]; ok {
		r.log.Debugf("[ENCRYPTION] Using algorithm-only match for %s (keyID: %s)", metadata.Algorithm, metadata.KeyID)
		return service, nil
	}
	return nil, fmt.Errorf("no encryption service registered for %s (keyID: %s)", metadata.Algorithm, metadata.KeyID)
}

func registryKey(algorithm, keyID string) string {
	return algorithm + ":" + keyID
}
