package credentials

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

const (
	// LabelManagedBy marks Secrets written by this store
	LabelManagedBy = "app.kubernetes.io/managed-by"
	// LabelProfile records the credential profile of a Secret
	LabelProfile = "trackerctl/profile"
	// DefaultSecretPrefix is the default Secret name prefix
	DefaultSecretPrefix = "trackerctl-credentials-"
)

// SecretStore keeps one profile's credentials in a Kubernetes Secret
type SecretStore struct {
	client     kubernetes.Interface
	namespace  string
	secretName string
	profile    string
}

// NewSecretStore builds a clientset from cfg (explicit kubeconfig,
// $KUBECONFIG, then in-cluster) and returns a SecretStore.
func NewSecretStore(cfg KubernetesConfig, profile string) (*SecretStore, error) {
	var restCfg *rest.Config
	var err error

	if cfg.Kubeconfig != "" {
		restCfg, err = clientcmd.BuildConfigFromFlags("", cfg.Kubeconfig)
	} else if kubeconfig := os.Getenv("KUBECONFIG"); kubeconfig != "" {
		restCfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	} else {
		restCfg, err = rest.InClusterConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kubernetes config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes clientset: %w", err)
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "default"
	}
	return NewSecretStoreWithClient(clientset, namespace, cfg.NamePrefix, profile), nil
}

// NewSecretStoreWithClient creates a SecretStore around an existing clientset
func NewSecretStoreWithClient(client kubernetes.Interface, namespace, prefix, profile string) *SecretStore {
	if prefix == "" {
		prefix = DefaultSecretPrefix
	}
	if profile == "" {
		profile = "default"
	}
	return &SecretStore{
		client:     client,
		namespace:  namespace,
		secretName: prefix + sanitizeSecretName(profile),
		profile:    profile,
	}
}

// Get returns the value stored under key
func (s *SecretStore) Get(key string) (string, bool, error) {
	ctx, cancel := s.context()
	defer cancel()

	secret, err := s.client.CoreV1().Secrets(s.namespace).Get(ctx, s.secretName, metav1.GetOptions{})
	if err != nil {
		if errors.IsNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get credentials secret: %w", err)
	}

	value, ok := secret.Data[key]
	return string(value), ok, nil
}

// Set stores value under key, creating the Secret on first write
func (s *SecretStore) Set(key, value string) error {
	ctx, cancel := s.context()
	defer cancel()

	secrets := s.client.CoreV1().Secrets(s.namespace)
	secret, err := secrets.Get(ctx, s.secretName, metav1.GetOptions{})
	if err != nil {
		if !errors.IsNotFound(err) {
			return fmt.Errorf("failed to get credentials secret: %w", err)
		}
		secret = &corev1.Secret{
			ObjectMeta: metav1.ObjectMeta{
				Name:      s.secretName,
				Namespace: s.namespace,
				Labels: map[string]string{
					LabelManagedBy: "trackerctl",
					LabelProfile:   sanitizeSecretName(s.profile),
				},
			},
			Type: corev1.SecretTypeOpaque,
			Data: map[string][]byte{key: []byte(value)},
		}
		if _, err := secrets.Create(ctx, secret, metav1.CreateOptions{}); err != nil {
			return fmt.Errorf("failed to create credentials secret: %w", err)
		}
		return nil
	}

	if secret.Data == nil {
		secret.Data = make(map[string][]byte)
	}
	secret.Data[key] = []byte(value)
	if _, err := secrets.Update(ctx, secret, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("failed to update credentials secret: %w", err)
	}
	return nil
}

// Remove deletes key from the Secret
func (s *SecretStore) Remove(key string) error {
	ctx, cancel := s.context()
	defer cancel()

	secrets := s.client.CoreV1().Secrets(s.namespace)
	secret, err := secrets.Get(ctx, s.secretName, metav1.GetOptions{})
	if err != nil {
		if errors.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to get credentials secret: %w", err)
	}
	if _, ok := secret.Data[key]; !ok {
		return nil
	}

	delete(secret.Data, key)
	if _, err := secrets.Update(ctx, secret, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("failed to update credentials secret: %w", err)
	}
	return nil
}

// Close is a no-op
func (s *SecretStore) Close() error {
	return nil
}

func (s *SecretStore) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// sanitizeSecretName lowercases name and replaces characters that are not
// valid in a DNS-1123 subdomain
func sanitizeSecretName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-.")
}
