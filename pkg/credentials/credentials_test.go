package credentials

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/takutakahashi/trackerctl/internal/encryption"
	"github.com/takutakahashi/trackerctl/pkg/logger"
)

// mockS3 is an in-memory S3API
type mockS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
}

func newMockS3() *mockS3 {
	return &mockS3{objects: make(map[string][]byte)}
}

func (m *mockS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.objects[aws.ToString(params.Key)] = data
	m.puts++
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

// storeContract runs the behaviour every Store must share
func storeContract(t *testing.T, store Store) {
	t.Helper()

	_, ok, err := store.Get(KeyAccess)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(KeyAccess, "access-1"))
	require.NoError(t, store.Set(KeyRefresh, "refresh-1"))

	value, ok, err := store.Get(KeyAccess)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "access-1", value)

	require.NoError(t, store.Set(KeyAccess, "access-2"))
	value, _, err = store.Get(KeyAccess)
	require.NoError(t, err)
	assert.Equal(t, "access-2", value)

	require.NoError(t, store.Remove(KeyAccess))
	_, ok, err = store.Get(KeyAccess)
	require.NoError(t, err)
	assert.False(t, ok)

	// removing again is fine
	require.NoError(t, store.Remove(KeyAccess))
	require.NoError(t, store.Remove(KeyUser))

	value, ok, err = store.Get(KeyRefresh)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "refresh-1", value)

	require.NoError(t, store.Close())
}

func TestStores(t *testing.T) {
	tests := []struct {
		name  string
		store func(t *testing.T) Store
	}{
		{
			name: "memory",
			store: func(t *testing.T) Store {
				return NewMemoryStore()
			},
		},
		{
			name: "file",
			store: func(t *testing.T) Store {
				store, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "default.json"))
				require.NoError(t, err)
				return store
			},
		},
		{
			name: "s3",
			store: func(t *testing.T) Store {
				return NewS3StoreWithClient(newMockS3(), "bucket", "creds", "work")
			},
		},
		{
			name: "kubernetes",
			store: func(t *testing.T) Store {
				return NewSecretStoreWithClient(fake.NewSimpleClientset(), "tools", "", "default")
			},
		},
		{
			name: "encrypted memory",
			store: func(t *testing.T) Store {
				return NewEncryptedStore(NewMemoryStore(), newTestRegistry(t))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storeContract(t, tt.store(t))
		})
	}
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.json")

	first, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(KeyRefresh, "r1"))

	second, err := NewFileStore(path)
	require.NoError(t, err)
	value, ok, err := second.Get(KeyRefresh)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "r1", value)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	assert.Equal(t, path, second.Path())
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	store, err := NewFileStore(path)
	require.NoError(t, err)

	_, _, err = store.Get(KeyAccess)
	assert.Error(t, err)
}

func TestNewFileStore_RequiresPath(t *testing.T) {
	_, err := NewFileStore("")
	assert.Error(t, err)
}

func TestS3Store_ObjectKey(t *testing.T) {
	client := newMockS3()
	store := NewS3StoreWithClient(client, "bucket", "team/creds", "")

	require.NoError(t, store.Set(KeyAccess, "a"))

	data, ok := client.objects["team/creds/default.json"]
	require.True(t, ok)
	assert.Contains(t, string(data), `"access":"a"`)

	// removing a missing key does not rewrite the object
	puts := client.puts
	require.NoError(t, store.Remove(KeyUser))
	assert.Equal(t, puts, client.puts)
}

func TestSecretStore_WritesLabelledSecret(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	store := NewSecretStoreWithClient(clientset, "tools", "creds-", "Work_Profile")

	require.NoError(t, store.Set(KeyAccess, "a"))
	require.NoError(t, store.Set(KeyRefresh, "r"))

	secret, err := clientset.CoreV1().Secrets("tools").Get(context.Background(), "creds-work-profile", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "trackerctl", secret.Labels[LabelManagedBy])
	assert.Equal(t, []byte("a"), secret.Data[KeyAccess])
	assert.Equal(t, []byte("r"), secret.Data[KeyRefresh])
}

func TestEncryptedStore_SealsValues(t *testing.T) {
	backend := NewMemoryStore()
	store := NewEncryptedStore(backend, newTestRegistry(t))

	require.NoError(t, store.Set(KeyRefresh, "refresh-secret"))

	raw, ok, err := backend.Get(KeyRefresh)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, encryption.IsSealed(raw))
	assert.NotContains(t, raw, "refresh-secret")

	value, ok, err := store.Get(KeyRefresh)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "refresh-secret", value)
}

func TestEncryptedStore_ReadsPlaintext(t *testing.T) {
	backend := NewMemoryStore()
	require.NoError(t, backend.Set(KeyAccess, "legacy"))

	store := NewEncryptedStore(backend, newTestRegistry(t))
	value, ok, err := store.Get(KeyAccess)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "legacy", value)
}

func TestNewStore(t *testing.T) {
	log := logger.Discard()

	t.Run("memory", func(t *testing.T) {
		store, err := NewStore(context.Background(), &Config{Type: "memory"}, log)
		require.NoError(t, err)
		assert.IsType(t, &MemoryStore{}, store)
	})

	t.Run("file uses profile name", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewStore(context.Background(), &Config{Type: "file", Dir: dir, Profile: "staging"}, log)
		require.NoError(t, err)
		fileStore, ok := store.(*FileStore)
		require.True(t, ok)
		assert.Equal(t, filepath.Join(dir, "staging.json"), fileStore.Path())
	})

	t.Run("encrypted file", func(t *testing.T) {
		key := make([]byte, 32)
		_, err := rand.Read(key)
		require.NoError(t, err)
		t.Setenv("TEST_CREDENTIALS_KEY", base64.StdEncoding.EncodeToString(key))

		dir := t.TempDir()
		store, err := NewStore(context.Background(), &Config{
			Type:       "file",
			Dir:        dir,
			Encrypt:    true,
			Encryption: encryption.Config{KeyEnvVar: "TEST_CREDENTIALS_KEY"},
		}, log)
		require.NoError(t, err)
		require.NoError(t, store.Set(KeyAccess, "token"))

		data, err := os.ReadFile(filepath.Join(dir, "default.json"))
		require.NoError(t, err)
		assert.False(t, strings.Contains(string(data), `"token"`))
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := NewStore(context.Background(), &Config{Type: "redis"}, log)
		assert.Error(t, err)
	})

	t.Run("nil config", func(t *testing.T) {
		_, err := NewStore(context.Background(), nil, log)
		assert.Error(t, err)
	})
}

func newTestRegistry(t *testing.T) *encryption.Registry {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	service, err := encryption.NewLocalServiceFromKey(key)
	require.NoError(t, err)
	return encryption.NewRegistry(service, logger.Discard())
}
