package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/takutakahashi/trackerctl/pkg/utils"
)

// fileDocument is the on-disk layout of a FileStore
type fileDocument struct {
	Values    map[string]string `json:"values"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// FileStore keeps credentials in a JSON file readable only by the owner.
// Every operation goes to disk so that concurrent processes sharing the
// file observe each other's writes.
type FileStore struct {
	filePath string
	mu       sync.Mutex
}

// NewFileStore creates a FileStore backed by filePath
func NewFileStore(filePath string) (*FileStore, error) {
	if filePath == "" {
		return nil, fmt.Errorf("credential file path is required")
	}
	if err := utils.EnsureDir(filepath.Dir(filePath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create credential directory: %w", err)
	}
	return &FileStore{filePath: filePath}, nil
}

// Path returns the backing file path
func (fs *FileStore) Path() string {
	return fs.filePath
}

// Get returns the value stored under key
func (fs *FileStore) Get(key string) (string, bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.load()
	if err != nil {
		return "", false, err
	}
	value, ok := doc.Values[key]
	return value, ok, nil
}

// Set stores value under key and rewrites the file
func (fs *FileStore) Set(key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.load()
	if err != nil {
		return err
	}
	doc.Values[key] = value
	return fs.save(doc)
}

// Remove deletes key and rewrites the file
func (fs *FileStore) Remove(key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.load()
	if err != nil {
		return err
	}
	if _, ok := doc.Values[key]; !ok {
		return nil
	}
	delete(doc.Values, key)
	return fs.save(doc)
}

// Close is a no-op; every write is already on disk
func (fs *FileStore) Close() error {
	return nil
}

func (fs *FileStore) load() (*fileDocument, error) {
	doc := &fileDocument{}
	if err := utils.ReadJSONFile(fs.filePath, doc); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load credentials: %w", err)
		}
	}
	if doc.Values == nil {
		doc.Values = make(map[string]string)
	}
	return doc, nil
}

func (fs *FileStore) save(doc *fileDocument) error {
	doc.UpdatedAt = time.Now().UTC()
	if err := utils.WriteJSONFile(fs.filePath, doc, 0600); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}
