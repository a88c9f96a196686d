// Package store implements the narrow load/save contract the bot's learning
// state persists through. Writes are best-effort for callers; a missing key
// reads as "no data", never as an error.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/lox/bluffbots/internal/fileutil"
)

// Store is the persistence contract: JSON-shaped values by string key
type Store interface {
	// Load reads the value for key into the target, reporting whether the
	// key existed.
	Load(key string, into any) (bool, error)

	// Save writes the value for key, replacing any previous value.
	Save(key string, value any) error
}

// FileStore keeps one JSON file per key under a base directory. Files are
// written atomically (temp file + rename) so a crashed write never leaves a
// truncated snapshot behind.
type FileStore struct {
	dir string
}

// NewFileStore creates the base directory if needed
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Load implements Store
func (s *FileStore) Load(key string, into any) (bool, error) {
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, into); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Save implements Store
func (s *FileStore) Save(key string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := fileutil.WriteFileAtomic(s.path(key), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// MemStore is an in-memory Store for tests
type MemStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemStore returns an empty in-memory store
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

// Load implements Store
func (s *MemStore) Load(key string, into any) (bool, error) {
	s.mu.Lock()
	data, ok := s.data[key]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, into); err != nil {
		return false, err
	}
	return true, nil
}

// Save implements Store
func (s *MemStore) Save(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[key] = data
	s.mu.Unlock()
	return nil
}
