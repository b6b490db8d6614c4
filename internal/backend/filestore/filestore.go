// Package filestore is the default cache backend: one JSON document per
// record under <root>/<namespace>/, with atomic tmp-file+rename writes.
package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/recallhq/recall/internal/backend"
)

// recordFileExtension is the file extension used for cache records.
const recordFileExtension = ".json"

const dirPerm = 0750

// record is the serialized form of one cache entry on disk. CreatedAt is
// RFC3339; a missing or unparsable field decodes to the zero time, which
// the store layer interprets as foreign data.
type record struct {
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	CreatedAt string          `json:"created_at,omitempty"`
}

// FileStore implements backend.Backend over a local directory tree.
// Thread-safe for concurrent access within one process; cross-process
// writers are not coordinated beyond the atomicity of rename.
type FileStore struct {
	root string

	mu sync.RWMutex
}

// DefaultRoot returns the platform cache directory for this library,
// os.UserCacheDir()/recall.
func DefaultRoot() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolving user cache directory: %w", err)
	}
	return filepath.Join(base, "recall"), nil
}

// New creates a file backend rooted at root. The root directory is
// created if it doesn't exist; namespace directories are created on
// Provision.
func New(root string) (*FileStore, error) {
	if root == "" {
		return nil, errors.New("cache root cannot be empty")
	}
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create cache root: %w", err)
	}
	return &FileStore{root: root}, nil
}

// Provision creates the namespace directory if absent.
func (s *FileStore) Provision(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.namespaceDir(name)
	if _, err := os.Stat(dir); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat namespace directory: %w", err)
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return false, fmt.Errorf("failed to create namespace directory: %w", err)
	}
	return true, nil
}

// List returns every record in the namespace. Files that don't parse as
// records are surfaced with zero metadata rather than skipped, so the
// store layer can decide how to treat foreign data.
func (s *FileStore) List(name string) ([]backend.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dirEntries, err := os.ReadDir(s.namespaceDir(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read namespace directory: %w", err)
	}

	var records []backend.Record
	for _, de := range dirEntries {
		if de.IsDir() || filepath.Ext(de.Name()) != recordFileExtension {
			continue
		}
		rec, readErr := s.readRecord(filepath.Join(s.namespaceDir(name), de.Name()))
		if readErr != nil {
			return nil, readErr
		}
		records = append(records, rec)
	}
	return records, nil
}

// Put writes a record, overwriting any record under the same key. The
// write goes to a temporary file first, then renames into place.
func (s *FileStore) Put(name, key string, value []byte, meta backend.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := record{Key: key, Data: value}
	if !meta.CreatedAt.IsZero() {
		rec.CreatedAt = meta.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	data, err := json.MarshalIndent(&rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache record: %w", err)
	}

	filePath := s.keyToFilePath(name, key)
	tempPath := filePath + ".tmp"
	if writeErr := os.WriteFile(tempPath, data, 0600); writeErr != nil {
		return fmt.Errorf("failed to write cache file: %w", writeErr)
	}
	if renameErr := os.Rename(tempPath, filePath); renameErr != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename cache file: %w", renameErr)
	}
	return nil
}

// Get returns the record under key, or backend.ErrNoRecord if absent.
func (s *FileStore) Get(name, key string) (backend.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.readRecord(s.keyToFilePath(name, key))
	if err != nil {
		return backend.Record{}, err
	}
	// readRecord rebuilds the key from file contents; a foreign file may
	// not carry one, so fall back to the requested key.
	if rec.Key == "" {
		rec.Key = key
	}
	return rec, nil
}

// Delete removes the record under key. No-op if absent.
func (s *FileStore) Delete(name, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.keyToFilePath(name, key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}
	return nil
}

// Deregister is a no-op for the file backend: there is no per-namespace
// resource beyond the directory, which is left in place.
func (s *FileStore) Deregister(string) error {
	return nil
}

// Path reports the namespace's directory.
func (s *FileStore) Path(name string) string {
	return s.namespaceDir(name)
}

func (s *FileStore) namespaceDir(name string) string {
	return filepath.Join(s.root, sanitize(name))
}

// keyToFilePath converts a record key to a file path, sanitized for
// filesystem safety.
func (s *FileStore) keyToFilePath(name, key string) string {
	return filepath.Join(s.namespaceDir(name), sanitize(key)+recordFileExtension)
}

func sanitize(v string) string {
	v = strings.ReplaceAll(v, "/", "_")
	v = strings.ReplaceAll(v, "\\", "_")
	v = strings.ReplaceAll(v, ":", "_")
	return v
}

// readRecord loads one record file. A file that is not valid JSON, or
// whose created_at doesn't parse, yields a record with zero metadata.
func (s *FileStore) readRecord(filePath string) (backend.Record, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return backend.Record{}, backend.ErrNoRecord
		}
		return backend.Record{}, fmt.Errorf("failed to read cache file: %w", err)
	}

	var rec record
	if unmarshalErr := json.Unmarshal(data, &rec); unmarshalErr != nil {
		return backend.Record{Value: data}, nil
	}

	out := backend.Record{Key: rec.Key, Value: rec.Data}
	if rec.CreatedAt != "" {
		created, parseErr := time.Parse(time.RFC3339Nano, rec.CreatedAt)
		if parseErr == nil {
			out.Meta.CreatedAt = created
		}
	}
	return out, nil
}
