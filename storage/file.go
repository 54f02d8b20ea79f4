package storage

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
)

// FileStore persists each key as a file under a directory. It suits
// single-host tools and development; use the redis backend when state must
// be shared between hosts.
type FileStore struct {
	dir    string
	closed atomic.Bool
}

var _ Storage = (*FileStore)(nil)

// NewFileStore creates a file-backed store rooted at dir. The directory is
// created lazily on the first Set.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, NewConfigError("file.dir", "directory is required", nil)
	}
	return &FileStore{dir: dir}, nil
}

// filename maps a key to a path under the store directory. Keys are escaped
// so a key cannot name a file outside dir.
func (s *FileStore) filename(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key))
}

// Get retrieves the value stored under key.
func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	data, err := os.ReadFile(s.filename(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, NewOperationError("get", key, err)
	}
	return data, nil
}

// Set stores a value under key.
func (s *FileStore) Set(_ context.Context, key string, value []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return NewOperationError("set", key, err)
	}
	if err := os.WriteFile(s.filename(key), value, 0o600); err != nil {
		return NewOperationError("set", key, err)
	}
	return nil
}

// Delete removes the value stored under key.
func (s *FileStore) Delete(_ context.Context, key string) error {
	if s.closed.Load() {
		return ErrClosed
	}

	if err := os.Remove(s.filename(key)); err != nil && !os.IsNotExist(err) {
		return NewOperationError("delete", key, err)
	}
	return nil
}

// Close marks the store closed. Close is idempotent.
func (s *FileStore) Close() error {
	s.closed.Store(true)
	return nil
}
