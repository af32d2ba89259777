package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps uploaded documents on the local filesystem. It is
// the default when no S3 endpoint is configured.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates the base directory if needed and returns a store.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// resolve maps a storage key to a path under baseDir, rejecting keys
// that would escape it.
func (s *LocalStore) resolve(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("storage key is required")
	}
	path := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if !strings.HasPrefix(path, filepath.Clean(s.baseDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage key %q escapes base directory", key)
	}
	return path, nil
}

// Put writes the document body under the given key and returns the
// number of bytes stored.
func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	path, err := s.resolve(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create storage subdir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	size, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(path)
		return 0, fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("failed to close file: %w", err)
	}

	return size, nil
}

// Fetch returns the on-disk path for the key. The file is already
// local, so cleanup is a no-op.
func (s *LocalStore) Fetch(ctx context.Context, key string) (string, func(), error) {
	noop := func() {}

	path, err := s.resolve(key)
	if err != nil {
		return "", noop, err
	}
	if _, err := os.Stat(path); err != nil {
		return "", noop, fmt.Errorf("failed to stat %q: %w", key, err)
	}
	return path, noop, nil
}

// Delete removes the stored document. Deleting a missing key is not an error.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}
