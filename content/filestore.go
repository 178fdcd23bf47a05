package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore implements Store on the local filesystem.
// Files live at {baseDir}/{hex(fp[:1])}/{hex(fp)}; the first byte shards
// the directory.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a file-based content store, creating baseDir if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		return nil, ErrInvalidBaseDir
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// Path returns where content for fp is kept under baseDir.
func Path(baseDir string, fp Fingerprint) string {
	h := fp.String()
	return filepath.Join(baseDir, h[:2], h)
}

// Put stores data under its fingerprint.
func (s *FileStore) Put(_ context.Context, data []byte) (Fingerprint, error) {
	if len(data) == 0 {
		return Fingerprint{}, ErrEmptyContent
	}
	fp := Sum(data)
	path := Path(s.baseDir, fp)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(path); err == nil {
		return fp, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fp, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	// Write to a temp file and rename so readers never see a partial file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fp, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fp, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return fp, nil
}

// Get returns the content for fp.
func (s *FileStore) Get(_ context.Context, fp Fingerprint) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(Path(s.baseDir, fp))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, fp)
		}
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	if err := verify(fp, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Has reports whether content for fp exists.
func (s *FileStore) Has(_ context.Context, fp Fingerprint) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(Path(s.baseDir, fp))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return true, nil
}
