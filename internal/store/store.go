// Package store persists the seed document to a single JSON file.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bhandras/zenith/internal/seed"
)

// Store loads and saves the seed document.
type Store interface {
	Load() (seed.Record, error)
	Save(seed.Record) error
}

// LoadError reports that the seed could not be read or parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load seed %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// SaveError reports that the seed could not be written.
type SaveError struct {
	Path string
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save seed %s: %v", e.Path, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// FileStore keeps the seed in one pretty-printed JSON file.
type FileStore struct {
	Path string
}

// NewFileStore returns a store for the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load reads and parses the seed file.
func (s *FileStore) Load() (seed.Record, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, &LoadError{Path: s.Path, Err: err}
	}
	rec, err := seed.Decode(raw)
	if err != nil {
		return nil, &LoadError{Path: s.Path, Err: err}
	}
	return rec, nil
}

// Save overwrites the seed file with the indented form of rec.
//
// The document is written to a temporary file in the same directory, synced,
// and renamed over the target, so a crash mid-write leaves the previous
// contents intact.
func (s *FileStore) Save(rec seed.Record) error {
	body, err := rec.MarshalIndent()
	if err != nil {
		return &SaveError{Path: s.Path, Err: err}
	}
	body = append(body, '\n')

	if err := writeFileAtomic(s.Path, body, 0o644); err != nil {
		return &SaveError{Path: s.Path, Err: err}
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
