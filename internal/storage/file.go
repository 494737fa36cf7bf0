package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileBackend is the session-scoped tier: one JSON file per key under a
// machine-local directory. It survives a host restart but not a move to a
// different machine, which is as close as a headless host gets to
// tab-session scope.
type FileBackend struct {
	dir string
}

var _ Backend = (*FileBackend)(nil)

func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

// path hashes the key into a stable filename; keys contain characters that
// are not filesystem-safe.
func (b *FileBackend) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(b.dir, hex.EncodeToString(sum[:16])+".json")
}

func (b *FileBackend) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	data, err := os.ReadFile(b.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, true, nil
}

func (b *FileBackend) Set(_ context.Context, key string, value json.RawMessage) error {
	tmp := b.path(key) + ".tmp"
	if err := os.WriteFile(tmp, value, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := os.Rename(tmp, b.path(key)); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (b *FileBackend) Delete(_ context.Context, key string) error {
	err := os.Remove(b.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}
