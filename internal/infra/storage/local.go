package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// LocalStorage deletes files from a filesystem. Relative paths resolve against root.
type LocalStorage struct {
	fs   afero.Fs
	root string
}

// NewLocalStorage returns a storage backed by the OS filesystem.
func NewLocalStorage(root string) *LocalStorage {
	return NewLocalStorageWithFs(afero.NewOsFs(), root)
}

// NewLocalStorageWithFs lets tests supply an in-memory filesystem.
func NewLocalStorageWithFs(fs afero.Fs, root string) *LocalStorage {
	if fs == nil {
		panic("filesystem cannot be nil for LocalStorage")
	}
	return &LocalStorage{fs: fs, root: root}
}

func (s *LocalStorage) resolve(path string) string {
	if filepath.IsAbs(path) || s.root == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(s.root, path)
}

func (s *LocalStorage) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path == "" {
		return nil
	}
	full := s.resolve(path)
	exists, err := afero.Exists(s.fs, full)
	if err != nil {
		return fmt.Errorf("storage: failed to stat %s: %w", full, err)
	}
	if !exists {
		return nil
	}
	if err := s.fs.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: failed to delete %s: %w", full, err)
	}
	return nil
}
