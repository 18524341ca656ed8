package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"wmguard/internal/guard"
)

// FileSystemStore implements guard.BlobStore on a local directory.
// Blob paths map to files under the root; a full disk surfaces as
// guard.ErrStorageExhausted.
type FileSystemStore struct {
	root string
}

var _ guard.BlobStore = (*FileSystemStore)(nil)

// NewFileSystemStore creates a store rooted at the given directory,
// creating it if needed.
func NewFileSystemStore(root string) (*FileSystemStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating blob root: %w", err)
	}
	return &FileSystemStore{root: root}, nil
}

func (f *FileSystemStore) Put(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", guard.ErrStorage, err)
	}
	full, err := f.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return classify(fmt.Errorf("creating blob directory: %w", err))
	}

	// Write to a temp file and rename so readers never see partial
	// content.
	tmp, err := os.CreateTemp(filepath.Dir(full), ".put-*")
	if err != nil {
		return classify(fmt.Errorf("creating temp file: %w", err))
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return classify(fmt.Errorf("writing blob: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return classify(fmt.Errorf("closing blob: %w", err))
	}
	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return classify(fmt.Errorf("publishing blob: %w", err))
	}
	return nil
}

func (f *FileSystemStore) Get(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", guard.ErrStorage, err)
	}
	full, err := f.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", guard.ErrStorage, path, err)
	}
	return data, nil
}

func (f *FileSystemStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", guard.ErrStorage, err)
	}
	full, err := f.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: deleting %s: %v", guard.ErrStorage, path, err)
	}
	return nil
}

// resolve maps a blob path to a file path, refusing escapes from the
// root.
func (f *FileSystemStore) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("%w: invalid blob path: %s", guard.ErrStorage, path)
	}
	return filepath.Join(f.root, clean), nil
}

// classify wraps capacity exhaustion in ErrStorageExhausted so callers
// can message "insufficient storage" distinctly.
func classify(err error) error {
	if errors.Is(err, syscall.ENOSPC) || errors.Is(err, syscall.EDQUOT) {
		return fmt.Errorf("%w: %v", guard.ErrStorageExhausted, err)
	}
	return fmt.Errorf("%w: %v", guard.ErrStorage, err)
}
