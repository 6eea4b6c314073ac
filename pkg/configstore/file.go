package configstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileBackend keeps each key in its own file, <dir>/<key><ext>
type FileBackend struct {
	dir string
	ext string
}

// FileOption configures a FileBackend
type FileOption func(*FileBackend)

// WithExtension sets the file extension, ".bin" by default
func WithExtension(ext string) FileOption {
	return func(b *FileBackend) {
		b.ext = ext
	}
}

// NewFileBackend creates a file backend rooted at dir ("." when empty)
func NewFileBackend(dir string, opts ...FileOption) *FileBackend {
	if dir == "" {
		dir = "."
	}
	b := &FileBackend{dir: dir, ext: ".bin"}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Path returns the file path used for key
func (b *FileBackend) Path(key string) string {
	return filepath.Join(b.dir, key+b.ext)
}

// Dir returns the backend's root directory
func (b *FileBackend) Dir() string {
	return b.dir
}

func (b *FileBackend) Read(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(b.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.Path(key), err)
	}
	return data, nil
}

// Write replaces the file through a temp file and rename, so readers see
// either the old or the new content.
func (b *FileBackend) Write(ctx context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(b.dir, 0750); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(b.dir, "."+key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, b.Path(key)); err != nil {
		return fmt.Errorf("replace %s: %w", b.Path(key), err)
	}
	return nil
}

// Close is a no-op for the file backend
func (b *FileBackend) Close() error {
	return nil
}
