package configstore

import (
	"context"
	"fmt"
	"strings"
)

// Backend stores one opaque blob per key
type Backend interface {
	// Read returns ErrNotFound when no blob exists for key
	Read(ctx context.Context, key string) ([]byte, error)
	// Write replaces the blob for key
	Write(ctx context.Context, key string, data []byte) error
	Close() error
}

// Backend kinds accepted by OpenBackend
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// OpenBackend opens a backend of the given kind. For "file" path is a
// directory; for "sqlite" a database file; for "badger" a database directory.
func OpenBackend(kind, path string) (Backend, error) {
	switch kind {
	case "", BackendFile:
		return NewFileBackend(path), nil
	case BackendSQLite:
		return NewSQLiteBackend(SQLiteConfig{Path: path})
	case BackendBadger:
		return NewBadgerBackend(BadgerConfig{Path: path})
	default:
		return nil, fmt.Errorf("unknown store backend %q", kind)
	}
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty store key")
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("invalid store key %q", key)
	}
	return nil
}
