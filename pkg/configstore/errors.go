package configstore

import (
	"errors"
	"fmt"

	errsys "github.com/NexTeck/ExceptionHandler/pkg/errors"
)

var (
	// ErrNotFound is returned by Load when no entry exists for the key
	ErrNotFound = errors.New("configuration entry not found")
	// ErrCorrupt is returned by Load when stored bytes cannot be decoded
	ErrCorrupt = errors.New("configuration entry corrupt")
	// ErrIO is returned when the backend cannot be read or written
	ErrIO = errors.New("configuration store I/O failure")
	// ErrClosed is returned by a backend after Close
	ErrClosed = errors.New("configuration store closed")
)

// Kind classifies a StoreError
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindCorrupt
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindCorrupt:
		return "corrupt"
	case KindIO:
		return "io failure"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindCorrupt:
		return ErrCorrupt
	default:
		return ErrIO
	}
}

// StoreError describes a failed store operation on one key
type StoreError struct {
	Op   string // "load" or "save"
	Key  string
	Kind Kind
	Err  error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Key, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Key, e.Kind)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind
func (e *StoreError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// FailureCode maps the error's kind to its registered failure code
func (e *StoreError) FailureCode() string {
	switch e.Kind {
	case KindNotFound:
		return errsys.CodeNotFound
	case KindCorrupt:
		return errsys.CodeCorrupt
	default:
		return errsys.CodeStoreIO
	}
}

func storeErr(op, key string, kind Kind, err error) *StoreError {
	return &StoreError{Op: op, Key: key, Kind: kind, Err: err}
}
