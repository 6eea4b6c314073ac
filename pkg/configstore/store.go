package configstore

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/NexTeck/ExceptionHandler/pkg/logger"
)

// SaveFailureFunc is notified when LoadOrCreate could not persist a default
type SaveFailureFunc func(key string, err error)

// Store persists one value of type T under a fixed key
type Store[T any] struct {
	backend Backend
	codec   Codec
	key     string
	log     *logger.Logger

	onSaveFailure SaveFailureFunc
	inHook        atomic.Bool

	base func() *T
}

// Option configures a Store
type Option func(*options)

type options struct {
	log           *logger.Logger
	onSaveFailure SaveFailureFunc
}

// WithLogger sets the logger used for recovery events
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithOnSaveFailure sets the hook called when a default cannot be persisted
func WithOnSaveFailure(fn SaveFailureFunc) Option {
	return func(o *options) {
		o.onSaveFailure = fn
	}
}

// New creates a store for key. A nil codec selects GobCodec.
func New[T any](backend Backend, codec Codec, key string, opts ...Option) *Store[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Global().WithComponent("configstore")
	}
	if codec == nil {
		codec = GobCodec{}
	}

	return &Store[T]{
		backend:       backend,
		codec:         codec,
		key:           key,
		log:           o.log,
		onSaveFailure: o.onSaveFailure,
	}
}

// DecodeOnto makes Load decode onto a fresh value from fn instead of the
// zero value, so fields absent from the stored entry keep fn's values.
func (s *Store[T]) DecodeOnto(fn func() *T) *Store[T] {
	s.base = fn
	return s
}

// Key returns the store's key
func (s *Store[T]) Key() string {
	return s.key
}

// Backend returns the underlying backend
func (s *Store[T]) Backend() Backend {
	return s.backend
}

// Save serializes v and fully replaces the stored entry
func (s *Store[T]) Save(ctx context.Context, v *T) error {
	if v == nil {
		var zero T
		v = &zero
	}

	data, err := s.codec.Marshal(v)
	if err != nil {
		return storeErr("save", s.key, KindIO, err)
	}
	if err := s.backend.Write(ctx, s.key, data); err != nil {
		return storeErr("save", s.key, KindIO, err)
	}
	return nil
}

// Load reads and decodes the stored entry into a fresh value
func (s *Store[T]) Load(ctx context.Context) (*T, error) {
	data, err := s.backend.Read(ctx, s.key)
	if errors.Is(err, ErrNotFound) {
		return nil, storeErr("load", s.key, KindNotFound, nil)
	}
	if err != nil {
		return nil, storeErr("load", s.key, KindIO, err)
	}

	var v *T
	if s.base != nil {
		v = s.base()
	}
	if v == nil {
		v = new(T)
	}
	if err := s.codec.Unmarshal(data, v); err != nil {
		return nil, storeErr("load", s.key, KindCorrupt, err)
	}
	return v, nil
}

// LoadOrCreate returns the stored value, or a default from makeDefault when
// the entry is missing or corrupt. The default overwrites the stored entry.
// The returned value is never nil; the error is non-nil only when the default
// could not be persisted or the backend could not be read. A read failure
// leaves the stored entry untouched.
func (s *Store[T]) LoadOrCreate(ctx context.Context, makeDefault func() *T) (*T, error) {
	v, err := s.Load(ctx)
	if err == nil {
		return v, nil
	}

	def := makeDefault()
	if def == nil {
		def = new(T)
	}

	switch {
	case errors.Is(err, ErrNotFound):
		s.log.Debug("creating default entry", "key", s.key)
	case errors.Is(err, ErrCorrupt):
		s.log.Warn("stored entry corrupt, replacing with default", "key", s.key, "error", err)
	default:
		// The entry may still be intact; do not overwrite it
		s.log.Error("failed to read stored entry", "key", s.key, "error", err)
		return def, err
	}

	if saveErr := s.Save(ctx, def); saveErr != nil {
		s.log.Error("failed to persist default entry", "key", s.key, "error", saveErr)
		s.notifySaveFailure(saveErr)
		return def, saveErr
	}
	return def, nil
}

// notifySaveFailure runs the hook unless it is already running, so a hook
// that re-enters LoadOrCreate cannot recurse.
func (s *Store[T]) notifySaveFailure(err error) {
	if s.onSaveFailure == nil {
		return
	}
	if !s.inHook.CompareAndSwap(false, true) {
		return
	}
	defer s.inHook.Store(false)
	s.onSaveFailure(s.key, err)
}

// Close closes the backend
func (s *Store[T]) Close() error {
	return s.backend.Close()
}
