package configstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errsys "github.com/NexTeck/ExceptionHandler/pkg/errors"
	"github.com/NexTeck/ExceptionHandler/pkg/logger"
)

type settings struct {
	Name    string
	Retries int
	Tags    []string
}

func defaultSettings() *settings {
	return &settings{Name: "default", Retries: 3}
}

func newBackends(t *testing.T) map[string]Backend {
	t.Helper()

	dir := t.TempDir()

	sqlite, err := NewSQLiteBackend(SQLiteConfig{Path: filepath.Join(dir, "store.db")})
	require.NoError(t, err)

	badger, err := NewBadgerBackend(BadgerConfig{InMemory: true})
	require.NoError(t, err)

	backends := map[string]Backend{
		"file":   NewFileBackend(filepath.Join(dir, "files")),
		"sqlite": sqlite,
		"badger": badger,
	}
	t.Cleanup(func() {
		for _, b := range backends {
			b.Close()
		}
	})
	return backends
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, backend := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := New[settings](backend, GobCodec{}, "Settings", WithLogger(logger.Discard()))

			want := &settings{Name: "ledger", Retries: 7, Tags: []string{"a", "b"}}
			require.NoError(t, s.Save(ctx, want))

			got, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			// Save replaces the whole entry
			require.NoError(t, s.Save(ctx, &settings{Name: "second"}))
			got, err = s.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, "second", got.Name)
			assert.Zero(t, got.Retries)
			assert.Empty(t, got.Tags)
		})
	}
}

func TestStore_LoadMissing(t *testing.T) {
	ctx := context.Background()

	for name, backend := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := New[settings](backend, nil, "Missing", WithLogger(logger.Discard()))

			v, err := s.Load(ctx)
			assert.Nil(t, v)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNotFound)

			var se *StoreError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, KindNotFound, se.Kind)
			assert.Equal(t, errsys.CodeNotFound, errsys.Classify(err))
		})
	}
}

func TestStore_LoadOrCreatePersistsDefault(t *testing.T) {
	ctx := context.Background()

	for name, backend := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := New[settings](backend, nil, "Defaults", WithLogger(logger.Discard()))

			v, err := s.LoadOrCreate(ctx, defaultSettings)
			require.NoError(t, err)
			assert.Equal(t, defaultSettings(), v)

			loaded, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, defaultSettings(), loaded)
		})
	}
}

func TestStore_LoadOrCreateKeepsExisting(t *testing.T) {
	ctx := context.Background()
	s := New[settings](NewFileBackend(t.TempDir()), nil, "Existing", WithLogger(logger.Discard()))

	require.NoError(t, s.Save(ctx, &settings{Name: "kept"}))

	v, err := s.LoadOrCreate(ctx, defaultSettings)
	require.NoError(t, err)
	assert.Equal(t, "kept", v.Name)
}

func TestStore_CorruptEntryIsReplaced(t *testing.T) {
	ctx := context.Background()

	for name, backend := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := New[settings](backend, nil, "Corrupt", WithLogger(logger.Discard()))

			require.NoError(t, backend.Write(ctx, "Corrupt", []byte("definitely not gob")))

			_, err := s.Load(ctx)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCorrupt)
			assert.Equal(t, errsys.CodeCorrupt, errsys.Classify(err))

			v, err := s.LoadOrCreate(ctx, defaultSettings)
			require.NoError(t, err)
			assert.Equal(t, defaultSettings(), v)

			loaded, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, defaultSettings(), loaded)
		})
	}
}

func TestStore_TOMLCodec(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	backend := NewFileBackend(dir, WithExtension(".toml"))
	s := New[settings](backend, TOMLCodec{}, "app", WithLogger(logger.Discard()))

	require.NoError(t, s.Save(ctx, &settings{Name: "toml", Retries: 2}))

	raw, err := os.ReadFile(filepath.Join(dir, "app.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `Name = "toml"`)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "toml", got.Name)
	assert.Equal(t, 2, got.Retries)
}

// failingBackend never finds anything and never manages to write
type failingBackend struct {
	writes int
}

func (b *failingBackend) Read(context.Context, string) ([]byte, error) {
	return nil, ErrNotFound
}

func (b *failingBackend) Write(context.Context, string, []byte) error {
	b.writes++
	return errors.New("disk full")
}

func (b *failingBackend) Close() error { return nil }

func TestStore_LoadOrCreateSaveFailure(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{}

	var calls int
	var s *Store[settings]
	s = New[settings](backend, nil, "Broken",
		WithLogger(logger.Discard()),
		WithOnSaveFailure(func(key string, err error) {
			calls++
			assert.Equal(t, "Broken", key)
			assert.ErrorIs(t, err, ErrIO)

			// Re-entering from the hook must not call the hook again
			v, nested := s.LoadOrCreate(ctx, defaultSettings)
			assert.NotNil(t, v)
			assert.Error(t, nested)
		}),
	)

	v, err := s.LoadOrCreate(ctx, defaultSettings)
	require.NotNil(t, v)
	assert.Equal(t, defaultSettings(), v)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIO)
	assert.Equal(t, errsys.CodeStoreIO, errsys.Classify(err))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, backend.writes)

	// The guard is released once the hook returns
	_, _ = s.LoadOrCreate(ctx, defaultSettings)
	assert.Equal(t, 2, calls)
}

func TestStore_NilDefaultBecomesZeroValue(t *testing.T) {
	ctx := context.Background()
	s := New[settings](NewFileBackend(t.TempDir()), nil, "Zero", WithLogger(logger.Discard()))

	v, err := s.LoadOrCreate(ctx, func() *settings { return nil })
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, settings{}, *v)
}

func TestFileBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := NewFileBackend(dir)

	assert.Equal(t, filepath.Join(dir, "ErrorLog.bin"), b.Path("ErrorLog"))

	_, err := b.Read(ctx, "ErrorLog")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Write(ctx, "ErrorLog", []byte("one")))
	require.NoError(t, b.Write(ctx, "ErrorLog", []byte("two")))

	data, err := b.Read(ctx, "ErrorLog")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), data)

	// No temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	assert.Error(t, b.Write(ctx, "../escape", []byte("x")))
	assert.Error(t, b.Write(ctx, "", []byte("x")))
}

func TestSQLiteBackend_Keys(t *testing.T) {
	ctx := context.Background()
	b, err := NewSQLiteBackend(SQLiteConfig{Path: filepath.Join(t.TempDir(), "keys.db")})
	require.NoError(t, err)

	require.NoError(t, b.Write(ctx, "b", []byte("2")))
	require.NoError(t, b.Write(ctx, "a", []byte("1")))

	keys, err := b.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	require.NoError(t, b.Close())
	_, err = b.Read(ctx, "a")
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, b.Close())
}

func TestOpenBackend(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		kind    string
		path    string
		wantErr bool
	}{
		{kind: "", path: dir},
		{kind: BackendFile, path: dir},
		{kind: BackendSQLite, path: filepath.Join(dir, "open.db")},
		{kind: BackendBadger, path: filepath.Join(dir, "badger")},
		{kind: "etcd", path: dir, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			b, err := OpenBackend(tt.kind, tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, b.Close())
		})
	}
}

func TestCodecByName(t *testing.T) {
	c, ok := CodecByName("")
	require.True(t, ok)
	assert.Equal(t, "gob", c.Name())

	c, ok = CodecByName("toml")
	require.True(t, ok)
	assert.Equal(t, "toml", c.Name())

	_, ok = CodecByName("yaml")
	assert.False(t, ok)
}

// unreadableBackend fails reads with an I/O error
type unreadableBackend struct {
	writes int
}

func (b *unreadableBackend) Read(context.Context, string) ([]byte, error) {
	return nil, errors.New("input/output error")
}

func (b *unreadableBackend) Write(context.Context, string, []byte) error {
	b.writes++
	return nil
}

func (b *unreadableBackend) Close() error { return nil }

func TestStore_LoadOrCreateReadFailureKeepsEntry(t *testing.T) {
	backend := &unreadableBackend{}
	s := New[settings](backend, nil, "Unreadable", WithLogger(logger.Discard()))

	v, err := s.LoadOrCreate(context.Background(), defaultSettings)
	require.NotNil(t, v)
	assert.Equal(t, defaultSettings(), v)
	assert.ErrorIs(t, err, ErrIO)
	assert.Zero(t, backend.writes)
}

func TestStore_DecodeOnto(t *testing.T) {
	ctx := context.Background()
	backend := NewFileBackend(t.TempDir(), WithExtension(".toml"))
	require.NoError(t, backend.Write(ctx, "partial", []byte(`Name = "partial"`)))

	s := New[settings](backend, TOMLCodec{}, "partial", WithLogger(logger.Discard())).
		DecodeOnto(defaultSettings)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "partial", got.Name)
	assert.Equal(t, 3, got.Retries)
}
