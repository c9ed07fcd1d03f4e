package fs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoomai/feedback/pkg/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(Config{
		Path:   t.TempDir(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, s.Initialize(context.Background()))
	return s
}

func TestStore_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	blob, err := s.Load(ctx, "ai_feedback_app")
	require.NoError(t, err)
	assert.Nil(t, blob, "absent key must load as nil")

	require.NoError(t, s.Save(ctx, "ai_feedback_app", core.Blob{"s1": "accept", "s2": "reject"}))

	blob, err = s.Load(ctx, "ai_feedback_app")
	require.NoError(t, err)
	assert.Equal(t, core.Blob{"s1": "accept", "s2": "reject"}, blob)

	require.NoError(t, s.Clear(ctx, "ai_feedback_app"))
	blob, err = s.Load(ctx, "ai_feedback_app")
	require.NoError(t, err)
	assert.Nil(t, blob)

	// Clearing twice is not an error.
	require.NoError(t, s.Clear(ctx, "ai_feedback_app"))
}

func TestStore_LoadMalformed(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for name, content := range map[string]string{
		"garbage":    "{not json",
		"array":      `["s1"]`,
		"empty file": "",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(s.Path, "ai_feedback_broken"+FileExt)
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))

			blob, err := s.Load(ctx, "ai_feedback_broken")
			require.NoError(t, err)
			assert.Nil(t, blob)
		})
	}
}

func TestStore_LoadReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Save(ctx, "k", core.Blob{"s1": "accept"}))

	first, err := s.Load(ctx, "k")
	require.NoError(t, err)
	first["s1"] = "tampered"

	second, err := s.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "accept", second["s1"])
}

func TestStore_CacheInvalidatedByExternalWrite(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Save(ctx, "k", core.Blob{"s1": "accept"}))
	_, err := s.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, s.cache.Len())

	// Another process rewrites the file with a different size and mtime.
	path := filepath.Join(s.Path, "k"+FileExt)
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.WriteFile(path, []byte(`{"s1":"reject","s2":"accept"}`), 0644))
	require.NoError(t, os.Chtimes(path, future, future))

	blob, err := s.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, core.Blob{"s1": "reject", "s2": "accept"}, blob)
}

func TestStore_InvalidKeys(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, key := range []string{"", ".", "..", "a/b", `a\b`} {
		_, err := s.Load(ctx, key)
		assert.True(t, errors.Is(err, core.ErrInvalidArgument), "key %q", key)
		err = s.Save(ctx, key, core.Blob{})
		assert.True(t, errors.Is(err, core.ErrInvalidArgument), "key %q", key)
	}
}

func TestStore_ReadOnly(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "k"+FileExt), []byte(`{"s1":"accept"}`), 0644))

	s := NewStore(Config{Path: dir, ReadOnly: true})
	require.NoError(t, s.Initialize(ctx))

	blob, err := s.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "accept", blob["s1"])

	assert.ErrorIs(t, s.Save(ctx, "k", core.Blob{}), core.ErrReadOnly)
	assert.ErrorIs(t, s.Clear(ctx, "k"), core.ErrReadOnly)
}

func TestStore_InitializeMustExist(t *testing.T) {
	s := NewStore(Config{Path: filepath.Join(t.TempDir(), "missing"), MustExist: true})
	assert.Error(t, s.Initialize(context.Background()))

	s = NewStore(Config{Path: filepath.Join(t.TempDir(), "created")})
	require.NoError(t, s.Initialize(context.Background()))
	info, err := os.Stat(s.Path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestStore_Keys(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, key := range []string{"ai_feedback_b", "ai_feedback_a", "other"} {
		require.NoError(t, s.Save(ctx, key, core.Blob{}))
	}
	// Stray files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(s.Path, "notes.txt"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(s.Path, TempFilePrefix+"123"), nil, 0644))

	keys, err := s.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"ai_feedback_a", "ai_feedback_b", "other"}, keys)

	keys, err = s.Keys(ctx, core.StorageKeyPrefix+"*")
	require.NoError(t, err)
	assert.Equal(t, []string{"ai_feedback_a", "ai_feedback_b"}, keys)

	_, err = s.Keys(ctx, "[")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestStore_State(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Save(ctx, "k", core.Blob{"s1": "accept"}))

	state, ok := s.State().(StoreState)
	require.True(t, ok)
	assert.Equal(t, s.Path, state.Path)
	assert.Equal(t, 1, state.CacheSize)
	assert.False(t, state.WatcherActive)
	assert.Nil(t, state.LastEvent)
	assert.Equal(t, "fs", s.ComponentType())
}
