package sql

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoomai/feedback/pkg/core"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "feedback.db")})
	require.NoError(t, err)
	require.NoError(t, s.Initialize(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	blob, err := s.Load(ctx, "ai_feedback_app")
	require.NoError(t, err)
	assert.Nil(t, blob)

	require.NoError(t, s.Save(ctx, "ai_feedback_app", core.Blob{"s1": "accept"}))
	require.NoError(t, s.Save(ctx, "ai_feedback_app", core.Blob{"s1": "reject", "s2": "accept"}))

	blob, err = s.Load(ctx, "ai_feedback_app")
	require.NoError(t, err)
	assert.Equal(t, core.Blob{"s1": "reject", "s2": "accept"}, blob)

	require.NoError(t, s.Clear(ctx, "ai_feedback_app"))
	blob, err = s.Load(ctx, "ai_feedback_app")
	require.NoError(t, err)
	assert.Nil(t, blob)
	require.NoError(t, s.Clear(ctx, "ai_feedback_app"))
}

func TestStore_CorruptValue(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	require.NoError(t, s.db.Create(&blobRow{Key: "ai_feedback_app", Value: "{oops"}).Error)
	blob, err := s.Load(ctx, "ai_feedback_app")
	require.NoError(t, err)
	assert.Nil(t, blob)
}

func TestStore_Keys(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	for _, k := range []string{"ai_feedback_b", "ai_feedback_a", "theme"} {
		require.NoError(t, s.Save(ctx, k, nil))
	}
	keys, err := s.Keys(ctx, "ai_feedback_*")
	require.NoError(t, err)
	assert.Equal(t, []string{"ai_feedback_a", "ai_feedback_b"}, keys)

	_, err = s.Keys(ctx, "[")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestStore_ConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Save(ctx, "ai_feedback_app", core.Blob{"s1": "accept"}))
		}()
	}
	wg.Wait()

	keys, err := s.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"ai_feedback_app"}, keys)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestStore_ComponentType(t *testing.T) {
	s := setupTestStore(t)
	assert.Equal(t, "sql/sqlite", s.ComponentType())
}
