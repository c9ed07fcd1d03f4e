package lifecycle_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoomai/feedback/pkg/adapters/fs"
	"github.com/saferoomai/feedback/pkg/adapters/lifecycle"
	"github.com/saferoomai/feedback/pkg/core"
)

func TestSource_EmitsStoreChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	watched := fs.NewStore(fs.Config{Path: dir, Logger: logger})
	require.NoError(t, watched.Initialize(ctx))
	writer := fs.NewStore(fs.Config{Path: dir, Logger: logger})

	src := lifecycle.NewSource(watched, "")
	require.NoError(t, src.Start(ctx))
	assert.Error(t, src.Start(ctx), "second start")

	// The watcher attaches asynchronously; keep writing until it reports.
	deadline := time.After(3 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for i := 0; ; i++ {
		select {
		case e := <-src.Events():
			ev, ok := e.(core.Event)
			require.True(t, ok)
			assert.Equal(t, "ai_feedback_app", ev.Key)
			cancel()
			for range src.Events() {
			}
			return
		case <-tick.C:
			require.NoError(t, writer.Save(ctx, "ai_feedback_app", core.Blob{"s1": i}))
		case <-deadline:
			t.Fatal("timeout waiting for event")
		}
	}
}

func TestSource_BadPattern(t *testing.T) {
	ctx := context.Background()
	store := fs.NewStore(fs.Config{Path: t.TempDir()})
	require.NoError(t, store.Initialize(ctx))

	src := lifecycle.NewSource(store, "[")
	assert.ErrorIs(t, src.Start(ctx), core.ErrInvalidArgument)

	_, open := <-src.Events()
	assert.False(t, open)
}
