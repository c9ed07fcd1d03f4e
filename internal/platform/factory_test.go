package platform_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoomai/feedback/internal/fakeapi"
	"github.com/saferoomai/feedback/internal/platform"
	"github.com/saferoomai/feedback/pkg/adapters/fs"
	"github.com/saferoomai/feedback/pkg/adapters/memory"
	"github.com/saferoomai/feedback/pkg/core"
	"github.com/saferoomai/feedback/pkg/transport"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestNew_FSPersistsAcrossInstances(t *testing.T) {
	api := fakeapi.New()
	srv := api.Start(t)
	dir := t.TempDir()
	ctx := context.Background()

	opts := []platform.Option{
		platform.WithLogger(quiet),
		platform.WithStorePath(dir),
		platform.WithBaseURL(srv.URL),
		platform.WithContextProvider(transport.StaticContext("test", "80x24")),
	}

	coord, err := platform.New("anomalies", opts...)
	require.NoError(t, err)
	_, err = coord.RecordDecision(ctx, "a-1", core.Accepted, "anomaly", nil)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, core.StorageKey("anomalies")+fs.FileExt))
	require.NoError(t, err, "state must be persisted under the namespace key")

	// A fresh instance (a "page reload") sees the same state.
	reloaded, err := platform.New("anomalies", opts...)
	require.NoError(t, err)
	d, ok := reloaded.CurrentDecision("a-1")
	require.True(t, ok)
	assert.Equal(t, core.Accepted, d)

	// Another namespace is isolated.
	other, err := platform.New("alerts", opts...)
	require.NoError(t, err)
	assert.False(t, other.HasDecision("a-1"))
}

func TestNew_AdapterSelection(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		coord, err := platform.New("ns", platform.WithAdapter(platform.AdapterMemory), platform.WithLogger(quiet))
		require.NoError(t, err)
		assert.Equal(t, "memory", coord.State().(core.CoordinatorState).StoreType)
	})

	t.Run("sql", func(t *testing.T) {
		dsn := filepath.Join(t.TempDir(), "feedback.db")
		coord, err := platform.New("ns",
			platform.WithAdapter(platform.AdapterSQL),
			platform.WithSQL("sqlite", dsn),
			platform.WithLogger(quiet),
		)
		require.NoError(t, err)
		t.Cleanup(func() { _ = coord.Close() })
		assert.Equal(t, "sql/sqlite", coord.State().(core.CoordinatorState).StoreType)
	})

	t.Run("sql without dsn", func(t *testing.T) {
		_, err := platform.New("ns", platform.WithAdapter(platform.AdapterSQL), platform.WithLogger(quiet))
		assert.ErrorIs(t, err, core.ErrInvalidArgument)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := platform.New("ns", platform.WithAdapter("s3"))
		assert.Error(t, err)
	})

	t.Run("injected", func(t *testing.T) {
		store := memory.New(quiet)
		store.SetRaw(core.StorageKey("ns"), []byte(`{"x":"reject"}`))
		coord, err := platform.New("ns", platform.WithStore(store), platform.WithLogger(quiet))
		require.NoError(t, err)
		assert.True(t, coord.HasDecision("x"))
	})
}

func TestNew_InvalidNamespace(t *testing.T) {
	_, err := platform.New("../etc", platform.WithAdapter(platform.AdapterMemory))
	assert.True(t, errors.Is(err, core.ErrInvalidArgument))
}

func TestOpenStore_DevSafety(t *testing.T) {
	ctx := context.Background()

	t.Run("relative path is sandboxed under go test", func(t *testing.T) {
		store, err := platform.OpenStore(ctx, platform.WithStorePath("sandboxed-store"), platform.WithLogger(quiet))
		require.NoError(t, err)
		fsStore := store.(*fs.Store)
		assert.Equal(t, filepath.Join(os.TempDir(), platform.DevSandboxDir, "sandboxed-store"), fsStore.Path)
		t.Cleanup(func() { _ = os.RemoveAll(fsStore.Path) })
	})

	t.Run("read-only bypasses the sandbox", func(t *testing.T) {
		dir := t.TempDir()
		store, err := platform.OpenStore(ctx, platform.WithStorePath(dir), platform.WithReadOnly(true))
		require.NoError(t, err)
		assert.Equal(t, dir, store.(*fs.Store).Path)
		assert.ErrorIs(t, store.Save(ctx, "k", nil), core.ErrReadOnly)
	})

	t.Run("must exist", func(t *testing.T) {
		_, err := platform.OpenStore(ctx,
			platform.WithStorePath(filepath.Join(t.TempDir(), "missing")),
			platform.WithMustExist(true),
		)
		assert.Error(t, err)
	})
}

func TestNewTransport(t *testing.T) {
	api := fakeapi.New()
	srv := api.Start(t)

	client := platform.NewTransport(platform.WithBaseURL(srv.URL), platform.WithLogger(quiet))
	stats, err := client.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.RemoteStats{}, stats)
}
