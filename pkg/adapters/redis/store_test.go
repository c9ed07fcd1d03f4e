package redis

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoomai/feedback/pkg/core"
)

// newTestStore connects to REDIS_ADDR with a random prefix so parallel runs
// never see each other's keys.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	s := Dial(Config{Addr: addr, Prefix: "feedback-test-" + uuid.NewString() + ":"})
	if err := s.Initialize(context.Background()); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := s.Keys(ctx, "")
		for _, k := range keys {
			_ = s.Clear(ctx, k)
		}
		_ = s.Close()
	})
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	blob, err := s.Load(ctx, "ai_feedback_app")
	require.NoError(t, err)
	assert.Nil(t, blob)

	require.NoError(t, s.Save(ctx, "ai_feedback_app", core.Blob{"s1": "accept"}))
	blob, err = s.Load(ctx, "ai_feedback_app")
	require.NoError(t, err)
	assert.Equal(t, core.Blob{"s1": "accept"}, blob)

	require.NoError(t, s.Clear(ctx, "ai_feedback_app"))
	blob, err = s.Load(ctx, "ai_feedback_app")
	require.NoError(t, err)
	assert.Nil(t, blob)
}

func TestStore_CorruptValue(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.client.Set(ctx, s.prefix+"ai_feedback_app", "{oops", 0).Err())
	blob, err := s.Load(ctx, "ai_feedback_app")
	require.NoError(t, err)
	assert.Nil(t, blob)
}

func TestStore_Keys(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, k := range []string{"ai_feedback_b", "ai_feedback_a", "theme"} {
		require.NoError(t, s.Save(ctx, k, core.Blob{}))
	}
	keys, err := s.Keys(ctx, "ai_feedback_*")
	require.NoError(t, err)
	assert.Equal(t, []string{"ai_feedback_a", "ai_feedback_b"}, keys)
}
