package optimistic

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, time.Minute)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	bucket, err := store.Read(ctx, "session-1")
	require.NoError(t, err)
	assert.Empty(t, bucket)

	entry := Entry{
		ID:          "opt-1-abcd1234",
		Scope:       "session-1",
		Payload:     map[string]any{"text": "hello"},
		Direction:   DirectionOutbound,
		Provisional: true,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, store.Write(ctx, "session-1", func(b []Entry) []Entry {
		return append(b, entry)
	}))

	bucket, err = store.Read(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, bucket, 1)
	assert.Equal(t, entry.ID, bucket[0].ID)
	assert.True(t, bucket[0].Provisional)

	// Removing the only entry deletes the bucket key.
	require.NoError(t, store.Write(ctx, "session-1", func(b []Entry) []Entry {
		return nil
	}))
	bucket, err = store.Read(ctx, "session-1")
	require.NoError(t, err)
	assert.Empty(t, bucket)
}

func TestRedisStoreStaleFlag(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	stale, err := store.Stale(ctx, "session-1")
	require.NoError(t, err)
	assert.False(t, stale)

	require.NoError(t, store.Invalidate(ctx, "session-1"))
	stale, err = store.Stale(ctx, "session-1")
	require.NoError(t, err)
	assert.True(t, stale)

	require.NoError(t, store.Refresh(ctx, "session-1"))
	stale, err = store.Stale(ctx, "session-1")
	require.NoError(t, err)
	assert.False(t, stale)
}

func TestRedisStoreWithCoordinator(t *testing.T) {
	store := newRedisStore(t)
	coord := NewCoordinator(Config{Store: store, Schedule: func(time.Duration, func()) func() { return func() {} }})
	ctx := context.Background()

	entry, err := coord.Begin(ctx, "session-9", map[string]string{"text": "hi"})
	require.NoError(t, err)

	bucket, err := store.Read(ctx, "session-9")
	require.NoError(t, err)
	require.Len(t, bucket, 1)

	require.NoError(t, coord.Resolve(ctx, entry.ID, OutcomeSuccess))
	bucket, err = store.Read(ctx, "session-9")
	require.NoError(t, err)
	assert.Empty(t, bucket)

	stale, err := store.Stale(ctx, "session-9")
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestRedisStoreSweep(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	old := Entry{ID: "opt-1-old", Scope: "stale-scope", Provisional: true, CreatedAt: time.Now().Add(-2 * time.Hour)}
	fresh := Entry{ID: "opt-2-new", Scope: "live-scope", Provisional: true, CreatedAt: time.Now()}
	require.NoError(t, store.Write(ctx, "stale-scope", func(b []Entry) []Entry { return append(b, old) }))
	require.NoError(t, store.Write(ctx, "live-scope", func(b []Entry) []Entry { return append(b, fresh) }))

	removed, err := store.Sweep(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	bucket, err := store.Read(ctx, "stale-scope")
	require.NoError(t, err)
	assert.Empty(t, bucket)
	bucket, err = store.Read(ctx, "live-scope")
	require.NoError(t, err)
	assert.Len(t, bucket, 1)
}
