package optimistic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScheduler captures expiry callbacks so tests can fire them manually.
type fakeScheduler struct {
	fns      []func()
	canceled int
}

func (f *fakeScheduler) schedule(d time.Duration, fn func()) func() {
	f.fns = append(f.fns, fn)
	return func() { f.canceled++ }
}

func (f *fakeScheduler) fireAll() {
	for _, fn := range f.fns {
		fn()
	}
	f.fns = nil
}

func newTestCoordinator(t *testing.T, store Store, sched *fakeScheduler, onFailure func(Entry)) *Coordinator {
	t.Helper()
	cfg := Config{Store: store, OnFailure: onFailure}
	if sched != nil {
		cfg.Schedule = sched.schedule
	}
	return NewCoordinator(cfg)
}


func staleFlag(t *testing.T, store *MemoryStore, scope string) bool {
	t.Helper()
	stale, err := store.Stale(context.Background(), scope)
	require.NoError(t, err)
	return stale
}

func TestBeginInsertsProvisionalEntry(t *testing.T) {
	store := NewMemoryStore()
	coord := newTestCoordinator(t, store, &fakeScheduler{}, nil)

	ctx := context.Background()
	entry, err := coord.Begin(ctx, "session-42", map[string]string{"text": "hi"})
	require.NoError(t, err)

	assert.True(t, entry.Provisional)
	assert.Equal(t, DirectionOutbound, entry.Direction)
	assert.Equal(t, "session-42", entry.Scope)
	assert.NotEmpty(t, entry.ID)

	bucket, err := store.Read(ctx, "session-42")
	require.NoError(t, err)
	require.Len(t, bucket, 1)
	assert.Equal(t, entry.ID, bucket[0].ID)
	assert.False(t, staleFlag(t, store, "session-42"))
}

func TestBeginRequiresScope(t *testing.T) {
	coord := newTestCoordinator(t, NewMemoryStore(), &fakeScheduler{}, nil)
	_, err := coord.Begin(context.Background(), "", "payload")
	assert.ErrorIs(t, err, ErrScopeRequired)
}

func TestResolveSuccessInvalidatesScope(t *testing.T) {
	store := NewMemoryStore()
	coord := newTestCoordinator(t, store, &fakeScheduler{}, nil)
	ctx := context.Background()

	entry, err := coord.Begin(ctx, "session-42", "hello")
	require.NoError(t, err)
	require.NoError(t, coord.Resolve(ctx, entry.ID, OutcomeSuccess))

	bucket, err := store.Read(ctx, "session-42")
	require.NoError(t, err)
	assert.Empty(t, bucket)
	assert.True(t, staleFlag(t, store, "session-42"), "success must flag the scope for refetch")
	assert.False(t, coord.Pending(entry.ID))
}

func TestResolveFailureRollsBackSilently(t *testing.T) {
	store := NewMemoryStore()
	var failures []Entry
	coord := newTestCoordinator(t, store, &fakeScheduler{}, func(e Entry) { failures = append(failures, e) })
	ctx := context.Background()

	entry, err := coord.Begin(ctx, "session-42", "hello")
	require.NoError(t, err)
	require.NoError(t, coord.Resolve(ctx, entry.ID, OutcomeFailure))

	bucket, err := store.Read(ctx, "session-42")
	require.NoError(t, err)
	assert.Empty(t, bucket)
	assert.False(t, staleFlag(t, store, "session-42"), "failure must not trigger a refetch")
	require.Len(t, failures, 1)
	assert.Equal(t, entry.ID, failures[0].ID)
}

func TestResolveIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	var failures int
	coord := newTestCoordinator(t, store, &fakeScheduler{}, func(Entry) { failures++ })
	ctx := context.Background()

	entry, err := coord.Begin(ctx, "session-42", "hello")
	require.NoError(t, err)

	require.NoError(t, coord.Resolve(ctx, entry.ID, OutcomeFailure))
	first, err := store.Read(ctx, "session-42")
	require.NoError(t, err)

	// Second resolution must be a no-op in every observable way.
	require.NoError(t, coord.Resolve(ctx, entry.ID, OutcomeFailure))
	require.NoError(t, coord.Resolve(ctx, entry.ID, OutcomeSuccess))
	second, err := store.Read(ctx, "session-42")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, failures, "OnFailure fires exactly once")
	assert.False(t, staleFlag(t, store, "session-42"), "late success on a resolved id must not invalidate")
}

func TestExpiryRemovesEntry(t *testing.T) {
	store := NewMemoryStore()
	sched := &fakeScheduler{}
	var failures []Entry
	coord := newTestCoordinator(t, store, sched, func(e Entry) { failures = append(failures, e) })
	ctx := context.Background()

	entry, err := coord.Begin(ctx, "session-42", "hello")
	require.NoError(t, err)
	require.Len(t, sched.fns, 1)

	sched.fireAll()

	bucket, err := store.Read(ctx, "session-42")
	require.NoError(t, err)
	assert.Empty(t, bucket)
	assert.False(t, staleFlag(t, store, "session-42"))
	require.Len(t, failures, 1)
	assert.Equal(t, entry.ID, failures[0].ID)

	// The timer racing a later explicit resolve is harmless.
	require.NoError(t, coord.Resolve(ctx, entry.ID, OutcomeSuccess))
	assert.False(t, staleFlag(t, store, "session-42"))
}

func TestExplicitResolveCancelsTimer(t *testing.T) {
	store := NewMemoryStore()
	sched := &fakeScheduler{}
	coord := newTestCoordinator(t, store, sched, nil)
	ctx := context.Background()

	entry, err := coord.Begin(ctx, "session-42", "hello")
	require.NoError(t, err)
	require.NoError(t, coord.Resolve(ctx, entry.ID, OutcomeSuccess))
	assert.Equal(t, 1, sched.canceled)
}

func TestConcurrentEntriesAreIndependent(t *testing.T) {
	store := NewMemoryStore()
	coord := newTestCoordinator(t, store, &fakeScheduler{}, nil)
	ctx := context.Background()

	first, err := coord.Begin(ctx, "session-42", "one")
	require.NoError(t, err)
	second, err := coord.Begin(ctx, "session-42", "two")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	bucket, err := store.Read(ctx, "session-42")
	require.NoError(t, err)
	require.Len(t, bucket, 2)
	assert.Equal(t, first.ID, bucket[0].ID, "insertion order is append order")
	assert.Equal(t, second.ID, bucket[1].ID)

	require.NoError(t, coord.Resolve(ctx, first.ID, OutcomeFailure))
	bucket, err = store.Read(ctx, "session-42")
	require.NoError(t, err)
	require.Len(t, bucket, 1)
	assert.Equal(t, second.ID, bucket[0].ID, "resolving one entry must not touch the other")
	assert.True(t, coord.Pending(second.ID))
}

func TestRunSuccess(t *testing.T) {
	store := NewMemoryStore()
	coord := newTestCoordinator(t, store, &fakeScheduler{}, nil)
	ctx := context.Background()

	var calls int
	var midFlight []Entry
	err := coord.Run(ctx, "session-42", map[string]string{"text": "hi"}, func(ctx context.Context) error {
		calls++
		midFlight, _ = store.Read(ctx, "session-42")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "at most one network call per Begin")

	require.Len(t, midFlight, 1, "provisional entry visible while the write is in flight")
	assert.True(t, midFlight[0].Provisional)

	bucket, err := store.Read(ctx, "session-42")
	require.NoError(t, err)
	assert.Empty(t, bucket, "bucket returns to its pre-call length")
	assert.True(t, staleFlag(t, store, "session-42"))
}

func TestRunFailure(t *testing.T) {
	store := NewMemoryStore()
	var failures int
	coord := newTestCoordinator(t, store, &fakeScheduler{}, func(Entry) { failures++ })
	ctx := context.Background()

	wantErr := errors.New("network down")
	var calls int
	err := coord.Run(ctx, "session-42", "hi", func(context.Context) error {
		calls++
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr, "writer errors surface to the caller, never retried")
	assert.Equal(t, 1, calls)

	bucket, rerr := store.Read(ctx, "session-42")
	require.NoError(t, rerr)
	assert.Empty(t, bucket)
	assert.False(t, staleFlag(t, store, "session-42"))
	assert.Equal(t, 1, failures)
}
