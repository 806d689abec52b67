package optimistic

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Outcome describes how a provisional entry was resolved.
type Outcome string

const (
	// OutcomeSuccess removes the entry and invalidates the scope so the
	// authoritative record arrives via refetch.
	OutcomeSuccess Outcome = "success"
	// OutcomeFailure removes the entry silently; the bucket reverts to
	// its pre-optimistic state.
	OutcomeFailure Outcome = "failure"
	// OutcomeExpired is the forced resolution applied by the expiry timer
	// when neither the response handler nor the caller resolved in time.
	OutcomeExpired Outcome = "expired"
)

// DefaultExpiry bounds how long a provisional entry may stay pending. The
// timer is a safety net against writes that never settle; it does not
// cancel the underlying request.
const DefaultExpiry = 10 * time.Second

// ErrScopeRequired indicates a Begin call without a scope key. This is a
// programming error and is surfaced loudly rather than swallowed.
var ErrScopeRequired = errors.New("optimistic: scope key required")

// Config collects coordinator dependencies.
type Config struct {
	Store  Store
	Logger *slog.Logger
	// Expiry overrides DefaultExpiry when positive.
	Expiry time.Duration
	// OnFailure is invoked exactly once per entry resolved as failure or
	// expired. Callers use it to surface a user-visible signal.
	OnFailure func(Entry)
	// Clock and Schedule are injection points for tests. Clock defaults
	// to time.Now; Schedule defaults to time.AfterFunc.
	Clock    func() time.Time
	Schedule func(d time.Duration, fn func()) (cancel func())
}

type pendingEntry struct {
	entry  Entry
	cancel func()
}

// Coordinator tracks in-flight provisional entries and reconciles them
// against the store. All cache mutation is synchronous with respect to the
// caller; the remote write is the sole suspension point.
type Coordinator struct {
	store     Store
	logger    *slog.Logger
	expiry    time.Duration
	onFailure func(Entry)
	clock     func() time.Time
	schedule  func(time.Duration, func()) func()

	mu      sync.Mutex
	pending map[string]pendingEntry
}

// NewCoordinator constructs a Coordinator from cfg.
func NewCoordinator(cfg Config) *Coordinator {
	c := &Coordinator{
		store:     cfg.Store,
		logger:    cfg.Logger,
		expiry:    cfg.Expiry,
		onFailure: cfg.OnFailure,
		clock:     cfg.Clock,
		schedule:  cfg.Schedule,
		pending:   make(map[string]pendingEntry),
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.expiry <= 0 {
		c.expiry = DefaultExpiry
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	if c.schedule == nil {
		c.schedule = func(d time.Duration, fn func()) func() {
			timer := time.AfterFunc(d, fn)
			return func() { timer.Stop() }
		}
	}
	return c
}

// Begin fabricates a provisional entry for payload, appends it to the end
// of the scope bucket, and arms the expiry timer. Each call produces an
// independent entry; concurrent writes are never coalesced.
func (c *Coordinator) Begin(ctx context.Context, scope string, payload any) (Entry, error) {
	if scope == "" {
		return Entry{}, ErrScopeRequired
	}
	entry := Entry{
		ID:          newEntryID(c.clock()),
		Scope:       scope,
		Payload:     payload,
		Direction:   DirectionOutbound,
		Provisional: true,
		CreatedAt:   c.clock(),
	}
	if err := c.store.Write(ctx, scope, func(bucket []Entry) []Entry {
		return append(bucket, entry)
	}); err != nil {
		return Entry{}, err
	}

	cancel := c.schedule(c.expiry, func() {
		if err := c.Resolve(context.Background(), entry.ID, OutcomeExpired); err != nil {
			c.logger.Warn("optimistic expiry resolve", slog.String("id", entry.ID), slog.Any("error", err))
		}
	})

	c.mu.Lock()
	c.pending[entry.ID] = pendingEntry{entry: entry, cancel: cancel}
	c.mu.Unlock()

	return entry, nil
}

// Resolve removes the provisional entry with id from its scope bucket.
// Resolving an id that was already resolved (or never existed) is a no-op;
// the expiry timer and the response handler may both call Resolve without
// coordination. On success the scope is invalidated so the next read
// refetches authoritative records; on failure and expiry the bucket simply
// reverts and OnFailure fires once.
func (c *Coordinator) Resolve(ctx context.Context, id string, outcome Outcome) error {
	c.mu.Lock()
	p, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if !ok {
		return nil
	}
	if p.cancel != nil {
		p.cancel()
	}

	if err := c.store.Write(ctx, p.entry.Scope, func(bucket []Entry) []Entry {
		out := bucket[:0]
		for _, e := range bucket {
			if e.ID != id {
				out = append(out, e)
			}
		}
		return out
	}); err != nil {
		return err
	}

	switch outcome {
	case OutcomeSuccess:
		return c.store.Invalidate(ctx, p.entry.Scope)
	case OutcomeFailure, OutcomeExpired:
		c.logger.Warn("optimistic write rolled back",
			slog.String("scope", p.entry.Scope),
			slog.String("id", id),
			slog.String("outcome", string(outcome)))
		if c.onFailure != nil {
			c.onFailure(p.entry)
		}
	}
	return nil
}

// Pending reports whether id is still awaiting resolution.
func (c *Coordinator) Pending(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[id]
	return ok
}

// Run wraps a remote write with the full optimistic lifecycle: insert the
// provisional entry, issue exactly one call to writer, then resolve. The
// writer is never retried; its error is returned to the caller after the
// rollback has been applied.
func (c *Coordinator) Run(ctx context.Context, scope string, payload any, writer func(context.Context) error) error {
	entry, err := c.Begin(ctx, scope, payload)
	if err != nil {
		return err
	}
	if err := writer(ctx); err != nil {
		if rerr := c.Resolve(ctx, entry.ID, OutcomeFailure); rerr != nil {
			c.logger.Error("optimistic failure resolve", slog.String("id", entry.ID), slog.Any("error", rerr))
		}
		return err
	}
	return c.Resolve(ctx, entry.ID, OutcomeSuccess)
}
