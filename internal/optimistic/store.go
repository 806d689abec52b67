package optimistic

import (
	"context"
	"sync"
)

// Store is the cache the coordinator reconciles against. Write applies an
// updater to the scope bucket; Invalidate marks the scope stale so the
// next read triggers a refetch of authoritative records. The coordinator
// is the sole writer of provisional entries; refetches are the sole source
// of authoritative ones.
type Store interface {
	Read(ctx context.Context, scope string) ([]Entry, error)
	Write(ctx context.Context, scope string, update func([]Entry) []Entry) error
	Invalidate(ctx context.Context, scope string) error
}

// RefetchStore extends Store with the flag readers use to decide whether a
// scope needs an authoritative reload.
type RefetchStore interface {
	Store
	Stale(ctx context.Context, scope string) (bool, error)
	Refresh(ctx context.Context, scope string) error
}

// MemoryStore keeps buckets in process memory. It is the store used by
// handler-local coordinators and by tests.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string][]Entry
	stale   map[string]bool
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string][]Entry),
		stale:   make(map[string]bool),
	}
}

// Read returns a copy of the scope bucket in insertion order.
func (s *MemoryStore) Read(ctx context.Context, scope string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := s.buckets[scope]
	out := make([]Entry, len(bucket))
	copy(out, bucket)
	return out, nil
}

// Write applies update to the scope bucket under the store lock.
func (s *MemoryStore) Write(ctx context.Context, scope string, update func([]Entry) []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets[scope] = update(s.buckets[scope])
	return nil
}

// Invalidate flags the scope for refetch.
func (s *MemoryStore) Invalidate(ctx context.Context, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stale[scope] = true
	return nil
}

// Stale reports whether the scope was invalidated since the last Refresh.
func (s *MemoryStore) Stale(ctx context.Context, scope string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale[scope], nil
}

// Refresh clears the stale flag after a refetch has completed.
func (s *MemoryStore) Refresh(ctx context.Context, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stale, scope)
	return nil
}
