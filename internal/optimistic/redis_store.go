package optimistic

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	bucketKeyPrefix = "optimistic:bucket:"
	staleKeyPrefix  = "optimistic:stale:"
)

// RedisStore keeps scope buckets in Redis so provisional state survives a
// process restart and is visible to every instance serving the same
// client. Each bucket is a JSON array under one key; the coordinator is
// the only writer, so read-modify-write without WATCH is sufficient.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore constructs a RedisStore. ttl bounds how long an abandoned
// bucket may linger; it is refreshed on every write.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Read returns the scope bucket in insertion order.
func (s *RedisStore) Read(ctx context.Context, scope string) ([]Entry, error) {
	if s == nil || s.client == nil {
		return nil, errors.New("optimistic: redis store not configured")
	}
	payload, err := s.client.Get(ctx, bucketKeyPrefix+scope).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var bucket []Entry
	if err := json.Unmarshal(payload, &bucket); err != nil {
		return nil, err
	}
	return bucket, nil
}

// Write applies update to the scope bucket and persists the result. An
// empty result deletes the key instead of storing an empty array.
func (s *RedisStore) Write(ctx context.Context, scope string, update func([]Entry) []Entry) error {
	if s == nil || s.client == nil {
		return errors.New("optimistic: redis store not configured")
	}
	bucket, err := s.Read(ctx, scope)
	if err != nil {
		return err
	}
	bucket = update(bucket)
	if len(bucket) == 0 {
		return s.client.Del(ctx, bucketKeyPrefix+scope).Err()
	}
	payload, err := json.Marshal(bucket)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, bucketKeyPrefix+scope, payload, s.ttl).Err()
}

// Invalidate flags the scope for refetch.
func (s *RedisStore) Invalidate(ctx context.Context, scope string) error {
	if s == nil || s.client == nil {
		return errors.New("optimistic: redis store not configured")
	}
	return s.client.Set(ctx, staleKeyPrefix+scope, 1, s.ttl).Err()
}

// Stale reports whether the scope was invalidated since the last Refresh.
func (s *RedisStore) Stale(ctx context.Context, scope string) (bool, error) {
	if s == nil || s.client == nil {
		return false, errors.New("optimistic: redis store not configured")
	}
	_, err := s.client.Get(ctx, staleKeyPrefix+scope).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Refresh clears the stale flag after a refetch has completed.
func (s *RedisStore) Refresh(ctx context.Context, scope string) error {
	if s == nil || s.client == nil {
		return errors.New("optimistic: redis store not configured")
	}
	err := s.client.Del(ctx, staleKeyPrefix+scope).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// Sweep removes buckets whose newest entry is older than cutoff. The
// worker runs this as a periodic safety net for entries orphaned by a
// crashed process before their expiry timer fired.
func (s *RedisStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	if s == nil || s.client == nil {
		return 0, errors.New("optimistic: redis store not configured")
	}
	var removed int
	iter := s.client.Scan(ctx, 0, bucketKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		scope := key[len(bucketKeyPrefix):]
		bucket, err := s.Read(ctx, scope)
		if err != nil {
			return removed, err
		}
		newest := time.Time{}
		for _, e := range bucket {
			if e.CreatedAt.After(newest) {
				newest = e.CreatedAt
			}
		}
		if len(bucket) > 0 && newest.Before(cutoff) {
			if err := s.client.Del(ctx, key).Err(); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, iter.Err()
}
