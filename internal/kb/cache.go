package kb

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const listingKey = "kb:listing"

// Cache keeps the rendered knowledge-base listing in Redis so reader
// traffic does not hit PostgreSQL on every page view.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// FetchListing loads the cached listing or populates it using the loader.
func (c *Cache) FetchListing(ctx context.Context, dest *[]TabWithArticles, loader func(context.Context) ([]TabWithArticles, error)) error {
	if loader == nil {
		return errors.New("kb: loader required")
	}
	if c == nil || c.client == nil {
		listing, err := loader(ctx)
		if err != nil {
			return err
		}
		*dest = listing
		return nil
	}
	payload, err := c.client.Get(ctx, listingKey).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if err != redis.Nil {
		return err
	}
	listing, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(listing)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, listingKey, raw, c.ttl).Err(); err != nil {
		return err
	}
	*dest = listing
	return nil
}

// Invalidate drops the cached listing after any authoring change.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, listingKey).Err()
}
