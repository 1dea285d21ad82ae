// Package quotecache keeps the day's live quote per product URL so repeated
// lookups of the same product on one day cost one retailer request. Entries
// expire at the next midnight of the staleness policy's time zone, the same
// moment the stored price turns stale.
package quotecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pricetracker/internal/fetcher"
	"pricetracker/internal/freshness"
)

const keyPrefix = "pricetracker:quote:"

// Cache stores quotes in Redis.
type Cache struct {
	rdb    redis.Cmdable
	policy *freshness.Policy
}

// New wraps a Redis client
func New(rdb redis.Cmdable, policy *freshness.Policy) *Cache {
	if policy == nil {
		policy = freshness.NewPolicy(nil)
	}
	return &Cache{rdb: rdb, policy: policy}
}

// Connect creates a Redis client and checks it answers.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Key returns the Redis key for url
func Key(url string) string {
	return keyPrefix + url
}

// Get returns the cached quote for url, if any.
func (c *Cache) Get(ctx context.Context, url string) (fetcher.Quote, bool, error) {
	data, err := c.rdb.Get(ctx, Key(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return fetcher.Quote{}, false, nil
	}
	if err != nil {
		return fetcher.Quote{}, false, fmt.Errorf("failed to read cached quote: %w", err)
	}

	var q fetcher.Quote
	if err := json.Unmarshal(data, &q); err != nil {
		return fetcher.Quote{}, false, fmt.Errorf("failed to decode cached quote: %w", err)
	}
	return q, true, nil
}

// Set caches a live quote until midnight. Fallback quotes are not cached.
func (c *Cache) Set(ctx context.Context, url string, q fetcher.Quote) error {
	if q.IsFallback {
		return nil
	}

	ttl := c.TTL()
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("failed to encode quote: %w", err)
	}
	if err := c.rdb.Set(ctx, Key(url), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache quote: %w", err)
	}
	return nil
}

// TTL is the time left until cached quotes turn stale.
func (c *Cache) TTL() time.Duration {
	return c.policy.NextMidnight().Sub(c.policy.Now())
}
