package license

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a grant cache backed by Redis, for deployments running more
// than one service instance: an invalidation on one instance must be visible
// to all of them.
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration

	hits   int64
	misses int64
}

// NewRedisCache creates a Redis-backed grant cache from a redis URL
// (redis://host:port/db).
func NewRedisCache(url, keyPrefix string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	if keyPrefix == "" {
		keyPrefix = "bcm:grants:"
	}

	return &RedisCache{
		client:    redis.NewClient(opts),
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}, nil
}

func (c *RedisCache) key(orgID string) string {
	return c.keyPrefix + orgID
}

// Get retrieves an organization's cached grants. A missing key is a cache
// miss, not an error; Redis unavailability is returned so the caller can fall
// back to the durable store.
func (c *RedisCache) Get(ctx context.Context, orgID string) ([]Grant, bool, error) {
	payload, err := c.client.Get(ctx, c.key(orgID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			atomic.AddInt64(&c.misses, 1)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var grants []Grant
	if err := json.Unmarshal(payload, &grants); err != nil {
		// Corrupt entry: treat as a miss so the next Set repairs it.
		atomic.AddInt64(&c.misses, 1)
		return nil, false, nil
	}

	atomic.AddInt64(&c.hits, 1)
	return grants, true, nil
}

// Set stores an organization's grants with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, orgID string, grants []Grant) error {
	payload, err := json.Marshal(grants)
	if err != nil {
		return fmt.Errorf("marshal grants: %w", err)
	}

	if err := c.client.Set(ctx, c.key(orgID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete drops the organization's cached entry.
func (c *RedisCache) Delete(ctx context.Context, orgID string) error {
	if err := c.client.Del(ctx, c.key(orgID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Stats returns hit/miss counters for this instance.
func (c *RedisCache) Stats() CacheStats {
	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	total := hits + misses
	rate := 0.0
	if total > 0 {
		rate = float64(hits) / float64(total)
	}
	return CacheStats{
		Hits:    hits,
		Misses:  misses,
		HitRate: rate,
		Backend: "redis",
	}
}

// Close closes the underlying Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
