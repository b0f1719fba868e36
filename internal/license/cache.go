package license

import (
	"context"
	"sync"
	"time"
)

// GrantCache caches an organization's grant list between durable reads.
// Stale reads are permitted within the TTL; Delete is the only way to shorten
// staleness and is caller-triggered.
type GrantCache interface {
	Get(ctx context.Context, orgID string) ([]Grant, bool, error)
	Set(ctx context.Context, orgID string, grants []Grant) error
	Delete(ctx context.Context, orgID string) error
	Stats() CacheStats
	Close() error
}

// CacheStats reports cache effectiveness for health and metrics endpoints.
type CacheStats struct {
	Entries int     `json:"entries"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	MaxSize int     `json:"max_size,omitempty"`
	Backend string  `json:"backend"`
}

// cacheEntry is one organization's cached grant list
type cacheEntry struct {
	grants    []Grant
	cachedAt  time.Time
	expiresAt time.Time
	hitCount  int
}

// MemoryCache is an in-process grant cache with TTL and size-bounded
// eviction.
type MemoryCache struct {
	entries   map[string]cacheEntry
	mutex     sync.RWMutex
	ttl       time.Duration
	maxSize   int
	hitCount  int64
	missCount int64
	stopChan  chan struct{}
	closeOnce sync.Once
}

// NewMemoryCache creates a new in-process grant cache
func NewMemoryCache(ttl time.Duration, maxSize int) *MemoryCache {
	cache := &MemoryCache{
		entries:  make(map[string]cacheEntry),
		ttl:      ttl,
		maxSize:  maxSize,
		stopChan: make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

// Get retrieves an organization's grants from cache
func (c *MemoryCache) Get(_ context.Context, orgID string) ([]Grant, bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[orgID]
	if !exists || time.Now().After(entry.expiresAt) {
		c.missCount++
		return nil, false, nil
	}

	entry.hitCount++
	c.entries[orgID] = entry
	c.hitCount++

	grants := make([]Grant, len(entry.grants))
	copy(grants, entry.grants)
	return grants, true, nil
}

// Set stores an organization's grants in cache
func (c *MemoryCache) Set(_ context.Context, orgID string, grants []Grant) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.maxSize <= 0 {
		return nil
	}

	if _, exists := c.entries[orgID]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	stored := make([]Grant, len(grants))
	copy(stored, grants)

	c.entries[orgID] = cacheEntry{
		grants:    stored,
		cachedAt:  time.Now(),
		expiresAt: time.Now().Add(c.ttl),
	}
	return nil
}

// Delete drops the organization's entry, forcing the next read to go to the
// durable store. It never touches durable data.
func (c *MemoryCache) Delete(_ context.Context, orgID string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.entries, orgID)
	return nil
}

// Stats returns hit/miss counters and current size
func (c *MemoryCache) Stats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	total := c.hitCount + c.missCount
	rate := 0.0
	if total > 0 {
		rate = float64(c.hitCount) / float64(total)
	}
	return CacheStats{
		Entries: len(c.entries),
		Hits:    c.hitCount,
		Misses:  c.missCount,
		HitRate: rate,
		MaxSize: c.maxSize,
		Backend: "memory",
	}
}

// Close stops the background cleanup goroutine
func (c *MemoryCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
	})
	return nil
}

// evictOldest removes the least recently cached entry. Caller holds the lock.
func (c *MemoryCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.entries {
		if oldestKey == "" || entry.cachedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.cachedAt
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// cleanup periodically sweeps expired entries
func (c *MemoryCache) cleanup() {
	interval := c.ttl
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopChan:
			return
		}
	}
}

func (c *MemoryCache) removeExpired() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}
