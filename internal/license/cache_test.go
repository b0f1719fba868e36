package license

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheGetSet(t *testing.T) {
	cache := NewMemoryCache(time.Minute, 100)
	defer cache.Close()
	ctx := context.Background()

	_, hit, err := cache.Get(ctx, "org-1")
	require.NoError(t, err)
	assert.False(t, hit)

	grants := []Grant{{OrganizationID: "org-1", ModuleID: 3, GrantedAt: time.Now()}}
	require.NoError(t, cache.Set(ctx, "org-1", grants))

	got, hit, err := cache.Get(ctx, "org-1")
	require.NoError(t, err)
	require.True(t, hit)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].ModuleID)
}

func TestMemoryCacheExpiry(t *testing.T) {
	cache := NewMemoryCache(10*time.Millisecond, 100)
	defer cache.Close()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "org-1", []Grant{{ModuleID: 1}}))

	_, hit, err := cache.Get(ctx, "org-1")
	require.NoError(t, err)
	assert.True(t, hit)

	time.Sleep(20 * time.Millisecond)

	_, hit, err = cache.Get(ctx, "org-1")
	require.NoError(t, err)
	assert.False(t, hit, "entry must expire after TTL")
}

func TestMemoryCacheDelete(t *testing.T) {
	cache := NewMemoryCache(time.Minute, 100)
	defer cache.Close()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "org-1", []Grant{{ModuleID: 1}}))
	require.NoError(t, cache.Delete(ctx, "org-1"))

	_, hit, err := cache.Get(ctx, "org-1")
	require.NoError(t, err)
	assert.False(t, hit)

	// Deleting a missing entry is a no-op.
	assert.NoError(t, cache.Delete(ctx, "org-unknown"))
}

func TestMemoryCacheEviction(t *testing.T) {
	cache := NewMemoryCache(time.Minute, 2)
	defer cache.Close()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "org-1", []Grant{{ModuleID: 1}}))
	time.Sleep(time.Millisecond)
	require.NoError(t, cache.Set(ctx, "org-2", []Grant{{ModuleID: 2}}))
	time.Sleep(time.Millisecond)
	require.NoError(t, cache.Set(ctx, "org-3", []Grant{{ModuleID: 3}}))

	// Oldest entry evicted.
	_, hit, _ := cache.Get(ctx, "org-1")
	assert.False(t, hit)
	_, hit, _ = cache.Get(ctx, "org-3")
	assert.True(t, hit)
}

func TestMemoryCacheZeroMaxSizeStoresNothing(t *testing.T) {
	cache := NewMemoryCache(time.Minute, 0)
	defer cache.Close()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "org-1", []Grant{{ModuleID: 1}}))
	_, hit, _ := cache.Get(ctx, "org-1")
	assert.False(t, hit)
}

func TestMemoryCacheStats(t *testing.T) {
	cache := NewMemoryCache(time.Minute, 100)
	defer cache.Close()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "org-1", []Grant{{ModuleID: 1}}))
	cache.Get(ctx, "org-1")
	cache.Get(ctx, "org-1")
	cache.Get(ctx, "org-missing")

	stats := cache.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 0.001)
	assert.Equal(t, "memory", stats.Backend)
}

func TestMemoryCacheCopiesOnReadAndWrite(t *testing.T) {
	cache := NewMemoryCache(time.Minute, 100)
	defer cache.Close()
	ctx := context.Background()

	original := []Grant{{OrganizationID: "org-1", ModuleID: 3}}
	require.NoError(t, cache.Set(ctx, "org-1", original))

	// Mutating the caller's slice must not affect the cached copy.
	original[0].ModuleID = 99

	got, hit, err := cache.Get(ctx, "org-1")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, 3, got[0].ModuleID)

	// Mutating the returned slice must not affect later reads.
	got[0].ModuleID = 42
	again, _, _ := cache.Get(ctx, "org-1")
	assert.Equal(t, 3, again[0].ModuleID)
}
