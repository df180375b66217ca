package jwt

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClaims(expiresAt time.Time) *Claims {
	return &Claims{
		Subject:   "user@example.com",
		UserID:    "user-1",
		ExpiresAt: &Time{Time: expiresAt},
	}
}

func TestTokenCachePutGet(t *testing.T) {
	now := time.Now()
	cache := NewTokenCache(time.Minute)
	claims := testClaims(now.Add(time.Hour))

	cache.Put("token-a", claims, now)

	got, ok := cache.Get("token-a", now.Add(30*time.Second))
	require.True(t, ok)
	assert.Same(t, claims, got)

	_, ok = cache.Get("token-b", now)
	assert.False(t, ok)
}

func TestTokenCacheExpiredEntryIsMissAndEvicted(t *testing.T) {
	now := time.Now()
	cache := NewTokenCache(time.Minute)
	cache.Put("token-a", testClaims(now.Add(time.Hour)), now)

	// Exactly at expiry counts as expired.
	_, ok := cache.Get("token-a", now.Add(time.Minute))
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}

func TestTokenCacheEntryCappedByTokenExpiry(t *testing.T) {
	now := time.Now()
	cache := NewTokenCache(time.Minute)
	// Token itself expires before the cache TTL would.
	cache.Put("token-a", testClaims(now.Add(10*time.Second)), now)

	_, ok := cache.Get("token-a", now.Add(9*time.Second))
	assert.True(t, ok)

	_, ok = cache.Get("token-a", now.Add(10*time.Second))
	assert.False(t, ok)
}

func TestTokenCacheSweep(t *testing.T) {
	now := time.Now()
	cache := NewTokenCache(time.Minute)
	for i := 0; i < 5; i++ {
		cache.Put(fmt.Sprintf("stale-%d", i), testClaims(now.Add(time.Hour)), now.Add(-2*time.Minute))
	}
	cache.Put("live", testClaims(now.Add(time.Hour)), now)

	removed := cache.Sweep(now)
	assert.Equal(t, 5, removed)
	assert.Equal(t, 1, cache.Len())

	_, ok := cache.Get("live", now)
	assert.True(t, ok)
}

func TestTokenCacheOverwrite(t *testing.T) {
	now := time.Now()
	cache := NewTokenCache(time.Minute)
	first := testClaims(now.Add(time.Hour))
	second := testClaims(now.Add(2 * time.Hour))

	cache.Put("token-a", first, now)
	cache.Put("token-a", second, now)

	got, ok := cache.Get("token-a", now)
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, cache.Len())
}

func TestTokenCacheConcurrentAccess(t *testing.T) {
	now := time.Now()
	cache := NewTokenCache(time.Minute)
	claims := testClaims(now.Add(time.Hour))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token := fmt.Sprintf("token-%d", i%8)
			for j := 0; j < 100; j++ {
				cache.Put(token, claims, now)
				cache.Get(token, now)
				if j%10 == 0 {
					cache.Sweep(now)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, cache.Len(), 8)
}
