package jwt

import (
	"sync"
	"time"
)

type cacheEntry struct {
	claims    *Claims
	expiresAt time.Time
}

// TokenCache is a short-TTL positive-result cache keyed by the raw token
// string. It is a performance cache, not a trust extension: entry lifetime is
// capped by the token's own expiration, and entries are never returned once
// their expiry has passed. Safe for concurrent use.
type TokenCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

// NewTokenCache creates a cache with the given entry TTL.
func NewTokenCache(ttl time.Duration) *TokenCache {
	return &TokenCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached claims for a token if the entry is still live.
// A stale entry is evicted eagerly and reported as a miss.
func (c *TokenCache) Get(token string, now time.Time) (*Claims, bool) {
	c.mu.RLock()
	entry, ok := c.entries[token]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !now.Before(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Put may have
		// refreshed the entry in the meantime.
		if current, ok := c.entries[token]; ok && current.expiresAt.Equal(entry.expiresAt) {
			delete(c.entries, token)
		}
		c.mu.Unlock()
		return nil, false
	}
	return entry.claims, true
}

// Put stores or overwrites the claims for a token. Concurrent writers for the
// same token race benignly; last writer wins.
func (c *TokenCache) Put(token string, claims *Claims, now time.Time) {
	expiresAt := now.Add(c.ttl)
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(expiresAt) {
		expiresAt = claims.ExpiresAt.Time
	}

	c.mu.Lock()
	c.entries[token] = cacheEntry{claims: claims, expiresAt: expiresAt}
	c.mu.Unlock()
}

// Sweep removes every entry whose expiry has passed and returns the number of
// entries removed.
func (c *TokenCache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for token, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, token)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries, including any not yet swept.
func (c *TokenCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
