package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/waleedsbi/atm-master/internal/models"
)

const (
	userCacheTTL       = 5 * time.Minute
	negativeCacheTTL   = 30 * time.Second
	maxCacheEntries    = 10000
	cacheCleanupPeriod = 60 * time.Second
)

// errCachedNotFound is returned for negative cache hits.
var errCachedNotFound = errors.New("user not found (cached)")

type cachedUser struct {
	user      *models.User // nil for a cached lookup failure
	fetchedAt time.Time
}

func (cu cachedUser) ttl() time.Duration {
	if cu.user == nil {
		return negativeCacheTTL
	}
	return userCacheTTL
}

func (cu cachedUser) fresh(now time.Time) bool {
	return now.Sub(cu.fetchedAt) < cu.ttl()
}

// hashKey returns a hex-encoded SHA-256 hash of the API key so raw keys
// are never stored in memory.
func hashKey(apiKey string) string {
	h := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(h[:])
}

// CachedUserLookup wraps a UserLookup with a bounded in-memory cache.
// Concurrent misses for the same key share one database lookup.
type CachedUserLookup struct {
	inner UserLookup
	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]cachedUser
}

// NewCachedUserLookup creates a caching wrapper around inner. ctx bounds
// the lifetime of the background eviction goroutine.
func NewCachedUserLookup(ctx context.Context, inner UserLookup) *CachedUserLookup {
	c := &CachedUserLookup{
		inner: inner,
		cache: make(map[string]cachedUser),
	}
	go c.evictLoop(ctx)
	return c
}

func (c *CachedUserLookup) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(cacheCleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.mu.Lock()
			c.evictExpired(now)
			c.mu.Unlock()
		}
	}
}

// evictExpired removes stale entries. Caller must hold c.mu.
func (c *CachedUserLookup) evictExpired(now time.Time) {
	for k, v := range c.cache {
		if !v.fresh(now) {
			delete(c.cache, k)
		}
	}
}

func (c *CachedUserLookup) store(hk string, user *models.User) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.cache) >= maxCacheEntries {
		c.evictExpired(time.Now())
		for k := range c.cache {
			if len(c.cache) < maxCacheEntries {
				break
			}
			delete(c.cache, k)
		}
	}

	c.cache[hk] = cachedUser{user: user, fetchedAt: time.Now()}
}

// Invalidate drops any cached entry for apiKey.
func (c *CachedUserLookup) Invalidate(apiKey string) {
	c.mu.Lock()
	delete(c.cache, hashKey(apiKey))
	c.mu.Unlock()
}

// GetUserByAPIKey returns a cached user or delegates to the inner lookup.
// Failed lookups are cached briefly so that bad keys do not hammer the
// database.
func (c *CachedUserLookup) GetUserByAPIKey(ctx context.Context, apiKey string) (*models.User, error) {
	hk := hashKey(apiKey)

	c.mu.RLock()
	entry, ok := c.cache[hk]
	c.mu.RUnlock()

	if ok && entry.fresh(time.Now()) {
		if entry.user == nil {
			return nil, errCachedNotFound
		}
		return entry.user, nil
	}

	v, err, _ := c.group.Do(hk, func() (any, error) {
		user, err := c.inner.GetUserByAPIKey(ctx, apiKey)
		if err != nil {
			// Only a definite miss is cached; transient errors are retried.
			if errors.Is(err, models.ErrUserNotFound) {
				c.store(hk, nil)
			}
			return nil, err
		}

		c.store(hk, user)
		return user, nil
	})
	if err != nil {
		return nil, err
	}

	user, _ := v.(*models.User)

	return user, nil
}
