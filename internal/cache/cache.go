// Package cache memoizes async results so a retried operation replays only
// the steps that had not yet succeeded, and so two concurrent identical calls
// share one network round trip.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Func computes the value for one cache key.
type Func func(ctx context.Context) (any, error)

type entry struct {
	value   any
	expires time.Time
}

// ResultCache deduplicates in-flight calls per key and keeps resolved values
// until their per-call TTL elapses. Failed calls are never cached: every
// retry re-attempts them.
type ResultCache struct {
	group   singleflight.Group
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func New() *ResultCache {
	return &ResultCache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Do returns the cached value for key when present and fresh, otherwise
// invokes fn exactly once even under concurrent identical calls. ttl <= 0
// means the result is not kept past the in-flight window.
func (c *ResultCache) Do(ctx context.Context, key string, ttl time.Duration, fn Func) (any, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		if c.now().Before(e.expires) {
			c.mu.Unlock()
			return e.value, nil
		}
		delete(c.entries, key)
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		value, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if ttl > 0 {
			c.mu.Lock()
			c.entries[key] = entry{value: value, expires: c.now().Add(ttl)}
			c.mu.Unlock()
		}
		return value, nil
	})
	return v, err
}

// Forget drops any cached value for key. In-flight calls are unaffected.
func (c *ResultCache) Forget(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Get is a typed wrapper around ResultCache.Do.
func Get[T any](ctx context.Context, c *ResultCache, key string, ttl time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := c.Do(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
