// Package cache implements the TTL cache shared by the pipeline stages.
//
// A Cache wraps a Backend (in-process memory or redis) and guarantees
// at-most-one in-flight upstream fetch per key: concurrent callers of
// GetOrFetch for the same missing key wait on the single outstanding fetch.
// Expired entries are kept for a configurable stale window so they can be
// served, flagged stale, when the refreshing fetch fails.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"
)

// Backend stores opaque entry bytes under a key for a bounded retention.
type Backend interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, retention time.Duration) error
	Delete(ctx context.Context, key string) error
}

// envelope carries the cached value plus the metadata needed to decide
// freshness without trusting the backend's own expiry.
type envelope struct {
	Value     json.RawMessage `json:"value"`
	CreatedAt time.Time       `json:"created_at"`
}

// Cache is a typed TTL cache with single-flight fetch deduplication.
type Cache[T any] struct {
	backend  Backend
	ttl      time.Duration
	staleFor time.Duration
	group    singleflight.Group
}

// New builds a Cache with the given logical TTL. Entries are physically
// retained for ttl+staleFor; staleFor 0 disables stale fallback.
func New[T any](backend Backend, ttl, staleFor time.Duration) *Cache[T] {
	return &Cache[T]{backend: backend, ttl: ttl, staleFor: staleFor}
}

// load reads and decodes the envelope for key, reporting its age.
func (c *Cache[T]) load(ctx context.Context, key string) (val T, age time.Duration, ok bool) {
	data, found, err := c.backend.Get(ctx, key)
	if err != nil || !found {
		return val, 0, false
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return val, 0, false
	}
	if err := json.Unmarshal(env.Value, &val); err != nil {
		return val, 0, false
	}
	return val, time.Since(env.CreatedAt), true
}

// Get returns the cached value for key if present and not expired.
func (c *Cache[T]) Get(ctx context.Context, key string) (T, bool) {
	val, age, ok := c.load(ctx, key)
	if !ok || age > c.ttl {
		var zero T
		return zero, false
	}
	return val, true
}

// Set stores val under key for the cache's TTL.
func (c *Cache[T]) Set(ctx context.Context, key string, val T) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	data, err := json.Marshal(envelope{Value: raw, CreatedAt: time.Now()})
	if err != nil {
		return err
	}
	return c.backend.Set(ctx, key, data, c.ttl+c.staleFor)
}

// Invalidate removes key from the cache.
func (c *Cache[T]) Invalidate(ctx context.Context, key string) error {
	return c.backend.Delete(ctx, key)
}

// GetOrFetch returns the fresh cached value for key, or runs fetch to
// refresh it. Concurrent callers for the same missing key share one fetch.
// When the fetch fails and an expired entry is still within the stale
// window, that entry is returned with stale=true instead of the error.
func (c *Cache[T]) GetOrFetch(ctx context.Context, key string, fetch func(ctx context.Context) (T, error)) (val T, stale bool, err error) {
	if v, ok := c.Get(ctx, key); ok {
		return v, false, nil
	}
	res, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check under the flight: a concurrent caller may have
		// refreshed the key while this one waited its turn.
		if v, ok := c.Get(ctx, key); ok {
			return fetched[T]{val: v}, nil
		}
		v, ferr := fetch(ctx)
		if ferr != nil {
			if sv, age, ok := c.load(ctx, key); ok && age <= c.ttl+c.staleFor {
				return fetched[T]{val: sv, stale: true}, nil
			}
			return nil, ferr
		}
		_ = c.Set(ctx, key, v)
		return fetched[T]{val: v}, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	f := res.(fetched[T])
	return f.val, f.stale, nil
}

type fetched[T any] struct {
	val   T
	stale bool
}
