package cachemanager

import (
	"context"
	"time"

	"github.com/zjrosen/tokenwatt/internal/log"
)

// ReadThroughCache computes missing values with fn and stores them.
// Errors from fn are returned and not cached.
type ReadThroughCache[K ~string, V any, I any] struct {
	cache     CacheManager[K, V]
	fn        func(ctx context.Context, input I) (V, error)
	skipCache bool
}

// NewReadThroughCache wraps cache. With skipCache set every call goes to fn.
func NewReadThroughCache[K ~string, V any, I any](
	cache CacheManager[K, V],
	fn func(ctx context.Context, input I) (V, error),
	skipCache bool,
) *ReadThroughCache[K, V, I] {
	return &ReadThroughCache[K, V, I]{
		cache:     cache,
		fn:        fn,
		skipCache: skipCache,
	}
}

// Get returns the cached value for key or computes it from input.
func (r *ReadThroughCache[K, V, I]) Get(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	return r.get(ctx, key, input, ttl, false)
}

// GetWithRefresh is Get, extending the TTL of a hit.
func (r *ReadThroughCache[K, V, I]) GetWithRefresh(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	return r.get(ctx, key, input, ttl, true)
}

func (r *ReadThroughCache[K, V, I]) get(ctx context.Context, key K, input I, ttl time.Duration, refresh bool) (V, error) {
	if r.skipCache {
		return r.fn(ctx, input)
	}

	var (
		value V
		ok    bool
	)
	if refresh {
		value, ok = r.cache.GetWithRefresh(ctx, key, ttl)
	} else {
		value, ok = r.cache.Get(ctx, key)
	}
	if ok {
		log.Debug(log.CatCache, "cache hit", "key", key)
		return value, nil
	}

	value, err := r.fn(ctx, input)
	if err != nil {
		return value, err
	}
	r.cache.Set(ctx, key, value, ttl)
	return value, nil
}
