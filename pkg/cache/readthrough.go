package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Cacher is implemented by RedisCache and MemoryCache.
type Cacher interface {
	Close() error
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

type FetchFunc[T any] func(ctx context.Context) (T, error)

const defaultSetTimeout = 5 * time.Second

// addTTLJitter adds up to ±15s random jitter to TTL to avoid mass expiration.
func addTTLJitter(ttl time.Duration) time.Duration {
	if ttl <= 30*time.Second {
		return ttl
	}
	jitter := time.Duration(rand.Intn(30)-15) * time.Second
	return ttl + jitter
}

// FindAndCache is a read-through lookup. Concurrent misses for one key share
// a single fetch and the result is written back asynchronously. Keys are
// expected to identify immutable values, so hits are never refreshed.
// A caller whose ctx ends stops waiting without failing the others.
// A nil cache disables caching.
func FindAndCache[T any](
	ctx context.Context,
	c Cacher,
	sf *singleflight.Group,
	key string,
	ttl time.Duration,
	logger *zap.Logger,
	fn FetchFunc[T],
) (T, error) {
	var zero T
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		return fn(ctx)
	}

	var cached T
	err := c.Get(ctx, key, &cached)
	switch {
	case err == nil:
		logger.Debug("cache hit", zap.String("key", key))
		return cached, nil

	case errors.Is(err, ErrMiss):
		logger.Debug("cache miss", zap.String("key", key))

	default:
		logger.Warn("cache get error (treating as miss)", zap.String("key", key), zap.Error(err))
	}

	// the shared fetch outlives any single caller's cancellation
	fetchCtx := context.WithoutCancel(ctx)
	ch := sf.DoChan(key, func() (any, error) {
		value, err := fn(fetchCtx)
		if err != nil {
			logger.Error("fetch failed", zap.String("key", key), zap.Error(err))
			return zero, err
		}

		go func(v T) {
			setCtx, cancel := context.WithTimeout(context.Background(), defaultSetTimeout)
			defer cancel()

			if err := c.Set(setCtx, key, v, addTTLJitter(ttl)); err != nil {
				logger.Warn("failed to set cache on miss", zap.String("key", key), zap.Error(err))
			}
		}(value)

		return value, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return zero, res.Err
	}
	v, shared := res.Val, res.Shared

	value, ok := v.(T)
	if !ok {
		logger.Error("singleflight type mismatch", zap.String("key", key))
		return zero, fmt.Errorf("type mismatch for key %q", key)
	}

	if shared {
		logger.Debug("singleflight shared result", zap.String("key", key))
	}

	return value, nil
}
