package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/singleflight"
)

type failingCache struct{ *MemoryCache }

func (failingCache) Get(context.Context, string, any) error {
	return errors.New("connection refused")
}

func TestFindAndCache(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	t.Run("miss fetches and populates", func(t *testing.T) {
		c := NewMemory(time.Minute, 0)
		t.Cleanup(func() { _ = c.Close() })
		var sf singleflight.Group
		var calls atomic.Int32

		fetch := func(ctx context.Context) (payload, error) {
			calls.Add(1)
			return payload{Name: "fresh", Score: 3}, nil
		}

		got, err := FindAndCache(ctx, c, &sf, "v1", time.Minute, logger, fetch)
		require.NoError(t, err)
		assert.Equal(t, "fresh", got.Name)

		require.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, 5*time.Millisecond)

		got, err = FindAndCache(ctx, c, &sf, "v1", time.Minute, logger, fetch)
		require.NoError(t, err)
		assert.Equal(t, "fresh", got.Name)
		assert.Equal(t, int32(1), calls.Load(), "hit does not refetch")
	})

	t.Run("fetch error is returned and not cached", func(t *testing.T) {
		c := NewMemory(time.Minute, 0)
		t.Cleanup(func() { _ = c.Close() })
		var sf singleflight.Group

		_, err := FindAndCache(ctx, c, &sf, "v2", time.Minute, logger, func(ctx context.Context) (payload, error) {
			return payload{}, errors.New("boom")
		})

		assert.EqualError(t, err, "boom")
		time.Sleep(10 * time.Millisecond)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("cache errors are treated as miss", func(t *testing.T) {
		var sf singleflight.Group
		c := failingCache{MemoryCache: NewMemory(time.Minute, 0)}
		t.Cleanup(func() { _ = c.MemoryCache.Close() })

		got, err := FindAndCache(ctx, c, &sf, "v3", time.Minute, logger, func(ctx context.Context) (int, error) {
			return 7, nil
		})

		require.NoError(t, err)
		assert.Equal(t, 7, got)
	})

	t.Run("nil cache passes through", func(t *testing.T) {
		var sf singleflight.Group
		got, err := FindAndCache[int](ctx, nil, &sf, "v4", time.Minute, nil, func(ctx context.Context) (int, error) {
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
	})

	t.Run("concurrent misses share one fetch", func(t *testing.T) {
		c := NewMemory(time.Minute, 0)
		t.Cleanup(func() { _ = c.Close() })
		var sf singleflight.Group
		var calls atomic.Int32
		release := make(chan struct{})

		fetch := func(ctx context.Context) (int, error) {
			calls.Add(1)
			<-release
			return 1, nil
		}

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := FindAndCache(ctx, c, &sf, "v5", time.Minute, logger, fetch)
				assert.NoError(t, err)
				assert.Equal(t, 1, v)
			}()
		}
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.LessOrEqual(t, calls.Load(), int32(2))
	})
}

func TestFindAndCacheCanceledCallerDoesNotFailWaiters(t *testing.T) {
	logger := zaptest.NewLogger(t)
	c := NewMemory(time.Minute, 0)
	t.Cleanup(func() { _ = c.Close() })
	var sf singleflight.Group

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	fetch := func(ctx context.Context) (payload, error) {
		if calls.Add(1) == 1 {
			close(started)
			select {
			case <-release:
			case <-ctx.Done():
				return payload{}, ctx.Err()
			}
		}
		return payload{Name: "shared", Score: 1}, nil
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := FindAndCache(firstCtx, c, &sf, "v9", time.Minute, logger, fetch)
		firstErr <- err
	}()
	<-started

	type result struct {
		p   payload
		err error
	}
	second := make(chan result, 1)
	go func() {
		p, err := FindAndCache(context.Background(), c, &sf, "v9", time.Minute, logger, fetch)
		second <- result{p, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("canceled caller kept waiting")
	}

	close(release)
	select {
	case r := <-second:
		require.NoError(t, r.err)
		assert.Equal(t, "shared", r.p.Name)
	case <-time.After(time.Second):
		t.Fatal("waiting caller never got a result")
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestAddTTLJitter(t *testing.T) {
	assert.Equal(t, 10*time.Second, addTTLJitter(10*time.Second))
	for i := 0; i < 50; i++ {
		got := addTTLJitter(10 * time.Minute)
		assert.GreaterOrEqual(t, got, 10*time.Minute-15*time.Second)
		assert.LessOrEqual(t, got, 10*time.Minute+15*time.Second)
	}
}
