package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryCache is the in-process fallback used when redis is not configured.
// Values are kept JSON encoded so callers get the same copy semantics as
// with RedisCache.
type MemoryCache struct {
	items     *ttlcache.Cache[string, []byte]
	closeOnce sync.Once
}

func NewMemory(defaultTTL time.Duration, capacity uint64) *MemoryCache {
	opts := []ttlcache.Option[string, []byte]{
		ttlcache.WithTTL[string, []byte](defaultTTL),
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, []byte](capacity))
	}

	items := ttlcache.New(opts...)
	go items.Start()
	return &MemoryCache{items: items}
}

func (c *MemoryCache) Get(_ context.Context, key string, dest any) error {
	item := c.items.Get(key)
	if item == nil {
		return ErrMiss
	}
	return json.Unmarshal(item.Value(), dest)
}

func (c *MemoryCache) Set(_ context.Context, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if expiration <= 0 {
		expiration = ttlcache.DefaultTTL
	}
	c.items.Set(key, data, expiration)
	return nil
}

func (c *MemoryCache) Len() int {
	return c.items.Len()
}

func (c *MemoryCache) Close() error {
	c.closeOnce.Do(c.items.Stop)
	return nil
}
