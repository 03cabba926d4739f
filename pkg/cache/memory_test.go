package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute, 0)
	t.Cleanup(func() { _ = c.Close() })

	t.Run("miss", func(t *testing.T) {
		var got payload
		assert.ErrorIs(t, c.Get(ctx, "absent", &got), ErrMiss)
	})

	t.Run("round trip copies the value", func(t *testing.T) {
		in := payload{Name: "kiosk", Score: 4.5}
		require.NoError(t, c.Set(ctx, "k", in, 0))
		in.Name = "changed"

		var got payload
		require.NoError(t, c.Get(ctx, "k", &got))
		assert.Equal(t, payload{Name: "kiosk", Score: 4.5}, got)
	})

	t.Run("expired entries miss", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "short", payload{}, 5*time.Millisecond))
		time.Sleep(20 * time.Millisecond)

		var got payload
		assert.ErrorIs(t, c.Get(ctx, "short", &got), ErrMiss)
	})

	t.Run("unencodable value", func(t *testing.T) {
		assert.Error(t, c.Set(ctx, "bad", make(chan int), time.Minute))
	})
}

func TestMemoryCacheCapacity(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute, 2)
	t.Cleanup(func() { _ = c.Close() })

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, c.Set(ctx, k, k, 0))
	}

	assert.Equal(t, 2, c.Len())
	var got string
	assert.ErrorIs(t, c.Get(ctx, "a", &got), ErrMiss, "oldest entry evicted")
}

func TestMemoryCacheCloseTwice(t *testing.T) {
	c := NewMemory(time.Minute, 0)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}
