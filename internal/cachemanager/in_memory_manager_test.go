package cachemanager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type docKey string

func TestInMemoryCacheManager_SetGet(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCacheManager[docKey, int]("test", time.Minute, time.Minute)

	_, ok := c.Get(ctx, "missing")
	require.False(t, ok)

	c.Set(ctx, "a", 7, 0)
	v, ok := c.Get(ctx, "a")
	require.True(t, ok)
	require.Equal(t, 7, v)
	require.Equal(t, 1, c.Len())
}

func TestInMemoryCacheManager_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCacheManager[docKey, int]("test", time.Minute, time.Minute)

	c.Set(ctx, "short", 1, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		_, ok := c.Get(ctx, "short")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestInMemoryCacheManager_GetWithRefresh(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCacheManager[docKey, string]("test", time.Minute, time.Minute)

	_, ok := c.GetWithRefresh(ctx, "nope", time.Hour)
	require.False(t, ok)

	c.Set(ctx, "k", "v", 50*time.Millisecond)
	v, ok := c.GetWithRefresh(ctx, "k", time.Hour)
	require.True(t, ok)
	require.Equal(t, "v", v)

	time.Sleep(80 * time.Millisecond)
	_, ok = c.Get(ctx, "k")
	require.True(t, ok, "refresh extends the ttl")
}

func TestInMemoryCacheManager_DeleteAndFlush(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCacheManager[docKey, int]("test", 0, 0)

	c.Set(ctx, "a", 1, 0)
	c.Set(ctx, "b", 2, 0)
	c.Set(ctx, "c", 3, 0)

	c.Delete(ctx, "a", "b")
	_, ok := c.Get(ctx, "a")
	require.False(t, ok)
	require.Equal(t, 1, c.Len())

	c.Flush(ctx)
	require.Zero(t, c.Len())
}
