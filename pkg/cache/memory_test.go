package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	ID    string  `json:"id"`
	Value float64 `json:"value"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "snapshot:a", snapshot{ID: "a", Value: 1.5}, time.Minute))

	got, err := GetTyped[snapshot](ctx, mc, "snapshot:a")
	require.NoError(t, err)
	assert.Equal(t, snapshot{ID: "a", Value: 1.5}, *got)

	var raw string
	require.NoError(t, mc.Get(ctx, "snapshot:a", &raw))
	assert.JSONEq(t, `{"id":"a","value":1.5}`, raw)
}

func TestMemoryCacheMissAndExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	var s snapshot
	assert.ErrorIs(t, mc.Get(ctx, "nope", &s), ErrCacheMiss)

	require.NoError(t, mc.Set(ctx, "short", snapshot{ID: "x"}, time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	assert.ErrorIs(t, mc.Get(ctx, "short", &s), ErrCacheMiss)
	ok, err := mc.Exists(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", 1, 0))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", 2, 0))
	time.Sleep(time.Millisecond)

	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "c", 3, 0))

	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "a", &v))
	assert.Equal(t, 1, v)
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	for _, k := range []string{"snapshot:a", "snapshot:b", "lock:a"} {
		require.NoError(t, mc.Set(ctx, k, k, 0))
	}
	require.NoError(t, mc.DeleteByPattern(ctx, BuildPattern("snapshot:")))

	ok, err := mc.Exists(ctx, "snapshot:a", "snapshot:b")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = mc.Exists(ctx, "lock:a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryCacheLock(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	ok, err := mc.TryLock(ctx, "refresh:a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mc.TryLock(ctx, "refresh:a", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mc.Unlock(ctx, "refresh:a"))
	ok, err = mc.TryLock(ctx, "refresh:a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
