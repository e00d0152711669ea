package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pedidos/internal/catalog"
)

func TestCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := catalog.NewCache(client, time.Minute)
	ctx := context.Background()

	var out []string
	hit, err := cache.GetJSON(ctx, "listing", &out)
	require.NoError(t, err)
	require.False(t, hit)

	require.NoError(t, cache.SetJSON(ctx, "listing", []string{"a", "b"}))
	hit, err = cache.GetJSON(ctx, "listing", &out)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, []string{"a", "b"}, out)

	require.NoError(t, cache.Flush(ctx))
	hit, err = cache.GetJSON(ctx, "listing", &out)
	require.NoError(t, err)
	require.False(t, hit)
}

func TestCacheNilClientIsNoop(t *testing.T) {
	var cache *catalog.Cache
	ctx := context.Background()

	var out []string
	hit, err := cache.GetJSON(ctx, "k", &out)
	require.NoError(t, err)
	require.False(t, hit)
	require.NoError(t, cache.SetJSON(ctx, "k", []string{"x"}))
	require.NoError(t, cache.Flush(ctx))
}
