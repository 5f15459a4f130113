package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	SetClient(rdb)
	t.Cleanup(func() {
		SetClient(nil)
		rdb.Close()
	})
	return mr
}

type cachedThing struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestGetSetJSON(t *testing.T) {
	setupCache(t)
	ctx := context.Background()

	var missing cachedThing
	found, err := GetJSON(ctx, "thing:1", &missing)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetJSON(ctx, "thing:1", cachedThing{Name: "a", Count: 2}, time.Minute))

	var got cachedThing
	found, err = GetJSON(ctx, "thing:1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, cachedThing{Name: "a", Count: 2}, got)
}

func TestAside(t *testing.T) {
	mr := setupCache(t)
	ctx := context.Background()

	fetches := 0
	fetch := func(dest *cachedThing) func() error {
		return func() error {
			fetches++
			*dest = cachedThing{Name: "fetched", Count: fetches}
			return nil
		}
	}

	var first cachedThing
	require.NoError(t, Aside(ctx, "thing:2", &first, time.Minute, fetch(&first)))
	assert.Equal(t, 1, fetches)
	assert.Equal(t, "fetched", first.Name)

	// second read is served from the cache
	var second cachedThing
	require.NoError(t, Aside(ctx, "thing:2", &second, time.Minute, fetch(&second)))
	assert.Equal(t, 1, fetches)
	assert.Equal(t, first, second)

	// after expiry the source is hit again
	mr.FastForward(2 * time.Minute)
	var third cachedThing
	require.NoError(t, Aside(ctx, "thing:2", &third, time.Minute, fetch(&third)))
	assert.Equal(t, 2, fetches)
}

func TestAsideWithoutClient(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	fetches := 0
	var got cachedThing
	for i := 0; i < 2; i++ {
		err := Aside(ctx, "thing:3", &got, time.Minute, func() error {
			fetches++
			got = cachedThing{Name: "direct"}
			return nil
		})
		require.NoError(t, err)
	}
	// every read goes to the source when Redis is absent
	assert.Equal(t, 2, fetches)
	assert.Equal(t, "direct", got.Name)
}

func TestInvalidate(t *testing.T) {
	setupCache(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, StatsKey(), cachedThing{Name: "stats"}, time.Minute))
	InvalidateStats(ctx)

	var got cachedThing
	found, err := GetJSON(ctx, StatsKey(), &got)
	require.NoError(t, err)
	assert.False(t, found)
}
