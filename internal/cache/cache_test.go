package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	SetClient(rdb)
	t.Cleanup(func() {
		SetClient(nil)
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

type payload struct {
	Slug  string `json:"slug"`
	Views int    `json:"views"`
}

func TestCacheAside_FetchesOnceThenServesFromRedis(t *testing.T) {
	mr, _ := setupRedis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *payload) func() error {
		return func() error {
			calls++
			*dest = payload{Slug: "demo", Views: 3}
			return nil
		}
	}

	var first payload
	require.NoError(t, CacheAside(ctx, ProjectKey("demo"), &first, time.Minute, fetch(&first)))
	var second payload
	require.NoError(t, CacheAside(ctx, ProjectKey("demo"), &second, time.Minute, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists("project:demo"))

	InvalidateProject(ctx, "demo", "")
	assert.False(t, mr.Exists("project:demo"))
}

func TestCacheAside_FetchErrorIsNotCached(t *testing.T) {
	mr, _ := setupRedis(t)
	var dest payload
	err := CacheAside(context.Background(), ProjectKey("broken"), &dest, time.Minute, func() error {
		return errors.New("db down")
	})
	assert.Error(t, err)
	assert.False(t, mr.Exists("project:broken"))
}

func TestCacheAside_NoClient(t *testing.T) {
	SetClient(nil)
	var dest payload
	calls := 0
	for i := 0; i < 2; i++ {
		require.NoError(t, CacheAside(context.Background(), "k", &dest, time.Minute, func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
}

func TestAcquireLease(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()

	lease, err := AcquireLease(ctx, rdb, SweepLockKey, time.Minute)
	require.NoError(t, err)

	_, err = AcquireLease(ctx, rdb, SweepLockKey, time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, lease.Release(ctx))
	assert.False(t, mr.Exists(SweepLockKey))

	again, err := AcquireLease(ctx, rdb, SweepLockKey, time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestLease_ReleaseDoesNotDropForeignHolder(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()

	lease, err := AcquireLease(ctx, rdb, SweepLockKey, time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	other, err := AcquireLease(ctx, rdb, SweepLockKey, time.Minute)
	require.NoError(t, err)

	require.NoError(t, lease.Release(ctx))
	assert.True(t, mr.Exists(SweepLockKey))
	require.NoError(t, other.Release(ctx))
}

func TestInitRedis(t *testing.T) {
	t.Cleanup(func() { SetClient(nil) })

	mr := miniredis.RunT(t)
	for _, addr := range []string{mr.Addr(), "redis://" + mr.Addr() + "/0"} {
		rdb := InitRedis(addr)
		require.NotNil(t, rdb, addr)
		assert.Same(t, rdb, GetClient())
		_ = rdb.Close()
	}

	assert.Nil(t, InitRedis("redis://%zz"))
	assert.Nil(t, GetClient())
	assert.Nil(t, InitRedis("127.0.0.1:1"))
}

func TestKeyspace(t *testing.T) {
	assert.Equal(t, "project", keyspace(ProjectKey("awesome-cli")))
	assert.Equal(t, "catalog", keyspace(CategoriesKey))
	assert.Equal(t, "bare", keyspace("bare"))
}
