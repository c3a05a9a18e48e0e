package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shopeazy-backend/pkg/config"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestLockPrimitives(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()
	key := client.LockKey("cron-worker")

	ok, err := client.SetNX(ctx, key, "instance-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.SetNX(ctx, key, "instance-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second owner must not take the lock")

	owner, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "instance-a", owner)

	require.NoError(t, client.Raw().Del(ctx, key).Err())
	_, err = client.Get(ctx, key)
	assert.ErrorIs(t, err, redis.Nil)
}

func TestKeyLayout(t *testing.T) {
	client := &Client{prefix: "shop:"}
	assert.Equal(t, "shop:reservation:pair:u1:p1", client.ReservationKey("pair", "u1", "p1"))
	assert.Equal(t, "shop:reservation:product:qty", client.ReservationKey("product", " ", "qty"))
	assert.Equal(t, "shop:lock:cron", client.LockKey("cron"))

	assert.Equal(t, "se:lock:cron", (&Client{}).LockKey("cron"))
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	ctx := context.Background()
	assert.Error(t, client.Ping(ctx))
	_, err := client.SetNX(ctx, "k", "v", time.Second)
	assert.Error(t, err)
	assert.Nil(t, client.Raw())
	assert.NoError(t, client.Close())
}

func TestOptionsFromConfig(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	assert.Error(t, err)

	opts, err := optionsFromConfig(config.RedisConfig{
		URL:         "redis://:secret@cache:6380/2",
		PoolSize:    7,
		DialTimeout: 3 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, 3*time.Second, opts.DialTimeout)

	opts, err = optionsFromConfig(config.RedisConfig{Address: "localhost:6379", DB: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, opts.DB)
}

func TestNewConnectsWithPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := New(context.Background(), config.RedisConfig{Address: mr.Addr(), KeyPrefix: "market"}, nil)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.Ping(ctx))
	require.NoError(t, client.Raw().Set(ctx, client.LockKey("nightly"), "1", time.Second).Err())
	assert.True(t, mr.Exists("market:lock:nightly"))

	mr.FastForward(2 * time.Second)
	assert.False(t, mr.Exists("market:lock:nightly"))
}

func TestNewFailsWhenServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), config.RedisConfig{Address: addr, DialTimeout: 200 * time.Millisecond}, nil)
	assert.Error(t, err)
}
