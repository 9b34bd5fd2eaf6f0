package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	mr, client := newRedis(t)
	l := NewRedisLimiter(client, "rl:", 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "u-1")
		require.NoError(t, err)
		assert.True(t, ok, "call %d", i+1)
	}
	ok, err := l.Allow(ctx, "u-1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Allow(ctx, "u-2")
	require.NoError(t, err)
	assert.True(t, ok, "keys are independent")

	assert.Equal(t, time.Minute, mr.TTL("rl:u-1"))

	mr.FastForward(time.Minute + time.Second)
	ok, err = l.Allow(ctx, "u-1")
	require.NoError(t, err)
	assert.True(t, ok, "window resets")
}

func TestRedisLimiter_ExpirySetWithCounter(t *testing.T) {
	mr, client := newRedis(t)
	l := NewRedisLimiter(client, "rl:", 5, time.Minute)
	ctx := context.Background()

	_, err := l.Allow(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL("rl:u-1"))

	mr.FastForward(30 * time.Second)
	_, err = l.Allow(ctx, "u-1")
	require.NoError(t, err)

	v, err := mr.Get("rl:u-1")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
	assert.Equal(t, 30*time.Second, mr.TTL("rl:u-1"), "later calls keep the window")
}

func TestRedisLimiter_StoreDown(t *testing.T) {
	mr, client := newRedis(t)
	l := NewRedisLimiter(client, "rl:", 1, time.Minute)
	mr.Close()

	_, err := l.Allow(context.Background(), "u-1")
	assert.Error(t, err)
}

func TestLocalLimiter_Burst(t *testing.T) {
	l := NewLocalLimiter(3, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, _ := l.Allow(ctx, "u-1")
		assert.True(t, ok, "call %d", i+1)
	}
	ok, _ := l.Allow(ctx, "u-1")
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "u-2")
	assert.True(t, ok)

	now = now.Add(21 * time.Second)
	ok, _ = l.Allow(ctx, "u-1")
	assert.True(t, ok, "one token refills every 20s")
}

func TestLocalLimiter_Sweep(t *testing.T) {
	l := NewLocalLimiter(5, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	_, _ = l.Allow(ctx, "old")
	now = now.Add(50 * time.Second)
	_, _ = l.Allow(ctx, "fresh")
	now = now.Add(20 * time.Second)

	assert.Equal(t, 1, l.Sweep())
}

func TestUnlimited(t *testing.T) {
	ok, err := Unlimited{}.Allow(context.Background(), "anyone")
	require.NoError(t, err)
	assert.True(t, ok)
}
