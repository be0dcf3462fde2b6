package joinlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_AcquireAndRelease(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker(time.Minute)

	ok, err := l.Acquire(ctx, "123456", "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	// Same pair is held.
	ok, err = l.Acquire(ctx, "123456", "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	// Different nickname and different PIN are independent.
	ok, err = l.Acquire(ctx, "123456", "bob")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = l.Acquire(ctx, "654321", "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	// Release frees the pair for the next join.
	require.NoError(t, l.Release(ctx, "123456", "alice"))
	ok, err = l.Acquire(ctx, "123456", "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLocker_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker(20 * time.Millisecond)

	ok, err := l.Acquire(ctx, "123456", "alice")
	require.NoError(t, err)
	require.True(t, ok)

	// An abandoned lock must not outlive its TTL.
	time.Sleep(30 * time.Millisecond)

	ok, err = l.Acquire(ctx, "123456", "alice")
	require.NoError(t, err)
	assert.True(t, ok, "expired lock should be reclaimable")
}

func TestMemoryLocker_SweepExpired(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker(10 * time.Millisecond)

	ok, err := l.Acquire(ctx, "123456", "alice")
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	l.SweepExpired(ctx)

	assert.Equal(t, 0, l.cache.ItemCount())
}

func newRedisLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, ttl), mr
}

func TestRedisLocker_AcquireAndRelease(t *testing.T) {
	ctx := context.Background()
	l, _ := newRedisLocker(t, time.Minute)

	ok, err := l.Acquire(ctx, "123456", "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Acquire(ctx, "123456", "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, "123456", "alice"))

	ok, err = l.Acquire(ctx, "123456", "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLocker_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLocker(t, 10*time.Second)

	ok, err := l.Acquire(ctx, "123456", "alice")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(11 * time.Second)

	ok, err = l.Acquire(ctx, "123456", "alice")
	require.NoError(t, err)
	assert.True(t, ok, "Redis must expire the lock after its TTL")
}

func TestRedisLocker_BackendError(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLocker(t, time.Minute)
	mr.Close()

	_, err := l.Acquire(ctx, "123456", "alice")
	assert.Error(t, err)
}
