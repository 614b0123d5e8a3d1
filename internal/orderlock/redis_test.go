package orderlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedisLocker(t *testing.T, maxWait time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, 30*time.Second, maxWait, zap.NewNop()), mr
}

func TestRedisLockerAcquireAndRelease(t *testing.T) {
	locker, mr := newTestRedisLocker(t, 50*time.Millisecond)
	key := OrderKey("ORD-1001")

	release, err := locker.Acquire(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, mr.Exists(key))

	_, err = locker.Acquire(context.Background(), key)
	assert.ErrorIs(t, err, ErrLockTimeout)

	release()
	assert.False(t, mr.Exists(key))

	again, err := locker.Acquire(context.Background(), key)
	require.NoError(t, err)
	again()
}

func TestRedisLockerReleaseIgnoresForeignToken(t *testing.T) {
	locker, mr := newTestRedisLocker(t, 0)
	key := OrderKey("ORD-1002")

	token, ok, err := locker.TryLock(context.Background(), key)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, locker.Release(context.Background(), key, "someone-else"))
	assert.True(t, mr.Exists(key))

	require.NoError(t, locker.Release(context.Background(), key, token))
	assert.False(t, mr.Exists(key))
}
