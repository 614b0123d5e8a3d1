package orderlock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerSerializesSameKey(t *testing.T) {
	locker := NewLocalLocker(5 * time.Second)

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(context.Background(), OrderKey("ORD-1001"))
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			for {
				cur := maxInside.Load()
				if n <= cur || maxInside.CompareAndSwap(cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
	assert.Equal(t, 0, locker.size())
}

func TestLocalLockerDifferentKeysDoNotBlock(t *testing.T) {
	locker := NewLocalLocker(time.Second)

	releaseA, err := locker.Acquire(context.Background(), OrderKey("ORD-1"))
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := locker.Acquire(context.Background(), OrderKey("ORD-2"))
	require.NoError(t, err)
	releaseB()
}

func TestLocalLockerTimesOut(t *testing.T) {
	locker := NewLocalLocker(20 * time.Millisecond)

	release, err := locker.Acquire(context.Background(), "k")
	require.NoError(t, err)

	_, err = locker.Acquire(context.Background(), "k")
	assert.ErrorIs(t, err, ErrLockTimeout)

	release()
	release()

	again, err := locker.Acquire(context.Background(), "k")
	require.NoError(t, err)
	again()
	assert.Equal(t, 0, locker.size())
}

func TestLocalLockerRejectsEmptyKey(t *testing.T) {
	_, err := NewLocalLocker(0).Acquire(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyKey)
}
