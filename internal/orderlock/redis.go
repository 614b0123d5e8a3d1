package orderlock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const (
	minRetryDelay = 10 * time.Millisecond
	maxRetryDelay = 200 * time.Millisecond
)

// RedisLocker holds a SETNX lease per key so replicas share one writer per order.
type RedisLocker struct {
	client  redis.UniversalClient
	script  *redis.Script
	ttl     time.Duration
	maxWait time.Duration
	log     *zap.Logger
}

func NewRedisLocker(client redis.UniversalClient, ttl, maxWait time.Duration, log *zap.Logger) *RedisLocker {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisLocker{
		client:  client,
		script:  redis.NewScript(lockReleaseScript),
		ttl:     ttl,
		maxWait: maxWait,
		log:     log.Named("orderlock.redis"),
	}
}

func (l *RedisLocker) Backend() string { return "redis" }

func (l *RedisLocker) TryLock(ctx context.Context, key string) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, errors.New("lock client not configured")
	}
	if key == "" {
		return "", false, ErrEmptyKey
	}
	if l.ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *RedisLocker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if l.maxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.maxWait)
		defer cancel()
	}

	delay := minRetryDelay
	for {
		token, ok, err := l.TryLock(ctx, key)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
			}
			return nil, err
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					// The request context may already be done; release on a fresh one.
					releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
					defer cancel()
					if err := l.Release(releaseCtx, key, token); err != nil {
						l.log.Warn("order lock release failed", zap.String("key", key), zap.Error(err))
					}
				})
			}, nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
		case <-timer.C:
		}
		delay = min(delay*2, maxRetryDelay)
	}
}
