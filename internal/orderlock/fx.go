package orderlock

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/ordersync/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("orderlock",
	fx.Provide(New),
)

// New picks the redis locker when REDIS_ADDR is set and the in-process one otherwise.
func New(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) Locker {
	addr := strings.TrimSpace(cfg.Redis.Addr)
	if addr == "" {
		log.Info("order lock using in-process backend")
		return NewLocalLocker(cfg.OrderLock.MaxWait)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.Redis.Password),
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	log.Info("order lock using redis backend", zap.String("addr", addr))
	return NewRedisLocker(client, cfg.OrderLock.TTL, cfg.OrderLock.MaxWait, log)
}
