package runlock

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/sparkload/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("runlock",
	fx.Provide(Provide),
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
}

// Provide returns a Redis-backed locker when REDIS_ADDR is set and a no-op locker otherwise.
func Provide(p Params) Locker {
	log := p.Log.Named("runlock")
	if p.Config.RedisAddr == "" {
		log.Debug("redis not configured, batch lock disabled")
		return NoopLocker{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     p.Config.RedisAddr,
		Password: p.Config.RedisPassword,
	})
	if p.Lifecycle != nil {
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return client.Close()
			},
		})
	}

	log.Info("batch lock enabled", zap.String("redis_addr", p.Config.RedisAddr), zap.Duration("ttl", p.Config.LockTTL))
	return NewRedisLocker(client, p.Config.LockTTL)
}
