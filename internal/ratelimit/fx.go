package ratelimit

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/turuturu/turuturu/internal/clock"
	"github.com/turuturu/turuturu/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
	Clock  clock.Clock
}

func NewLimiter(p Params) Limiter {
	if p.Config.RedisAddr == "" {
		p.Log.Named("ratelimit").Info("redis not configured, using in-process limiter")
		return NewMemoryLimiter(p.Clock)
	}
	client := redis.NewClient(&redis.Options{Addr: p.Config.RedisAddr})
	return NewTokenBucket(client)
}

var Module = fx.Module("rate.limit",
	fx.Provide(NewLimiter),
)
