package database

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"fuzzgate/config"
)

type RedisParams struct {
	fx.In

	Config *config.AppConfig
	Logger *zap.Logger
}

// NewRedisClient connects to redis when OVERRIDE_REDIS_URL is configured.
// Redis is an optional memo layer; without it every gate run resolves the
// baseline version remotely.
func NewRedisClient(p RedisParams) *redis.Client {
	if p.Config.RedisURL == "" {
		p.Logger.Info("redis not configured, version lookups will not be memoized")
		return nil
	}

	options, err := redis.ParseURL(p.Config.RedisURL)
	if err != nil {
		p.Logger.Error("invalid redis URL", zap.Error(err))
		return nil
	}
	client := redis.NewClient(options)

	if err := client.Ping(context.Background()).Err(); err != nil {
		p.Logger.Error("failed to ping redis, continuing without it", zap.Error(err))
		return nil
	}

	p.Logger.Debug("Redis client created successfully")
	return client
}
