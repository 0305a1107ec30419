package memcache_fx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"codereview/internal/config"
	"codereview/internal/infra"
	mem "codereview/pkg/memcache"
	"codereview/pkg/ratelimit"
)

var Module = fx.Provide(
	provideRedis,
	providePendingLogins,
	provideRateLimiter)

// provideRedis returns a nil client when REDIS_URL is not set.
func provideRedis(lc fx.Lifecycle, cfg *config.Config, log *zerolog.Logger) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := infra.NewRedisFromURL(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	if client == nil {
		log.Info().Msg("REDIS_URL not set, using in-memory pending logins and no rate limiting")
		return nil, nil
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func providePendingLogins(client *redis.Client) mem.PendingLoginStore {
	if client == nil {
		return mem.NewPendingLogins()
	}
	return mem.NewRedisPendingLogins(client)
}

func provideRateLimiter(client *redis.Client, cfg *config.Config) ratelimit.Limiter {
	if client == nil || cfg.RateLimitPerMinute == 0 {
		return ratelimit.Noop{}
	}
	return ratelimit.NewSlidingWindow(client, cfg.RateLimitPerMinute, time.Minute)
}
