// Package ratelimit throttles unauthenticated endpoints per client key.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Limiter interface {
	// Allow records a hit for key and reports whether it is within the limit.
	Allow(ctx context.Context, key string) (bool, error)
}

// Noop allows everything; used when no Redis is configured.
type Noop struct{}

func (Noop) Allow(context.Context, string) (bool, error) { return true, nil }

// SlidingWindow counts hits in a Redis sorted set scored by timestamp.
type SlidingWindow struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewSlidingWindow(client *redis.Client, limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		client: client,
		limit:  limit,
		window: window,
		prefix: "ratelimit:",
	}
}

func (s *SlidingWindow) Allow(ctx context.Context, key string) (bool, error) {
	if s.limit <= 0 {
		return true, nil
	}

	now := time.Now()
	redisKey := s.prefix + key
	windowStart := now.Add(-s.window).UnixMicro()

	pipe := s.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", strconv.FormatInt(windowStart, 10))
	countCmd := pipe.ZCard(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return false, fmt.Errorf("rate limit check: %w", err)
	}

	if int(countCmd.Val()) >= s.limit {
		return false, nil
	}

	// member must be unique even for hits in the same microsecond
	member := strconv.FormatInt(now.UnixMicro(), 10) + "-" + uuid.NewString()
	pipe = s.client.TxPipeline()
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixMicro()), Member: member})
	pipe.Expire(ctx, redisKey, s.window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit record: %w", err)
	}

	return true, nil
}
