package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateCounter backs the HTTP rate limiter with Redis fixed-window counters.
type RateCounter struct {
	redis *redis.Client
}

func NewRateCounter(redisClient *redis.Client) *RateCounter {
	return &RateCounter{redis: redisClient}
}

func (c *RateCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
