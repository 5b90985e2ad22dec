package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// rateKeyPrefix is the Valkey key prefix for rate limit windows.
const rateKeyPrefix = "throttle:"

// RateCounter keeps fixed-window hit counters in Valkey so that every
// server process sees the same counts. It satisfies middleware.Counter.
type RateCounter struct {
	client *redis.Client
}

// NewRateCounter creates a counter on the given Valkey client.
func NewRateCounter(client *redis.Client) *RateCounter {
	return &RateCounter{client: client}
}

// Hit increments key and returns the count in the current window and the
// time until it resets. The expiry is set by the first hit of a window.
func (c *RateCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	k := rateKeyPrefix + key
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, window)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("rate counter hit: %w", err)
	}
	left := ttl.Val()
	if left < 0 {
		left = window
	}
	return incr.Val(), left, nil
}
