package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spiceshelf/backend/internal/domain/shared"
)

// RedisRateCounter implements RateCounter using a Redis sorted set per key.
// Each attempt is a member scored by its nanosecond timestamp, so the count
// is exact over a rolling window and shared across instances.
type RedisRateCounter struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisRateCounter creates a new Redis-based rate counter
func NewRedisRateCounter(cfg RedisConfig) (*RedisRateCounter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisRateCounter{
		client:    client,
		keyPrefix: "ratelimit:",
	}, nil
}

// Increment records one attempt for key and returns the attempt count within
// the rolling window ending now
func (c *RedisRateCounter) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	redisKey := c.keyPrefix + key
	now := time.Now()
	windowStart := now.Add(-window)

	pipe := c.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	pipe.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	})
	card := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment rate counter: %w", err)
	}
	return card.Val(), nil
}

// Close closes the Redis client
func (c *RedisRateCounter) Close() error {
	return c.client.Close()
}

var _ shared.RateCounter = (*RedisRateCounter)(nil)
