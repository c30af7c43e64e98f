package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to Redis from a URL and verifies the connection.
// URL format: redis://[:password@]host:port/db
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	// Connection pool settings
	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

// RedisRateLimitStore implements types.RateLimitStore using Redis sorted sets,
// so every server instance shares one upstream budget
type RedisRateLimitStore struct {
	client *redis.Client
	prefix string
}

// NewRedisRateLimitStore creates a new Redis rate limit store
func NewRedisRateLimitStore(client *redis.Client, prefix string) *RedisRateLimitStore {
	return &RedisRateLimitStore{
		client: client,
		prefix: prefix + "ratelimit:",
	}
}

// countScript removes entries older than the window and counts the rest
var countScript = redis.NewScript(`
	local key = KEYS[1]
	local window_start = tonumber(ARGV[1])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	return redis.call('ZCARD', key)
`)

func (s *RedisRateLimitStore) Check(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	fullKey := s.prefix + key
	windowStart := time.Now().Add(-window)

	count, err := countScript.Run(ctx, s.client, []string{fullKey}, windowStart.UnixNano()).Int()
	if err != nil {
		slog.Error("Redis rate limit check error", "error", err)
		// On error, allow the request (fail open)
		return true, limit, nil
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count < limit, remaining, nil
}

func (s *RedisRateLimitStore) Increment(ctx context.Context, key string, window time.Duration) error {
	fullKey := s.prefix + key
	now := time.Now()

	pipe := s.client.Pipeline()
	pipe.ZAdd(ctx, fullKey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: now.UnixNano(),
	})
	pipe.Expire(ctx, fullKey, window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("Redis rate limit increment error", "error", err)
		return fmt.Errorf("rate limit increment: %w", err)
	}
	return nil
}
