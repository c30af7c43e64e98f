package main

import (
	"context"
	"log/slog"

	"hnskin/internal/cache"
	"hnskin/internal/clock"
	"hnskin/internal/types"
)

// Rate limit backend type for health reporting
var rateLimitBackendType = "memory" // "redis" or "memory"

// initRateLimitStore picks the outbound fetch budget store. With a Redis URL
// the budget is shared by every server instance; when Redis is unreachable
// the process falls back to its own in-memory budget.
func initRateLimitStore(ctx context.Context, redisURL string) types.RateLimitStore {
	if redisURL != "" {
		slog.Info("initializing Redis rate limit store")
		client, err := cache.NewRedisClient(ctx, redisURL)
		if err != nil {
			slog.Warn("Redis connection failed, using memory rate limit store", "error", err)
		} else {
			rateLimitBackendType = "redis"
			slog.Info("Redis rate limit store initialized")
			return cache.NewRedisRateLimitStore(client, "hnskin:")
		}
	}

	rateLimitBackendType = "memory"
	return cache.NewMemoryRateLimitStore(clock.Real())
}
