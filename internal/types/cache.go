package types

import (
	"context"
	"time"
)

// RateLimitStore defines the interface for sliding-window rate limiting
type RateLimitStore interface {
	// Check returns (allowed, remaining, error)
	// If allowed is false, the action should be blocked
	Check(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error)
	// Increment adds a count to the rate limit bucket
	Increment(ctx context.Context, key string, window time.Duration) error
}
