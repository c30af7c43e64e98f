package cache

import "time"

// CacheConfig holds cache sizing and TTL configuration
type CacheConfig struct {
	ProfileTTL      time.Duration
	ProfileCapacity int
	RateLimit       int
	RateLimitWindow time.Duration
}

// DefaultCacheConfig returns sensible defaults
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		ProfileTTL:      5 * time.Minute, // Hover previews tolerate slightly stale karma
		ProfileCapacity: 100,
		RateLimit:       60, // Upstream profile fetches per window
		RateLimitWindow: 1 * time.Minute,
	}
}
