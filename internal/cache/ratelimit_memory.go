package cache

import (
	"context"
	"sync"
	"time"

	"hnskin/internal/clock"
)

// MemoryRateLimitStore implements types.RateLimitStore using in-memory storage
type MemoryRateLimitStore struct {
	buckets sync.Map // map[string]*rateLimitBucket
	clock   clock.Clock
}

type rateLimitBucket struct {
	mu         sync.Mutex
	timestamps []time.Time
}

// NewMemoryRateLimitStore creates a new in-memory rate limit store
func NewMemoryRateLimitStore(clk clock.Clock) *MemoryRateLimitStore {
	if clk == nil {
		clk = clock.Real()
	}
	return &MemoryRateLimitStore{clock: clk}
}

func (s *MemoryRateLimitStore) Check(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	bucket := s.getBucket(key)
	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	bucket.prune(s.clock.Now().Add(-window))

	remaining := limit - len(bucket.timestamps)
	if remaining < 0 {
		remaining = 0
	}
	return len(bucket.timestamps) < limit, remaining, nil
}

func (s *MemoryRateLimitStore) Increment(ctx context.Context, key string, window time.Duration) error {
	bucket := s.getBucket(key)
	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	now := s.clock.Now()
	bucket.prune(now.Add(-window))
	bucket.timestamps = append(bucket.timestamps, now)
	return nil
}

func (s *MemoryRateLimitStore) getBucket(key string) *rateLimitBucket {
	if b, ok := s.buckets.Load(key); ok {
		return b.(*rateLimitBucket)
	}
	b, _ := s.buckets.LoadOrStore(key, &rateLimitBucket{})
	return b.(*rateLimitBucket)
}

// prune drops timestamps at or before cutoff (must hold bucket.mu)
func (b *rateLimitBucket) prune(cutoff time.Time) {
	valid := b.timestamps[:0]
	for _, t := range b.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	b.timestamps = valid
}
