package cache

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"hnskin/internal/clock"
	"hnskin/internal/types"
)

// ProfileCache is a bounded, time-expiring store of parsed profiles.
//
// Entries expire lazily: Get drops an entry older than the TTL instead of a
// background sweep. When a Put pushes the store past capacity the entry
// inserted earliest is evicted. Reads use Peek, so they never change the
// eviction order.
type ProfileCache struct {
	mu      sync.Mutex
	entries *simplelru.LRU[string, profileEntry]
	ttl     time.Duration
	clock   clock.Clock
}

type profileEntry struct {
	record     *types.ProfileRecord
	insertedAt time.Time
}

// NewProfileCache creates a cache holding at most capacity profiles for ttl.
// Non-positive arguments fall back to DefaultCacheConfig.
func NewProfileCache(capacity int, ttl time.Duration, clk clock.Clock) *ProfileCache {
	defaults := DefaultCacheConfig()
	if capacity <= 0 {
		capacity = defaults.ProfileCapacity
	}
	if ttl <= 0 {
		ttl = defaults.ProfileTTL
	}
	if clk == nil {
		clk = clock.Real()
	}

	// NewLRU only fails for a non-positive size, which is ruled out above
	entries, _ := simplelru.NewLRU[string, profileEntry](capacity, nil)

	return &ProfileCache{
		entries: entries,
		ttl:     ttl,
		clock:   clk,
	}
}

// Get returns the cached profile for username if present and not expired.
func (c *ProfileCache) Get(username string) (*types.ProfileRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries.Peek(username)
	if !ok {
		return nil, false
	}
	if c.clock.Now().Sub(entry.insertedAt) > c.ttl {
		c.entries.Remove(username)
		return nil, false
	}
	return entry.record, true
}

// Put stores a profile. Overwriting an existing username counts as a fresh
// insertion for both the TTL and the eviction order.
func (c *ProfileCache) Put(username string, record *types.ProfileRecord) {
	if record == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries.Contains(username) {
		c.entries.Remove(username)
	}
	evicted := c.entries.Add(username, profileEntry{
		record:     record,
		insertedAt: c.clock.Now(),
	})
	if evicted {
		slog.Debug("profile cache full, evicted oldest entry", "capacity", c.entries.Len())
	}
}

// Len returns the number of stored entries, including expired entries that
// have not been read since they lapsed.
func (c *ProfileCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}
