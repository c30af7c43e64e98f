package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hnskin/internal/clock"
	"hnskin/internal/types"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func record(username string) *types.ProfileRecord {
	return &types.ProfileRecord{Username: username, JoinDate: "Jan 1, 2015", Karma: 42}
}

func TestProfileCacheGetAfterPut(t *testing.T) {
	c := NewProfileCache(100, 5*time.Minute, clock.Fake(epoch))

	for _, name := range []string{"pg", "dang", "tptacek", "a_b-c"} {
		r := record(name)
		c.Put(name, r)
		got, ok := c.Get(name)
		require.True(t, ok, name)
		assert.Same(t, r, got)
	}
}

func TestProfileCacheMiss(t *testing.T) {
	c := NewProfileCache(100, 5*time.Minute, clock.Fake(epoch))
	got, ok := c.Get("nobody")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestProfileCacheExpiresLazily(t *testing.T) {
	fake := clock.Fake(epoch)
	c := NewProfileCache(100, 5*time.Minute, fake)
	c.Put("pg", record("pg"))

	fake.Advance(5 * time.Minute)
	_, ok := c.Get("pg")
	assert.True(t, ok, "an entry exactly TTL old is still fresh")

	fake.Advance(time.Millisecond)
	assert.Equal(t, 1, c.Len(), "expiry happens on read, not in the background")

	_, ok = c.Get("pg")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry no longer counts toward size")
}

func TestProfileCacheEvictsOldestInserted(t *testing.T) {
	c := NewProfileCache(100, 5*time.Minute, clock.Fake(epoch))
	for i := 0; i < 100; i++ {
		name := fmt.Sprintf("user%d", i)
		c.Put(name, record(name))
	}
	require.Equal(t, 100, c.Len())

	// Reading the oldest entry must not protect it from eviction.
	_, ok := c.Get("user0")
	require.True(t, ok)

	c.Put("user100", record("user100"))
	assert.Equal(t, 100, c.Len())

	_, ok = c.Get("user0")
	assert.False(t, ok, "earliest insertion is evicted even though it was just read")
	for _, name := range []string{"user1", "user50", "user99", "user100"} {
		_, ok := c.Get(name)
		assert.True(t, ok, name)
	}
}

func TestProfileCacheNeverExceedsCapacity(t *testing.T) {
	c := NewProfileCache(100, 5*time.Minute, clock.Fake(epoch))
	for i := 0; i < 250; i++ {
		name := fmt.Sprintf("user%d", i)
		c.Put(name, record(name))
		assert.LessOrEqual(t, c.Len(), 100)
	}
	_, ok := c.Get("user149")
	assert.False(t, ok)
	_, ok = c.Get("user150")
	assert.True(t, ok)
}

func TestProfileCacheOverwriteRefreshesInsertion(t *testing.T) {
	fake := clock.Fake(epoch)
	c := NewProfileCache(2, 5*time.Minute, fake)
	c.Put("a", record("a"))
	c.Put("b", record("b"))

	fake.Advance(4 * time.Minute)
	updated := record("a")
	updated.Karma = 99
	c.Put("a", updated)

	// "b" is now the oldest insertion.
	c.Put("c", record("c"))
	_, ok := c.Get("b")
	assert.False(t, ok)

	fake.Advance(2 * time.Minute)
	got, ok := c.Get("a")
	require.True(t, ok, "overwrite restarts the TTL")
	assert.Equal(t, 99, got.Karma)
}

func TestProfileCacheIgnoresNilRecord(t *testing.T) {
	c := NewProfileCache(10, time.Minute, clock.Fake(epoch))
	c.Put("pg", nil)
	assert.Equal(t, 0, c.Len())
}

func TestProfileCacheDefaults(t *testing.T) {
	c := NewProfileCache(0, 0, nil)
	defaults := DefaultCacheConfig()
	assert.Equal(t, defaults.ProfileTTL, c.ttl)
	for i := 0; i < defaults.ProfileCapacity+5; i++ {
		name := fmt.Sprintf("user%d", i)
		c.Put(name, record(name))
	}
	assert.Equal(t, defaults.ProfileCapacity, c.Len())
}
