package predict

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is how many distinct queries the result cache remembers.
const DefaultCacheSize = 255

type cacheKey struct {
	input  string
	limits Limits
}

// CacheStats counts cache activity since the cache was created.
type CacheStats struct {
	Hits      uint64 `msgpack:"hits"`
	Misses    uint64 `msgpack:"misses"`
	Evictions uint64 `msgpack:"evictions"`
	Size      int    `msgpack:"size"`
	Capacity  int    `msgpack:"capacity"`
}

// resultCache is a fixed capacity LRU of finished searches. Values are
// copied in and out so callers can't alias cached slices.
type resultCache struct {
	entries  *lru.Cache[cacheKey, []Suggestion]
	capacity int

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

func newResultCache(capacity int) *resultCache {
	if capacity < 1 {
		capacity = DefaultCacheSize
	}
	c := &resultCache{capacity: capacity}
	// Only fails for a non-positive size.
	c.entries, _ = lru.NewWithEvict(capacity, func(cacheKey, []Suggestion) {
		c.evictions.Add(1)
	})
	return c
}

func (c *resultCache) get(key cacheKey) ([]Suggestion, bool) {
	suggestions, ok := c.entries.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return cloneSuggestions(suggestions), true
}

func (c *resultCache) put(key cacheKey, suggestions []Suggestion) {
	c.entries.Add(key, cloneSuggestions(suggestions))
}

func (c *resultCache) snapshot() CacheStats {
	return CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      c.entries.Len(),
		Capacity:  c.capacity,
	}
}

func cloneSuggestions(s []Suggestion) []Suggestion {
	out := make([]Suggestion, len(s))
	copy(out, s)
	return out
}
