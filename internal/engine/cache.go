package engine

import (
	"strconv"
	"sync"
	"time"
)

// resultCache is a mutex-guarded TTL cache for completed analyses.
// Entries are immutable once stored: expiry discards and recomputes,
// never updates in place. Expired entries are evicted lazily on access.
type resultCache struct {
	mu    sync.Mutex
	items map[string]cacheEntry
	// now is swappable for tests.
	now func() time.Time
}

type cacheEntry struct {
	value     *Analysis
	expiresAt time.Time
}

func newResultCache() *resultCache {
	return &resultCache{
		items: make(map[string]cacheEntry),
		now:   time.Now,
	}
}

// cacheKey buckets by symbol and spot rounded to cents, so float noise in
// the spot feed does not defeat caching.
func cacheKey(symbol string, spot float64) string {
	return symbol + ":" + strconv.FormatFloat(round2(spot), 'f', 2, 64)
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

// GetOrCompute returns the cached value for key, or runs compute and
// stores the result for ttl. Duplicate concurrent computes for the same
// key are allowed; results are idempotent for identical inputs inside
// the TTL window, so last write wins.
func (c *resultCache) GetOrCompute(key string, ttl time.Duration, compute func() (*Analysis, error)) (*Analysis, error) {
	c.mu.Lock()
	if entry, ok := c.items[key]; ok {
		if c.now().Before(entry.expiresAt) {
			c.mu.Unlock()
			return entry.value, nil
		}
		delete(c.items, key)
	}
	c.mu.Unlock()

	value, err := compute()
	if err != nil {
		return nil, err
	}

	if ttl > 0 {
		c.mu.Lock()
		c.items[key] = cacheEntry{value: value, expiresAt: c.now().Add(ttl)}
		c.mu.Unlock()
	}
	return value, nil
}

// Invalidate drops a single key.
func (c *resultCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Len reports live (non-expired) entries.
func (c *resultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, entry := range c.items {
		if c.now().Before(entry.expiresAt) {
			n++
		}
	}
	return n
}
