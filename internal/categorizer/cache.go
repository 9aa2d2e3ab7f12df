package categorizer

import (
	"strings"
	"sync"
	"time"

	"github.com/spendlens/spendlens/internal/domain"
)

// Cache memoizes LLM categorization results keyed by merchant and
// transaction type. It is bounded: entries expire after a TTL, and when the
// cache is full the oldest entry is evicted. The cache is owned by the
// hybrid categorizer it is injected into, never ambient process state.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time // overridable in tests
}

type cacheEntry struct {
	result   Result
	storedAt time.Time
}

// NewCache creates a cache holding at most maxEntries results for ttl each.
func NewCache(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{
		entries:    make(map[string]cacheEntry, maxEntries),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Key builds the cache key for a merchant/type pair.
func Key(merchant string, txType domain.TransactionType) string {
	return strings.ToLower(strings.TrimSpace(merchant)) + "_" + string(txType)
}

// Get returns the cached result for key, if present and not expired.
func (c *Cache) Get(key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Result{}, false
	}
	if c.now().Sub(e.storedAt) > c.ttl {
		delete(c.entries, key)
		return Result{}, false
	}
	return e.result, true
}

// Put stores a result, evicting the oldest entry if the cache is full.
func (c *Cache) Put(key string, res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = cacheEntry{result: res, storedAt: c.now()}
}

// Len reports the number of live entries, expired ones included until read.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for k, e := range c.entries {
		if first || e.storedAt.Before(oldestAt) {
			oldestKey, oldestAt = k, e.storedAt
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
