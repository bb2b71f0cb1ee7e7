package infra

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache size limits to prevent unbounded memory growth
const (
	DefaultMaxCacheEntries = 256
	DefaultCacheTTL        = 5 * time.Minute
)

// Cache is a bounded LRU with a single TTL, used for slow-changing catalogs
// (spaces, projects, link types). Item reads are never cached.
type Cache struct {
	lru       *expirable.LRU[string, []byte]
	evictions atomic.Int64
}

// NewCache creates a cache holding at most maxEntries values for ttl each.
func NewCache(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxCacheEntries
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &Cache{}
	c.lru = expirable.NewLRU[string, []byte](maxEntries, func(string, []byte) {
		c.evictions.Add(1)
	}, ttl)
	return c
}

// Get retrieves a cached value if it exists and hasn't expired
func (c *Cache) Get(key string) ([]byte, bool) {
	return c.lru.Get(key)
}

// Set stores a value in the cache
func (c *Cache) Set(key string, data []byte) {
	c.lru.Add(key, data)
}

// Delete removes a key from the cache
func (c *Cache) Delete(key string) {
	c.lru.Remove(key)
}

// DeletePrefix removes all cache entries with keys starting with prefix
func (c *Cache) DeletePrefix(prefix string) {
	for _, k := range c.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.lru.Remove(k)
		}
	}
}

// Size returns the current number of entries in the cache
func (c *Cache) Size() int {
	return c.lru.Len()
}

// Evictions returns how many entries were dropped by capacity, expiry or removal.
func (c *Cache) Evictions() int64 {
	return c.evictions.Load()
}

// Close drops every entry.
func (c *Cache) Close() {
	c.lru.Purge()
}
