// Package cache provides a compiled-SQL cache for CypherGraph.
//
// Caching avoids re-running the full parse/analyze/plan/render pipeline for
// identical queries, keyed on the query text, the shape (not values) of its
// parameters, and the catalog schema version in effect at compile time - a
// schema refresh invalidates every entry implicitly by changing the key.
//
// Example:
//
//	c := cache.NewQueryCache(1000, 5*time.Minute)
//	key := c.Key(queryText, params, schemaVersion)
//	if sql, ok := c.Get(key); ok {
//		return sql.(string)
//	}
//	sql := compile(queryText)
//	c.Put(key, sql)
package cache

import (
	"container/list"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
)

// QueryCache is a thread-safe LRU+TTL cache for compiled SQL text.
type QueryCache struct {
	mu sync.RWMutex

	maxSize int
	ttl     time.Duration
	enabled bool

	list  *list.List
	items map[uint64]*list.Element

	hits   uint64
	misses uint64
}

type cacheEntry struct {
	key       uint64
	value     interface{}
	expiresAt time.Time
}

// NewQueryCache creates a cache holding up to maxSize entries, each valid
// for ttl (0 = no expiration, LRU-only eviction).
func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &QueryCache{
		maxSize: maxSize,
		ttl:     ttl,
		enabled: true,
		list:    list.New(),
		items:   make(map[uint64]*list.Element, maxSize),
	}
}

// Key hashes the query text, the sorted set of parameter names (not their
// values, so a parameterized query caches once across calls), and the
// catalog schema version into a single cache key.
func (c *QueryCache) Key(query string, params map[string]interface{}, schemaVersion int) uint64 {
	h := xxhash.New()
	h.WriteString(query)

	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		h.WriteString(name)
	}

	var versionBuf [8]byte
	v := uint64(schemaVersion)
	for i := 0; i < 8; i++ {
		versionBuf[i] = byte(v >> (8 * i))
	}
	h.Write(versionBuf[:])

	return h.Sum64()
}

// Get retrieves cached SQL if present and not expired, promoting it to the
// front of the LRU list on hit.
func (c *QueryCache) Get(key uint64) (interface{}, bool) {
	if !c.enabled {
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}

	c.mu.RLock()
	elem, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}

	entry := elem.Value.(*cacheEntry)

	if c.ttl > 0 && time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		c.removeElement(elem)
		c.mu.Unlock()
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}

	c.mu.Lock()
	c.list.MoveToFront(elem)
	c.mu.Unlock()

	atomic.AddUint64(&c.hits, 1)
	return entry.value, true
}

// Put stores compiled SQL under key, evicting the least recently used entry
// if the cache is at capacity.
func (c *QueryCache) Put(key uint64, value interface{}) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.value = value
		if c.ttl > 0 {
			entry.expiresAt = time.Now().Add(c.ttl)
		}
		c.list.MoveToFront(elem)
		return
	}

	for c.list.Len() >= c.maxSize {
		c.evictOldest()
	}

	entry := &cacheEntry{key: key, value: value}
	if c.ttl > 0 {
		entry.expiresAt = time.Now().Add(c.ttl)
	}

	elem := c.list.PushFront(entry)
	c.items[key] = elem
}

// Remove evicts a single entry.
func (c *QueryCache) Remove(key uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Clear empties the cache, used when a catalog refresh makes every cached
// entry's schema version stale.
func (c *QueryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.list.Init()
	c.items = make(map[uint64]*list.Element, c.maxSize)
}

// Len returns the number of cached entries.
func (c *QueryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.list.Len()
}

// Stats returns cache hit/miss counters.
func (c *QueryCache) Stats() CacheStats {
	hits := atomic.LoadUint64(&c.hits)
	misses := atomic.LoadUint64(&c.misses)

	c.mu.RLock()
	size := c.list.Len()
	c.mu.RUnlock()

	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	return CacheStats{
		Size:    size,
		MaxSize: c.maxSize,
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate,
	}
}

// CacheStats holds cache performance counters.
type CacheStats struct {
	Size    int
	MaxSize int
	Hits    uint64
	Misses  uint64
	HitRate float64
}

// SetEnabled enables or disables the cache, clearing it on disable.
func (c *QueryCache) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled

	if !enabled {
		c.list.Init()
		c.items = make(map[uint64]*list.Element, c.maxSize)
	}
}

func (c *QueryCache) evictOldest() {
	elem := c.list.Back()
	if elem != nil {
		c.removeElement(elem)
	}
}

func (c *QueryCache) removeElement(elem *list.Element) {
	c.list.Remove(elem)
	entry := elem.Value.(*cacheEntry)
	delete(c.items, entry.key)
}
