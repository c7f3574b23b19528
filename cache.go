package compositefs

import (
	"strings"
	"sync"
	"time"
)

// Cache holds GetInfo results of a CompositeStorage keyed by virtual path
type Cache struct {
	statCache     map[string]*statCacheEntry
	negativeCache map[string]*negativeCacheEntry
	mu            sync.RWMutex
	generation    uint64
	statTTL       time.Duration
	negativeTTL   time.Duration
	maxEntries    int
	enabled       bool
}

type statCacheEntry struct {
	info    FileInfo
	expires time.Time
}

type negativeCacheEntry struct {
	err     error
	expires time.Time
}

func newCache(enabled bool, statTTL, negativeTTL time.Duration, maxEntries int) *Cache {
	if !enabled {
		return &Cache{enabled: false}
	}

	return &Cache{
		statCache:     make(map[string]*statCacheEntry),
		negativeCache: make(map[string]*negativeCacheEntry),
		statTTL:       statTTL,
		negativeTTL:   negativeTTL,
		maxEntries:    maxEntries,
		enabled:       true,
	}
}

// snapshot returns the current generation. A result computed after the
// snapshot is only stored if no invalidation happened in between.
func (c *Cache) snapshot() uint64 {
	if !c.enabled {
		return 0
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// cachedStat is a cached GetInfo outcome; err is set for negative entries
type cachedStat struct {
	info FileInfo
	err  error
}

func (c *Cache) get(uri string) (cachedStat, bool) {
	if !c.enabled {
		return cachedStat{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	if entry, ok := c.statCache[uri]; ok && now.Before(entry.expires) {
		return cachedStat{info: entry.info}, true
	}
	if entry, ok := c.negativeCache[uri]; ok && now.Before(entry.expires) {
		return cachedStat{err: entry.err}, true
	}
	return cachedStat{}, false
}

func (c *Cache) putStat(uri string, info FileInfo, generation uint64) {
	if !c.enabled || c.statTTL <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		return
	}
	if len(c.statCache) >= c.maxEntries {
		c.evictOldestStat()
	}
	c.statCache[uri] = &statCacheEntry{
		info:    info,
		expires: time.Now().Add(c.statTTL),
	}
}

func (c *Cache) putNegative(uri string, err error, generation uint64) {
	if !c.enabled || c.negativeTTL <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		return
	}
	if len(c.negativeCache) >= c.maxEntries {
		c.evictOldestNegative()
	}
	c.negativeCache[uri] = &negativeCacheEntry{
		err:     err,
		expires: time.Now().Add(c.negativeTTL),
	}
}

// invalidateMount drops every entry a mount change at uri can affect: the
// subtree below uri and the synthetic directories above it.
func (c *Cache) invalidateMount(uri string) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	for _, a := range uriAncestors(uri) {
		delete(c.statCache, a)
		delete(c.negativeCache, a)
	}
	for key := range c.statCache {
		if inSubtree(uri, key) {
			delete(c.statCache, key)
		}
	}
	for key := range c.negativeCache {
		if inSubtree(uri, key) {
			delete(c.negativeCache, key)
		}
	}
}

func inSubtree(root, uri string) bool {
	if root == "" || uri == root {
		return true
	}
	return strings.HasPrefix(uri, root) && uri[len(root)] == '/'
}

func (c *Cache) clear() {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.statCache = make(map[string]*statCacheEntry)
	c.negativeCache = make(map[string]*negativeCacheEntry)
}

func (c *Cache) evictOldestStat() {
	var oldestPath string
	var oldestTime time.Time
	found := false

	// the root is cached under "", so track presence separately
	for path, entry := range c.statCache {
		if !found || entry.expires.Before(oldestTime) {
			oldestPath = path
			oldestTime = entry.expires
			found = true
		}
	}

	if found {
		delete(c.statCache, oldestPath)
	}
}

func (c *Cache) evictOldestNegative() {
	var oldestPath string
	var oldestTime time.Time
	found := false

	// the root is cached under "", so track presence separately
	for path, entry := range c.negativeCache {
		if !found || entry.expires.Before(oldestTime) {
			oldestPath = path
			oldestTime = entry.expires
			found = true
		}
	}

	if found {
		delete(c.negativeCache, oldestPath)
	}
}

// Stats returns cache statistics
func (c *Cache) Stats() CacheStats {
	if !c.enabled {
		return CacheStats{Enabled: false}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return CacheStats{
		Enabled:           true,
		StatCacheSize:     len(c.statCache),
		NegativeCacheSize: len(c.negativeCache),
		MaxEntries:        c.maxEntries,
		StatTTL:           c.statTTL,
		NegativeTTL:       c.negativeTTL,
	}
}

// CacheStats contains cache statistics
type CacheStats struct {
	Enabled           bool
	StatCacheSize     int
	NegativeCacheSize int
	MaxEntries        int
	StatTTL           time.Duration
	NegativeTTL       time.Duration
}
