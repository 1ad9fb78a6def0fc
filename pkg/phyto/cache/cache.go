// Package cache memoizes analysis results with a freshness TTL and a
// background sweep of entries nobody has read for a while.
package cache

import (
	"sort"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/clock"
)

// Cache provides thread-safe caching of computed results with TTL
type Cache[V any] struct {
	data    map[string]*cacheEntry[V]
	mutex   sync.RWMutex
	ttl     time.Duration
	maxAge  time.Duration
	clock   clock.Clock
	stopCh  chan struct{}
	once    sync.Once
	metrics *metrics
}

type cacheEntry[V any] struct {
	value     V
	timestamp time.Time
	hits      int64
}

type metrics struct {
	hits   int64
	misses int64
	mutex  sync.RWMutex
}

// New creates a cache. ttl bounds how long an entry is served; entries older
// than maxAge are swept by a background goroutine until Close.
func New[V any](ttl, maxAge time.Duration, clk clock.Clock) *Cache[V] {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	if clk == nil {
		clk = clock.RealClock{}
	}

	c := &Cache[V]{
		data:    make(map[string]*cacheEntry[V]),
		ttl:     ttl,
		maxAge:  maxAge,
		clock:   clk,
		stopCh:  make(chan struct{}),
		metrics: &metrics{},
	}

	go c.cleanup()

	return c
}

// Get returns the value for key if it is younger than the TTL
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	c.mutex.RLock()
	entry, exists := c.data[key]
	c.mutex.RUnlock()

	if !exists {
		c.recordMiss()
		return zero, false
	}

	if age := c.clock.Since(entry.timestamp); age > c.ttl {
		c.recordMiss()
		return zero, false
	}

	c.mutex.Lock()
	entry.hits++
	c.mutex.Unlock()
	c.recordHit()

	return entry.value, true
}

// Set stores value under key
func (c *Cache[V]) Set(key string, value V) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = &cacheEntry[V]{
		value:     value,
		timestamp: c.clock.Now(),
	}

	klog.V(4).InfoS("Cached result", "key", key)
}

// GetMetrics returns cache performance metrics
func (c *Cache[V]) GetMetrics() (hits, misses int64) {
	c.metrics.mutex.RLock()
	defer c.metrics.mutex.RUnlock()
	return c.metrics.hits, c.metrics.misses
}

func (c *Cache[V]) recordHit() {
	c.metrics.mutex.Lock()
	c.metrics.hits++
	c.metrics.mutex.Unlock()
}

func (c *Cache[V]) recordMiss() {
	c.metrics.mutex.Lock()
	c.metrics.misses++
	c.metrics.mutex.Unlock()
}

// cleanup periodically removes entries older than maxAge
func (c *Cache[V]) cleanup() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *Cache[V]) removeExpired() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.clock.Now()
	for key, entry := range c.data {
		age := now.Sub(entry.timestamp)
		if age > c.maxAge {
			delete(c.data, key)
			klog.V(4).InfoS("Removed expired cache entry",
				"key", key,
				"age", age.String(),
				"hits", entry.hits)
		}
	}
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (c *Cache[V]) Close() {
	c.once.Do(func() { close(c.stopCh) })
}

// Clear removes all entries from the cache
func (c *Cache[V]) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data = make(map[string]*cacheEntry[V])
	klog.V(4).Info("Cleared cache")
}

// Size returns the number of entries in the cache
func (c *Cache[V]) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Keys returns the cached keys in sorted order
func (c *Cache[V]) Keys() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	keys := make([]string, 0, len(c.data))
	for key := range c.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
