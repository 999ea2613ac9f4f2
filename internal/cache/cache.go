// SPDX-License-Identifier: MIT

// Package cache keeps fetched guide documents for a configurable TTL so that
// consecutive lookups do not download the same XMLTV file again.
package cache

import (
	"sync"
	"time"
)

// Backend names as used in configuration and metrics.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendDisk   = "disk"
	BackendNone   = "none"
)

// Cache provides thread-safe byte storage with expiration support.
type Cache interface {
	// Get retrieves a value. Expired entries are reported as missing.
	Get(key string) ([]byte, bool)
	// Set stores a value with the specified TTL.
	Set(key string, value []byte, ttl time.Duration)
	// Delete removes a value.
	Delete(key string)
	// Clear removes all values owned by this cache.
	Clear()
	// Stats returns cache statistics.
	Stats() CacheStats
	// Backend names the implementation for logs and metrics.
	Backend() string
}

// CacheStats holds cache performance metrics.
type CacheStats struct {
	Hits        int64 // Number of successful Get operations
	Misses      int64 // Number of failed Get operations (not found or expired)
	Sets        int64 // Number of Set operations
	Evictions   int64 // Number of expired entries cleaned up
	CurrentSize int   // Current number of cached entries
}

type entry struct {
	value      []byte
	expiration time.Time
}

func (e *entry) isExpired(now time.Time) bool {
	return now.After(e.expiration)
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*entry
	stats   CacheStats
	now     func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewMemoryCache creates an in-memory cache. A positive cleanupInterval
// starts a janitor goroutine that removes expired entries; call Stop to end
// it.
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]*entry),
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go c.janitor(cleanupInterval)
	} else {
		close(c.done)
	}
	return c
}

func (c *MemoryCache) Backend() string { return BackendMemory }

// Get retrieves a value from the cache.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[key]
	if !found || e.isExpired(c.now()) {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return e.value, true
}

// Set stores a value in the cache. The slice is retained, not copied.
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &entry{value: value, expiration: c.now().Add(ttl)}
	c.stats.Sets++
}

func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

func (c *MemoryCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.CurrentSize = len(c.entries)
	return stats
}

// deleteExpired removes all expired entries and returns how many.
func (c *MemoryCache) deleteExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	count := 0
	for key, e := range c.entries {
		if e.isExpired(now) {
			delete(c.entries, key)
			count++
		}
	}
	c.stats.Evictions += int64(count)
	return count
}

// Stop ends the janitor and waits for it to exit. It is safe to call more
// than once.
func (c *MemoryCache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}

func (c *MemoryCache) janitor(interval time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-c.stop:
			return
		}
	}
}

// noOpCache never stores anything; used when caching is disabled.
type noOpCache struct{}

// NewNoOpCache creates a cache that doesn't cache anything.
func NewNoOpCache() Cache {
	return noOpCache{}
}

func (noOpCache) Get(string) ([]byte, bool)          { return nil, false }
func (noOpCache) Set(string, []byte, time.Duration) {}
func (noOpCache) Delete(string)                      {}
func (noOpCache) Clear()                             {}
func (noOpCache) Stats() CacheStats                  { return CacheStats{} }
func (noOpCache) Backend() string                    { return BackendNone }
