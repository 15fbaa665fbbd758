// cache.go: TTL + LRU cache store
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package celeris

import (
	"container/list"
	"regexp"
	"strings"
	"sync"
	"time"
)

// CacheEntry is a snapshot of one cached value and its bookkeeping.
// Timestamps are nanoseconds since epoch, as returned by the TimeProvider.
type CacheEntry struct {
	Key            string
	Value          interface{}
	CreatedAt      int64
	LastAccessedAt int64
	TTL            time.Duration
	AccessCount    uint64

	// SizeBytes is an estimate (encoded length of the value plus the key),
	// not an exact memory accounting.
	SizeBytes int64
}

// expired reports whether the entry is logically absent at now.
func (e *CacheEntry) expired(now int64) bool {
	return now-e.CreatedAt > int64(e.TTL)
}

// CacheStats provides statistics about cache usage.
type CacheStats struct {
	// Entries is the current number of entries (expired ones included until swept)
	Entries int

	// Capacity is the maximum number of entries
	Capacity int

	Hits        uint64
	Misses      uint64
	Sets        uint64
	Evictions   uint64
	Expirations uint64

	// HitRate is Hits / (Hits + Sets), 0 when nothing was recorded.
	// Counters are reset by a full Invalidate.
	HitRate float64

	// TotalSizeBytes is the sum of the estimated entry sizes
	TotalSizeBytes int64

	// OldestEntry and NewestEntry are the creation times of the oldest and
	// newest entries; zero when the store is empty.
	OldestEntry time.Time
	NewestEntry time.Time
}

// CacheStore is a key/value store with per-entry TTL and LRU eviction.
// All methods are safe for concurrent use.
type CacheStore struct {
	mu sync.Mutex

	// entries maps keys to their element in lru; the front of lru is the
	// most recently used entry.
	entries map[string]*list.Element
	lru     *list.List

	maxEntries int
	defaultTTL time.Duration
	totalSize  int64

	hits        uint64
	misses      uint64
	sets        uint64
	evictions   uint64
	expirations uint64

	timeProvider TimeProvider
	logger       Logger
	metrics      MetricsCollector
	onEvict      func(key string, value interface{})
	onExpire     func(key string, value interface{})
}

// removed is an entry dropped under the lock whose callback runs after unlock.
type removed struct {
	key   string
	value interface{}
}

// NewCacheStore creates a cache store from a validated configuration.
func NewCacheStore(config Config) *CacheStore {
	_ = config.Validate()

	return &CacheStore{
		entries:      make(map[string]*list.Element, config.Cache.MaxEntries),
		lru:          list.New(),
		maxEntries:   config.Cache.MaxEntries,
		defaultTTL:   config.Cache.DefaultTTL,
		timeProvider: config.TimeProvider,
		logger:       config.Logger,
		metrics:      config.MetricsCollector,
		onEvict:      config.OnEvict,
		onExpire:     config.OnExpire,
	}
}

// Get retrieves a value. An expired entry is deleted and reported as a miss.
// A hit increments the access count and marks the entry most recently used.
func (c *CacheStore) Get(key string) (interface{}, bool) {
	now := c.timeProvider.Now()

	c.mu.Lock()
	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		c.mu.Unlock()
		c.metrics.RecordCacheGet(false)
		return nil, false
	}

	entry := elem.Value.(*CacheEntry)
	if entry.expired(now) {
		c.removeElement(elem)
		c.expirations++
		c.misses++
		c.mu.Unlock()

		c.metrics.RecordCacheGet(false)
		c.metrics.RecordExpiration()
		if c.onExpire != nil {
			c.onExpire(entry.Key, entry.Value)
		}
		return nil, false
	}

	entry.AccessCount++
	entry.LastAccessedAt = now
	c.lru.MoveToFront(elem)
	c.hits++
	value := entry.Value
	c.mu.Unlock()

	c.metrics.RecordCacheGet(true)
	return value, true
}

// Set stores a value with the default TTL.
func (c *CacheStore) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, 0)
}

// SetWithTTL stores a value with the given TTL (ttl <= 0 uses the default).
// Writing an existing key replaces the entry and resets its access metadata.
// When the store is full, the least recently used entry is evicted first.
func (c *CacheStore) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	size, err := estimateSize(key, value)
	if err != nil {
		c.logger.Warn("cache entry size estimate failed, using fallback",
			"key", key, "fallback_bytes", size, "error", NewErrSizeEstimateFailed(key, err))
	}

	now := c.timeProvider.Now()

	c.mu.Lock()
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	entry := &CacheEntry{
		Key:            key,
		Value:          value,
		CreatedAt:      now,
		LastAccessedAt: now,
		TTL:            ttl,
		SizeBytes:      size,
	}

	var victim *removed
	if elem, ok := c.entries[key]; ok {
		old := elem.Value.(*CacheEntry)
		c.totalSize -= old.SizeBytes
		elem.Value = entry
		c.lru.MoveToFront(elem)
	} else {
		if len(c.entries) >= c.maxEntries {
			victim = c.evictOldest()
		}
		c.entries[key] = c.lru.PushFront(entry)
	}
	c.totalSize += size
	c.sets++
	c.mu.Unlock()

	c.metrics.RecordCacheSet()
	if victim != nil {
		c.metrics.RecordEviction()
		c.logger.Debug("cache entry evicted", "key", victim.key)
		if c.onEvict != nil {
			c.onEvict(victim.key, victim.value)
		}
	}
}

// Delete removes a key. Returns true if it was present.
func (c *CacheStore) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeElement(elem)
	return true
}

// Has reports whether key is present and not expired, without touching
// recency or statistics.
func (c *CacheStore) Has(key string) bool {
	now := c.timeProvider.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	return ok && !elem.Value.(*CacheEntry).expired(now)
}

// Peek returns a copy of the entry bookkeeping without counting an access.
func (c *CacheStore) Peek(key string) (CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return CacheEntry{}, false
	}
	return *elem.Value.(*CacheEntry), true
}

// Invalidate removes entries and returns how many were removed.
// An empty pattern clears the store and resets the hit statistics.
// Otherwise pattern is a regular expression (plain substrings work as-is)
// matched against keys.
func (c *CacheStore) Invalidate(pattern string) (int, error) {
	if pattern == "" {
		c.mu.Lock()
		count := len(c.entries)
		c.entries = make(map[string]*list.Element, c.maxEntries)
		c.lru.Init()
		c.totalSize = 0
		c.hits, c.misses, c.sets = 0, 0, 0
		c.mu.Unlock()

		c.logger.Debug("cache cleared", "removed", count)
		return count, nil
	}

	match, err := compilePattern(pattern)
	if err != nil {
		return 0, NewErrInvalidPattern(pattern, err)
	}

	c.mu.Lock()
	count := 0
	for key, elem := range c.entries {
		if match(key) {
			c.removeElement(elem)
			count++
		}
	}
	c.mu.Unlock()

	c.logger.Debug("cache invalidated", "pattern", pattern, "removed", count)
	return count, nil
}

// CleanupExpired removes every expired entry and returns the count.
// The optimizer calls it periodically so never-read keys do not pin memory.
func (c *CacheStore) CleanupExpired() int {
	now := c.timeProvider.Now()

	c.mu.Lock()
	var dropped []removed
	for elem := c.lru.Back(); elem != nil; {
		prev := elem.Prev()
		entry := elem.Value.(*CacheEntry)
		if entry.expired(now) {
			c.removeElement(elem)
			c.expirations++
			dropped = append(dropped, removed{key: entry.Key, value: entry.Value})
		}
		elem = prev
	}
	c.mu.Unlock()

	for _, r := range dropped {
		c.metrics.RecordExpiration()
		if c.onExpire != nil {
			c.onExpire(r.key, r.value)
		}
	}
	return len(dropped)
}

// Len returns the current number of entries.
func (c *CacheStore) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Capacity returns the maximum number of entries.
func (c *CacheStore) Capacity() int {
	return c.maxEntries
}

// SetDefaultTTL changes the TTL used by Set for new writes.
func (c *CacheStore) SetDefaultTTL(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.defaultTTL = ttl
	c.mu.Unlock()
}

// DefaultTTL returns the TTL used by Set.
func (c *CacheStore) DefaultTTL() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.defaultTTL
}

// Stats returns cache statistics.
func (c *CacheStore) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{
		Entries:        len(c.entries),
		Capacity:       c.maxEntries,
		Hits:           c.hits,
		Misses:         c.misses,
		Sets:           c.sets,
		Evictions:      c.evictions,
		Expirations:    c.expirations,
		TotalSizeBytes: c.totalSize,
	}
	if total := c.hits + c.sets; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}

	first := true
	var oldest, newest int64
	for _, elem := range c.entries {
		created := elem.Value.(*CacheEntry).CreatedAt
		if first || created < oldest {
			oldest = created
		}
		if first || created > newest {
			newest = created
		}
		first = false
	}
	if !first {
		stats.OldestEntry = time.Unix(0, oldest)
		stats.NewestEntry = time.Unix(0, newest)
	}
	return stats
}

// clear drops every entry without touching statistics. Used on Close.
func (c *CacheStore) clear() {
	c.mu.Lock()
	c.entries = make(map[string]*list.Element)
	c.lru.Init()
	c.totalSize = 0
	c.mu.Unlock()
}

// evictOldest removes the least recently used entry. Caller holds c.mu.
func (c *CacheStore) evictOldest() *removed {
	elem := c.lru.Back()
	if elem == nil {
		return nil
	}
	entry := elem.Value.(*CacheEntry)
	c.removeElement(elem)
	c.evictions++
	return &removed{key: entry.Key, value: entry.Value}
}

// removeElement unlinks elem from both indexes. Caller holds c.mu.
func (c *CacheStore) removeElement(elem *list.Element) {
	entry := c.lru.Remove(elem).(*CacheEntry)
	delete(c.entries, entry.Key)
	c.totalSize -= entry.SizeBytes
}

// compilePattern returns a key matcher. Patterns without regexp
// metacharacters use a plain substring test.
func compilePattern(pattern string) (func(string) bool, error) {
	if regexp.QuoteMeta(pattern) == pattern {
		return func(key string) bool { return strings.Contains(key, pattern) }, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return re.MatchString, nil
}
