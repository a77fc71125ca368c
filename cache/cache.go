// Package cache provides a sharded, byte-budgeted LRU cache for baseline
// blobs.
//
// Baselines are read once per screenshot but tests re-run often in watch
// loops and in the report server, so repeated reads of the same PNG are
// served from memory.
package cache

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

const (
	// ShardCount is the number of independently locked shards.
	// Must be a power of 2 for fast modulo via bitwise AND.
	ShardCount = 16

	// DefaultMaxBytes is the default total budget (64 MiB).
	DefaultMaxBytes = 64 << 20

	shardMask = ShardCount - 1
)

// Stats is a snapshot of cache statistics.
type Stats struct {
	Len       int
	Bytes     int64
	MaxBytes  int64
	Hits      uint64
	Misses    uint64
	Evictions uint64
	HitRate   float64
}

// Cache maps string keys to byte slices and evicts the least recently used
// entries of a shard once the shard exceeds its share of the byte budget.
//
// Cache is safe for concurrent use. Stored slices are copied on the way in
// and on the way out.
type Cache struct {
	shards        [ShardCount]*shard
	maxShardBytes int64

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*entry
	lru     lruList
	bytes   int64
}

type entry struct {
	data []byte
	node *lruNode
}

// New creates a cache holding at most maxBytes of data in total.
// If maxBytes <= 0, DefaultMaxBytes is used.
func New(maxBytes int64) *Cache {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	c := &Cache{maxShardBytes: max(maxBytes/ShardCount, 1)}
	for i := range c.shards {
		c.shards[i] = &shard{entries: make(map[string]*entry)}
	}
	return c
}

func hashKey(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s)) // fnv.Write never returns an error
	return h.Sum64()
}

func (c *Cache) shardFor(key string) *shard {
	return c.shards[hashKey(key)&shardMask]
}

// Get returns a copy of the data stored under key.
func (c *Cache) Get(key string) ([]byte, bool) {
	s := c.shardFor(key)
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		c.misses.Add(1)
		return nil, false
	}
	s.lru.moveToFront(e.node)
	out := append([]byte(nil), e.data...)
	s.mu.Unlock()

	c.hits.Add(1)
	return out, true
}

// Set stores a copy of data under key. Entries larger than a shard's budget
// are not cached.
func (c *Cache) Set(key string, data []byte) {
	size := int64(len(data))
	s := c.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		s.drop(e)
	}
	if size > c.maxShardBytes {
		return
	}

	for s.bytes+size > c.maxShardBytes {
		oldest := s.lru.oldest()
		if oldest == nil {
			break
		}
		s.drop(s.entries[oldest.key])
		c.evictions.Add(1)
	}

	n := &lruNode{key: key, size: len(data)}
	s.lru.pushFront(n)
	s.entries[key] = &entry{data: append([]byte(nil), data...), node: n}
	s.bytes += size
}

// drop removes e from the shard. The caller holds s.mu.
func (s *shard) drop(e *entry) {
	s.lru.remove(e.node)
	delete(s.entries, e.node.key)
	s.bytes -= int64(e.node.size)
}

// Delete removes key and reports whether it was present.
func (c *Cache) Delete(key string) bool {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return false
	}
	s.drop(e)
	return true
}

// DeleteFunc removes every key for which match returns true and returns the
// number of removed entries.
func (c *Cache) DeleteFunc(match func(key string) bool) int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for k, e := range s.entries {
			if match(k) {
				s.drop(e)
				n++
			}
		}
		s.mu.Unlock()
	}
	return n
}

// Clear removes all entries.
func (c *Cache) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.entries = make(map[string]*entry)
		s.lru = lruList{}
		s.bytes = 0
		s.mu.Unlock()
	}
}

// Len returns the number of entries across all shards.
func (c *Cache) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.Lock()
		total += len(s.entries)
		s.mu.Unlock()
	}
	return total
}

// Bytes returns the total size of all cached data.
func (c *Cache) Bytes() int64 {
	var total int64
	for _, s := range c.shards {
		s.mu.Lock()
		total += s.bytes
		s.mu.Unlock()
	}
	return total
}

// Stats returns current cache statistics.
func (c *Cache) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{
		Len:       c.Len(),
		Bytes:     c.Bytes(),
		MaxBytes:  c.maxShardBytes * ShardCount,
		Hits:      hits,
		Misses:    misses,
		Evictions: c.evictions.Load(),
		HitRate:   rate,
	}
}

// ResetStats resets the hit, miss and eviction counters.
func (c *Cache) ResetStats() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
}
