package bragapi

import (
	"hash/fnv"
	"net/http"
	"path"
	"sync"
	"time"
)

// CacheEntry is one cached API response. Body holds the raw JSON payload;
// the entry is decoded again on every hit so callers never share payload
// references.
type CacheEntry struct {
	StatusCode int         `json:"status_code"`
	Body       []byte      `json:"body"`
	Header     http.Header `json:"header,omitempty"`
	StoredAt   time.Time   `json:"stored_at"`
	ExpiresAt  time.Time   `json:"expires_at"`
}

// expired reports whether the entry's TTL has elapsed.
func (e *CacheEntry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// MemoryCache is the in-process cache tier: a sharded map scoped to the
// client's lifetime. Entries leave it through TTL expiry on read, explicit
// invalidation, or process exit.
type MemoryCache struct {
	shards    []*cacheShard
	numShards int
}

type cacheShard struct {
	mu    sync.RWMutex
	store map[string]*CacheEntry
}

// NewMemoryCache creates the in-process tier.
func NewMemoryCache() *MemoryCache {
	const numShards = 16
	shards := make([]*cacheShard, numShards)
	for i := range shards {
		shards[i] = &cacheShard{store: make(map[string]*CacheEntry)}
	}
	return &MemoryCache{shards: shards, numShards: numShards}
}

func (c *MemoryCache) getShard(key string) *cacheShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%uint32(c.numShards)]
}

// Get returns the entry for key, dropping it if expired.
func (c *MemoryCache) Get(key string) (*CacheEntry, bool) {
	shard := c.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	entry, exists := shard.store[key]
	if !exists {
		return nil, false
	}
	if entry.expired(time.Now()) {
		delete(shard.store, key)
		return nil, false
	}
	return entry, true
}

// Set stores an entry under key with the given TTL.
func (c *MemoryCache) Set(key string, entry *CacheEntry, ttl time.Duration) {
	now := time.Now()
	entry.StoredAt = now
	entry.ExpiresAt = now.Add(ttl)

	shard := c.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	shard.store[key] = entry
}

// Delete removes a single key.
func (c *MemoryCache) Delete(key string) {
	shard := c.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	delete(shard.store, key)
}

// DeleteByPattern removes all keys matching a glob pattern ("prefix:*").
func (c *MemoryCache) DeleteByPattern(pattern string) {
	for _, shard := range c.shards {
		shard.mu.Lock()
		for key := range shard.store {
			if ok, err := path.Match(pattern, key); err == nil && ok {
				delete(shard.store, key)
			}
		}
		shard.mu.Unlock()
	}
}

// Clear empties the tier.
func (c *MemoryCache) Clear() {
	for _, shard := range c.shards {
		shard.mu.Lock()
		shard.store = make(map[string]*CacheEntry)
		shard.mu.Unlock()
	}
}

// Len returns the number of live entries across all shards.
func (c *MemoryCache) Len() int {
	total := 0
	for _, shard := range c.shards {
		shard.mu.RLock()
		total += len(shard.store)
		shard.mu.RUnlock()
	}
	return total
}
