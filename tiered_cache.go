package bragapi

import (
	"context"
	"encoding/json"
	"time"
)

// cacheKeyPrefix namespaces every API response key so whole categories can
// be invalidated by pattern.
const cacheKeyPrefix = "bragapi:api:"

// TieredCache layers the in-process MemoryCache over an optional
// PersistentStore. Reads check memory first, then the store (promoting
// hits); writes and deletes go to both tiers. Deletion clears memory before
// the store so a Get issued immediately after a Delete misses even when the
// store is eventually consistent.
type TieredCache struct {
	memory *MemoryCache
	store  PersistentStore // nil disables the persistent tier
}

// NewTieredCache composes the two tiers. store may be nil.
func NewTieredCache(store PersistentStore) *TieredCache {
	return &TieredCache{
		memory: NewMemoryCache(),
		store:  store,
	}
}

// Get fetches an entry from the fastest tier holding it.
func (tc *TieredCache) Get(ctx context.Context, key string) (*CacheEntry, bool) {
	if entry, ok := tc.memory.Get(key); ok {
		return entry, true
	}
	if tc.store == nil {
		return nil, false
	}

	raw, ok, err := tc.store.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}

	var entry CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// Corrupt persisted entry: drop it rather than serve garbage.
		_ = tc.store.Delete(ctx, key)
		return nil, false
	}
	if entry.expired(time.Now()) {
		return nil, false
	}

	// Promote so the rest of this process lifetime is served from memory.
	remaining := time.Until(entry.ExpiresAt)
	if remaining > 0 {
		tc.memory.Set(key, &entry, remaining)
	}
	return &entry, true
}

// Set writes an entry to both tiers. A persistent-tier write failure is not
// surfaced; the memory tier alone still satisfies the caller contract.
func (tc *TieredCache) Set(ctx context.Context, key string, entry *CacheEntry, ttl time.Duration) error {
	tc.memory.Set(key, entry, ttl)
	if tc.store == nil {
		return nil
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return tc.store.Set(ctx, key, raw, ttl)
}

// Delete removes a single key from both tiers, memory first.
func (tc *TieredCache) Delete(ctx context.Context, key string) error {
	tc.memory.Delete(key)
	if tc.store == nil {
		return nil
	}
	return tc.store.Delete(ctx, key)
}

// DeleteByPattern removes all keys matching a glob pattern from both tiers.
func (tc *TieredCache) DeleteByPattern(ctx context.Context, pattern string) error {
	tc.memory.DeleteByPattern(pattern)
	if tc.store == nil {
		return nil
	}
	return tc.store.DeleteByPattern(ctx, pattern)
}

// Clear flushes every namespaced entry from both tiers. Calling it on an
// already-empty cache is a no-op.
func (tc *TieredCache) Clear(ctx context.Context) error {
	tc.memory.Clear()
	if tc.store == nil {
		return nil
	}
	return tc.store.DeleteByPattern(ctx, cacheKeyPrefix+"*")
}
