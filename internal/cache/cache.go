// internal/cache/cache.go
package cache

import (
	"container/list"
	"sync"

	"github.com/rs/zerolog/log"
)

// ByteCache defines the interface for caching fetched media bodies.
//
// The image collector consults it before issuing a network request so a
// photo referenced by several records is fetched once per run.
type ByteCache interface {
	// Get retrieves cached bytes by key.
	// Returns the bytes and a boolean indicating if the key was found.
	Get(key string) ([]byte, bool)

	// Set stores bytes under the key.
	// If the key already exists, it is updated.
	// Implementations may evict entries based on their eviction strategy.
	Set(key string, data []byte)

	// Clear removes all cached entries.
	Clear()
}

// cacheEntry holds one fetched body with its key for LRU tracking
type cacheEntry struct {
	Data []byte
	Key  string
}

// MemoryCache implements in-memory byte caching with LRU eviction
type MemoryCache struct {
	store   map[string]*list.Element // Map key to list element
	lruList *list.List               // Doubly-linked list for LRU ordering
	mu      sync.Mutex
	maxSize int64 // Maximum cache size in bytes
	size    int64 // Current size in bytes
	hits    uint64
	misses  uint64
}

// NewMemoryCache creates a new in-memory cache with LRU eviction
func NewMemoryCache(maxSizeBytes int64) *MemoryCache {
	if maxSizeBytes <= 0 {
		maxSizeBytes = 64 * 1024 * 1024 // Default: 64MB
	}

	return &MemoryCache{
		store:   make(map[string]*list.Element),
		lruList: list.New(),
		maxSize: maxSizeBytes,
	}
}

// Get retrieves cached bytes and marks the entry most recently used
func (mc *MemoryCache) Get(key string) ([]byte, bool) {
	mc.mu.Lock()
	element, exists := mc.store[key]
	if !exists {
		mc.misses++
		mc.mu.Unlock()
		return nil, false
	}

	entry := element.Value.(*cacheEntry)
	mc.lruList.MoveToFront(element)
	mc.hits++
	mc.mu.Unlock()

	log.Debug().Str("key", key).Msg("Cache hit")
	return entry.Data, true
}

// Set stores bytes under the key, evicting least recently used entries
// until the new entry fits
func (mc *MemoryCache) Set(key string, data []byte) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	size := int64(len(data)) + 128 // ~128B overhead for struct and map entry

	// Key already present - update in place
	if element, exists := mc.store[key]; exists {
		oldEntry := element.Value.(*cacheEntry)
		mc.size -= int64(len(oldEntry.Data)) + 128

		element.Value = &cacheEntry{Data: data, Key: key}
		mc.lruList.MoveToFront(element)
		mc.size += size
		return
	}

	for mc.size+size > mc.maxSize && mc.lruList.Len() > 0 {
		mc.evictLRU()
	}

	element := mc.lruList.PushFront(&cacheEntry{Data: data, Key: key})
	mc.store[key] = element
	mc.size += size

	log.Debug().
		Str("key", key).
		Int64("size_bytes", size).
		Msg("Cached fetched bytes")
}

// Clear removes all cached entries
func (mc *MemoryCache) Clear() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.store = make(map[string]*list.Element)
	mc.lruList = list.New()
	mc.size = 0
	mc.hits = 0
	mc.misses = 0
}

// Stats returns hit and miss counters
func (mc *MemoryCache) Stats() (hits, misses uint64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.hits, mc.misses
}

// evictLRU removes the least recently used entry (must be called with lock held)
func (mc *MemoryCache) evictLRU() {
	element := mc.lruList.Back()
	if element == nil {
		return
	}

	entry := element.Value.(*cacheEntry)
	mc.lruList.Remove(element)
	delete(mc.store, entry.Key)
	mc.size -= int64(len(entry.Data)) + 128

	log.Debug().Str("key", entry.Key).Msg("Evicted from cache (LRU)")
}
