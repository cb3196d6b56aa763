// Package cache provides the parse result cache backends
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/flavorbuddy/web/internal/ports/outbound"
)

// LocalCache provides thread-safe in-memory caching with LRU eviction
type LocalCache struct {
	items   map[string]*localCacheItem
	lruList *lruList
	maxSize int
	now     func() time.Time
	stats   LocalCacheStats
	mu      sync.Mutex
}

var _ outbound.CacheRepository = (*LocalCache)(nil)

// localCacheItem represents a cached item with TTL and LRU tracking
type localCacheItem struct {
	data      []byte
	expiresAt time.Time
	lruNode   *lruNode
}

// lruList is a doubly-linked list with sentinel head and tail; the most
// recently used key sits right after head.
type lruList struct {
	head *lruNode
	tail *lruNode
}

type lruNode struct {
	key  string
	prev *lruNode
	next *lruNode
}

// LocalCacheStats counts cache activity
type LocalCacheStats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`
}

// NewLocalCache creates a new local cache with specified maximum size
func NewLocalCache(maxSize int) *LocalCache {
	if maxSize <= 0 {
		maxSize = 1000
	}

	lru := &lruList{head: &lruNode{}, tail: &lruNode{}}
	lru.head.next = lru.tail
	lru.tail.prev = lru.head

	return &LocalCache{
		items:   make(map[string]*localCacheItem),
		lruList: lru,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get returns a copy of the value at key or outbound.ErrCacheMiss
func (lc *LocalCache) Get(_ context.Context, key string) ([]byte, error) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	item, exists := lc.items[key]
	if !exists {
		lc.stats.Misses++
		return nil, outbound.ErrCacheMiss
	}
	if !lc.now().Before(item.expiresAt) {
		lc.deleteItem(key, item)
		lc.stats.Misses++
		return nil, outbound.ErrCacheMiss
	}

	lc.moveToFront(item.lruNode)
	lc.stats.Hits++
	return append([]byte(nil), item.data...), nil
}

// Set stores a copy of value for ttl. A non-positive ttl deletes the key.
func (lc *LocalCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if ttl <= 0 {
		if item, exists := lc.items[key]; exists {
			lc.deleteItem(key, item)
		}
		return nil
	}

	data := append([]byte(nil), value...)
	expiresAt := lc.now().Add(ttl)

	if existing, exists := lc.items[key]; exists {
		existing.data = data
		existing.expiresAt = expiresAt
		lc.moveToFront(existing.lruNode)
		return nil
	}

	node := &lruNode{key: key}
	lc.items[key] = &localCacheItem{data: data, expiresAt: expiresAt, lruNode: node}
	lc.addToFront(node)
	lc.evictIfNecessary()
	return nil
}

// Delete removes an item from the cache
func (lc *LocalCache) Delete(_ context.Context, key string) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if item, exists := lc.items[key]; exists {
		lc.deleteItem(key, item)
	}
	return nil
}

// Size returns the number of stored entries, expired ones included
func (lc *LocalCache) Size() int {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return len(lc.items)
}

// CleanupExpired drops expired entries and returns how many were removed
func (lc *LocalCache) CleanupExpired() int {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	now := lc.now()
	removed := 0
	for key, item := range lc.items {
		if !now.Before(item.expiresAt) {
			lc.deleteItem(key, item)
			removed++
		}
	}
	return removed
}

// GetStats returns a snapshot of the counters
func (lc *LocalCache) GetStats() LocalCacheStats {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	stats := lc.stats
	stats.Size = len(lc.items)
	return stats
}

// AutoCleanup removes expired entries every interval until ctx is done
func (lc *LocalCache) AutoCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			lc.CleanupExpired()
		}
	}
}

func (lc *LocalCache) deleteItem(key string, item *localCacheItem) {
	lc.removeFromList(item.lruNode)
	delete(lc.items, key)
}

func (lc *LocalCache) evictIfNecessary() {
	for len(lc.items) > lc.maxSize {
		oldest := lc.lruList.tail.prev
		if oldest == lc.lruList.head {
			return
		}
		lc.deleteItem(oldest.key, lc.items[oldest.key])
		lc.stats.Evictions++
	}
}

func (lc *LocalCache) addToFront(node *lruNode) {
	node.prev = lc.lruList.head
	node.next = lc.lruList.head.next
	lc.lruList.head.next.prev = node
	lc.lruList.head.next = node
}

func (lc *LocalCache) removeFromList(node *lruNode) {
	node.prev.next = node.next
	node.next.prev = node.prev
}

func (lc *LocalCache) moveToFront(node *lruNode) {
	lc.removeFromList(node)
	lc.addToFront(node)
}
