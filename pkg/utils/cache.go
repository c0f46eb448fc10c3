package utils

import (
	"sync"
	"time"
)

type ttlEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is a goroutine-safe map whose entries expire after a fixed TTL
type TTLCache[K comparable, V any] struct {
	items map[K]ttlEntry[V]
	mutex sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
}

// NewTTLCache creates a cache whose entries live for ttl
func NewTTLCache[K comparable, V any](ttl time.Duration) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		items: make(map[K]ttlEntry[V]),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Set stores a value, resetting its expiry
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = ttlEntry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Get returns the value for key if present and not expired
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mutex.RLock()
	entry, ok := c.items[key]
	c.mutex.RUnlock()

	if !ok || c.now().After(entry.expiresAt) {
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Has reports whether key is present and not expired
func (c *TTLCache[K, V]) Has(key K) bool {
	_, ok := c.Get(key)
	return ok
}

// Len returns the number of stored entries, expired ones included
func (c *TTLCache[K, V]) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.items)
}

// Prune removes expired entries and returns how many were dropped
func (c *TTLCache[K, V]) Prune() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.items {
		if now.After(entry.expiresAt) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}
