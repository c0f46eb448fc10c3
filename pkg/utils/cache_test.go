package utils

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCache_SetAndGet(t *testing.T) {
	cache := NewTTLCache[int, string](time.Minute)

	cache.Set(1, "one")

	value, ok := cache.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "one", value)
	assert.False(t, cache.Has(2))
}

func TestTTLCache_Expiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewTTLCache[int, bool](time.Minute)
	cache.now = func() time.Time { return now }

	cache.Set(7, true)
	assert.True(t, cache.Has(7))

	now = now.Add(2 * time.Minute)
	assert.False(t, cache.Has(7))
	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, 1, cache.Prune())
	assert.Equal(t, 0, cache.Len())
}

func TestTTLCache_ConcurrentAccess(t *testing.T) {
	cache := NewTTLCache[int, int](time.Minute)
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.Set(id*100+j, j)
				cache.Get(id*100 + j)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1000, cache.Len())
}
