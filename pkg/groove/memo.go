package groove

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// memo is an insert-once cache. Concurrent misses on the same key share a
// single computation, and a value is never recomputed once stored.
type memo[V any] struct {
	mu       sync.RWMutex
	values   map[string]V
	group    singleflight.Group
	computes atomic.Int64
}

func newMemo[V any]() *memo[V] {
	return &memo[V]{values: make(map[string]V)}
}

func (m *memo[V]) lookup(key string) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// get returns the cached value for key, calling compute on the first miss
func (m *memo[V]) get(key string, compute func() V) V {
	if v, ok := m.lookup(key); ok {
		return v
	}

	result, _, _ := m.group.Do(key, func() (any, error) {
		// A flight that finished between lookup and Do already stored it.
		if v, ok := m.lookup(key); ok {
			return v, nil
		}
		v := compute()
		m.computes.Add(1)

		m.mu.Lock()
		m.values[key] = v
		m.mu.Unlock()
		return v, nil
	})
	return result.(V)
}
