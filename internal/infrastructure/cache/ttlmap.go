package cache

import (
	"sync"
	"time"
)

// ttlMap is a mutex-guarded map whose entries stop being visible once their
// deadline passes. Expired entries are removed lazily by the accessors and
// in bulk by sweep.
type ttlMap[K comparable, V any] struct {
	mu    sync.Mutex
	items map[K]ttlItem[V]
	now   func() time.Time
}

type ttlItem[V any] struct {
	value    V
	deadline time.Time
}

func newTTLMap[K comparable, V any]() *ttlMap[K, V] {
	return &ttlMap[K, V]{items: make(map[K]ttlItem[V]), now: time.Now}
}

// live returns the entry for key when it has not expired. Callers hold mu.
func (m *ttlMap[K, V]) live(key K) (V, bool) {
	item, ok := m.items[key]
	if ok && m.now().Before(item.deadline) {
		return item.value, true
	}
	if ok {
		delete(m.items, key)
	}
	var zero V
	return zero, false
}

func (m *ttlMap[K, V]) get(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live(key)
}

func (m *ttlMap[K, V]) set(key K, value V, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = ttlItem[V]{value: value, deadline: m.now().Add(ttl)}
}

// setIfAbsent stores value unless a live entry exists. It reports whether
// the value was stored.
func (m *ttlMap[K, V]) setIfAbsent(key K, value V, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live(key); ok {
		return false
	}
	m.items[key] = ttlItem[V]{value: value, deadline: m.now().Add(ttl)}
	return true
}

// deleteIf removes key when match accepts its live value
func (m *ttlMap[K, V]) deleteIf(key K, match func(V) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.live(key); ok && match(v) {
		delete(m.items, key)
	}
}

// sweep drops every expired entry and returns how many were removed
func (m *ttlMap[K, V]) sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for key, item := range m.items {
		if !now.Before(item.deadline) {
			delete(m.items, key)
			removed++
		}
	}
	return removed
}

func (m *ttlMap[K, V]) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
