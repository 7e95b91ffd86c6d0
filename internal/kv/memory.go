// internal/kv/memory.go
//
// In-process Store implementation: a mutex-guarded map with lazy expiry.
// Entries are dropped on read once stale; a small sweep runs on Set so a
// write-mostly workload cannot grow the map without bound.
package kv

import (
	"context"
	"sync"
	"time"
)

const sweepEvery = 256 // Set calls between full sweeps

// Memory is a TTL map suitable for a few thousand entries.  Zero value is
// unusable; construct with NewMemory.
type Memory struct {
	mu     sync.RWMutex
	data   map[string]memEntry
	writes int
}

type memEntry struct {
	val []byte
	exp time.Time
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]memEntry)}
}

// Get returns the value for key, treating expired entries as absent.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	ent, ok := m.data[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if time.Now().After(ent.exp) {
		m.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have renewed it.
		if cur, still := m.data[key]; still && time.Now().After(cur.exp) {
			delete(m.data, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	return ent.val, true, nil
}

// Set stores val under key for ttl.  A non-positive ttl stores nothing.
func (m *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	m.mu.Lock()
	m.data[key] = memEntry{val: val, exp: time.Now().Add(ttl)}
	m.writes++
	if m.writes%sweepEvery == 0 {
		now := time.Now()
		for k, ent := range m.data {
			if now.After(ent.exp) {
				delete(m.data, k)
			}
		}
	}
	m.mu.Unlock()
	return nil
}

// Delete removes the given keys.  Absent keys are ignored.
func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.data, k)
	}
	m.mu.Unlock()
	return nil
}

// Len reports current entry count, including not-yet-swept stale entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
