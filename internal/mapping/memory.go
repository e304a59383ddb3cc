package mapping

import (
	"context"
	"sync"
)

// MemoryStore keeps mappings in process memory. Mappings are lost on
// restart and are not shared between processes.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[Scope]map[string]Entry
	count   int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[Scope]map[string]Entry)}
}

// Insert implements Store.
func (m *MemoryStore) Insert(_ context.Context, scope Scope, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byID, ok := m.entries[scope]
	if !ok {
		byID = make(map[string]Entry)
		m.entries[scope] = byID
	}
	if _, exists := byID[e.OutputID]; exists {
		return ErrExists
	}
	byID[e.OutputID] = e
	m.count++
	return nil
}

// Lookup implements Store.
func (m *MemoryStore) Lookup(_ context.Context, scope Scope, outputID string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[scope][outputID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// Count implements Store.
func (m *MemoryStore) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count, nil
}

// Clear implements Store.
func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[Scope]map[string]Entry)
	m.count = 0
	return nil
}
