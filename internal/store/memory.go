// ABOUTME: In-memory Store implementation used when no database path is configured
// ABOUTME: Also serves as the ledger in tests that don't need SQLite

package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store. It keeps at most capacity events and
// drops the oldest beyond that.
type MemoryStore struct {
	mu       sync.RWMutex
	events   []SessionEvent // append order, oldest first
	capacity int
}

// DefaultMemoryCapacity bounds a MemoryStore created with capacity <= 0.
const DefaultMemoryCapacity = 10000

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{capacity: capacity}
}

// AppendEvent implements Store.
func (m *MemoryStore) AppendEvent(_ context.Context, e *SessionEvent) error {
	if err := validateEvent(e); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, *e)
	if over := len(m.events) - m.capacity; over > 0 {
		m.events = append([]SessionEvent(nil), m.events[over:]...)
	}
	return nil
}

// ListEvents implements Store.
func (m *MemoryStore) ListEvents(_ context.Context, f EventFilter) ([]SessionEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit := normalizeLimit(f.Limit)
	out := []SessionEvent{}
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		e := m.events[i]
		if f.SessionID != "" && e.SessionID != f.SessionID {
			continue
		}
		if f.Kind != "" && e.Kind != f.Kind {
			continue
		}
		if f.Since != nil && e.Timestamp.Before(*f.Since) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }
