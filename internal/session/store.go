package session

import (
	"context"
	"sync"
)

// Store persists session records keyed by session id
type Store interface {
	// Insert persists a new record. It fails with ErrDuplicateID if the id is taken.
	Insert(ctx context.Context, s *Session) error
	// FindByID returns the record or ErrSessionNotFound
	FindByID(ctx context.Context, id string) (*Session, error)
	// Delete removes the record and reports whether one existed
	Delete(ctx context.Context, id string) (bool, error)
}

// MemoryStore is an in-process Store used by tests and local runs
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
	}
}

// Insert stores a copy of s
func (m *MemoryStore) Insert(ctx context.Context, s *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[s.ID]; exists {
		return ErrDuplicateID
	}
	m.sessions[s.ID] = *s
	return nil
}

// FindByID returns a copy of the stored record
func (m *MemoryStore) FindByID(ctx context.Context, id string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

// Delete removes the record if present
func (m *MemoryStore) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return false, nil
	}
	delete(m.sessions, id)
	return true, nil
}

// Len returns the number of stored records, expired ones included
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
