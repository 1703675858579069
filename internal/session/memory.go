// ==============================================================================
// IN-MEMORY SESSION STORE - internal/session/memory.go
// ==============================================================================
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"kycflow/internal/domain"
	"kycflow/pkg/errors"

	"github.com/google/uuid"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is the default single-instance store. Entries are stored as
// JSON snapshots so Get always hands out an independent copy.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]memoryEntry
	ttl     time.Duration
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &MemoryStore{
		entries: make(map[uuid.UUID]memoryEntry),
		ttl:     ttl,
	}
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*domain.SessionState, error) {
	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok {
		return nil, errors.ErrSessionNotFound
	}
	if time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, id)
		s.mu.Unlock()
		return nil, errors.ErrSessionExpired
	}

	var state domain.SessionState
	if err := json.Unmarshal(entry.data, &state); err != nil {
		return nil, errors.Wrap(err, "decode session")
	}
	return &state, nil
}

func (s *MemoryStore) Save(_ context.Context, state *domain.SessionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "encode session")
	}

	s.mu.Lock()
	s.entries[state.ID] = memoryEntry{data: data, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}
