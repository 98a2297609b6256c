package store

import (
	"context"
	"sort"
	"sync"

	"github.com/nishuastic/tech-europe/pkg/core/bridge"
)

// MemoryStore keeps sessions in process memory. It backs local
// development and tests; production uses Postgres.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*bridge.CallSession
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*bridge.CallSession)}
}

func (m *MemoryStore) UpsertSession(ctx context.Context, s *bridge.CallSession) error {
	m.mu.Lock()
	m.sessions[s.CallID] = s.Clone()
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) GetSession(ctx context.Context, callID string) (*bridge.CallSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[callID]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) ListSessions(ctx context.Context) ([]*bridge.CallSession, error) {
	m.mu.RLock()
	out := make([]*bridge.CallSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Clone())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) Close() {}
