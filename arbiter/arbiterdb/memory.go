package arbiterdb

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryDB is an in-memory Store for tests and ephemeral deployments.
type MemoryDB struct {
	mu       sync.Mutex
	sessions map[uint64][]byte
	nextID   uint64
}

var _ Store = (*MemoryDB)(nil)

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{sessions: make(map[uint64][]byte)}
}

func (m *MemoryDB) SaveSession(_ context.Context, rec *SessionRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions[rec.ID] = raw
	m.mu.Unlock()
	return nil
}

func (m *MemoryDB) FetchSession(_ context.Context, id uint64) (*SessionRecord, error) {
	m.mu.Lock()
	raw, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	rec := new(SessionRecord)
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (m *MemoryDB) ListSessions(_ context.Context) ([]*SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*SessionRecord, 0, len(m.sessions))
	for _, raw := range m.sessions {
		rec := new(SessionRecord)
		if err := json.Unmarshal(raw, rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (m *MemoryDB) NextGameID(_ context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	return id, nil
}

func (m *MemoryDB) Close() error { return nil }
