package cache

import (
	"context"
	"time"

	"github.com/erp/stockrecon/internal/domain/inventory"
	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/google/uuid"
)

// InMemoryCountSessionStore keeps count sessions in process memory. Expired
// sessions are dropped when they are next read.
type InMemoryCountSessionStore struct {
	sessions *ttlMap[uuid.UUID, inventory.CountSession]
}

// NewInMemoryCountSessionStore creates a new InMemoryCountSessionStore
func NewInMemoryCountSessionStore() *InMemoryCountSessionStore {
	return &InMemoryCountSessionStore{sessions: newTTLMap[uuid.UUID, inventory.CountSession]()}
}

// Get returns shared.ErrNotFound for unknown, expired or foreign sessions
func (s *InMemoryCountSessionStore) Get(_ context.Context, storeID, sessionID uuid.UUID) (inventory.CountSession, error) {
	session, ok := s.sessions.get(sessionID)
	if !ok || session.StoreID != storeID {
		return inventory.CountSession{}, shared.ErrNotFound
	}
	return cloneSession(session), nil
}

// Put stores a copy of the session
func (s *InMemoryCountSessionStore) Put(_ context.Context, session inventory.CountSession, ttl time.Duration) error {
	s.sessions.set(session.ID, cloneSession(session), ttl)
	return nil
}

// Delete removes the session if it belongs to the store
func (s *InMemoryCountSessionStore) Delete(_ context.Context, storeID, sessionID uuid.UUID) error {
	s.sessions.deleteIf(sessionID, func(session inventory.CountSession) bool {
		return session.StoreID == storeID
	})
	return nil
}

// cloneSession copies the maps and slices so callers cannot mutate stored state
func cloneSession(in inventory.CountSession) inventory.CountSession {
	out := in
	out.Items = make(map[uuid.UUID]inventory.CountSessionItem, len(in.Items))
	for k, v := range in.Items {
		out.Items[k] = v
	}
	if in.Results != nil {
		out.Results = append([]inventory.CountSessionResult(nil), in.Results...)
	}
	return out
}

var _ inventory.CountSessionStore = (*InMemoryCountSessionStore)(nil)
