package audit

import (
	"context"
	"sync"
)

// MemoryStore keeps audit events in memory for tests and Redis-less local
// runs.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStore) ListByOwner(_ context.Context, ownerID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].OwnerID == ownerID {
			out = append(out, s.events[i])
		}
	}
	return out, nil
}
