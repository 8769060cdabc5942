package store

import (
	"context"
	"sort"
	"sync"

	"eventdesk/internal/registration"
)

// MemoryStore is an in-memory Store used by unit tests and local runs
// without PostgreSQL.
type MemoryStore struct {
	mu      sync.RWMutex
	byOwner map[string][]registration.Registrant
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{byOwner: make(map[string][]registration.Registrant)}
}

func (s *MemoryStore) ListByOwner(_ context.Context, ownerID string) ([]registration.Registrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	regs := s.byOwner[ownerID]
	out := make([]registration.Registrant, len(regs))
	copy(out, regs)
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, ownerID, id string) (*registration.Registrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, reg := range s.byOwner[ownerID] {
		if reg.ID == id {
			r := reg
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Insert(_ context.Context, reg registration.Registrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byOwner[reg.OwnerID] = append(s.byOwner[reg.OwnerID], reg)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, reg registration.Registrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	regs := s.byOwner[reg.OwnerID]
	for i := range regs {
		if regs[i].ID == reg.ID {
			regs[i] = reg
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) Delete(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	regs := s.byOwner[ownerID]
	for i := range regs {
		if regs[i].ID == id {
			s.byOwner[ownerID] = append(regs[:i], regs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) ReplaceAll(_ context.Context, ownerID string, regs []registration.Registrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]registration.Registrant, len(regs))
	copy(next, regs)
	s.byOwner[ownerID] = next
	return nil
}
