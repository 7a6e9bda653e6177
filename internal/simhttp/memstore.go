package simhttp

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ubi-africa/ridesim/internal/simcore"
	"github.com/ubi-africa/ridesim/internal/simrun"
)

// InMemoryStore is a RunStore that keeps runs in process memory, for
// deployments with no database configured.
type InMemoryStore struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]simrun.Run
}

// NewInMemoryStore constructs an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{runs: make(map[uuid.UUID]simrun.Run)}
}

// Create stores a run, keyed by its id.
func (s *InMemoryStore) Create(ctx context.Context, run simrun.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return nil
}

// GetByID looks up a run by id.
func (s *InMemoryStore) GetByID(ctx context.Context, id uuid.UUID) (simrun.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return simrun.Run{}, simcore.ErrRunNotFound
	}
	return run, nil
}
