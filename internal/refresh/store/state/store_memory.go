package state

import (
	"context"
	"sync"

	"clientpulse/internal/refresh/models"
	"clientpulse/pkg/platform/sentinel"
)

// InMemory keeps the generation pointer for single-process deployments.
type InMemory struct {
	mu    sync.RWMutex
	state *models.State
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

// Load returns sentinel.ErrNotFound before the first pass commits.
func (s *InMemory) Load(_ context.Context) (*models.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil, sentinel.ErrNotFound
	}
	clone := *s.state
	return &clone, nil
}

func (s *InMemory) Save(_ context.Context, st *models.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *st
	s.state = &clone
	return nil
}
