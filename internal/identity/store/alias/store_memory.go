package alias

import (
	"context"
	"sort"
	"sync"
	"time"

	"clientpulse/internal/identity/models"
	"clientpulse/pkg/platform/sentinel"
)

// InMemory keeps aliases keyed by display name. Deactivated aliases are
// retained in history so the display name can be re-used.
type InMemory struct {
	mu      sync.RWMutex
	active  map[string]*models.Alias
	history []*models.Alias
}

func NewInMemory() *InMemory {
	return &InMemory{active: make(map[string]*models.Alias)}
}

// Create stores a new active alias. ErrConflict if the display name is already active.
func (s *InMemory) Create(_ context.Context, a *models.Alias) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[a.DisplayName]; ok {
		return sentinel.ErrConflict
	}
	clone := *a
	s.active[a.DisplayName] = &clone
	return nil
}

func (s *InMemory) FindActive(_ context.Context, displayName string) (*models.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.active[displayName]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *a
	return &clone, nil
}

// Deactivate moves the active alias into history.
func (s *InMemory) Deactivate(_ context.Context, displayName string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.active[displayName]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.active, displayName)
	a.IsActive = false
	at := now
	a.DeactivatedAt = &at
	s.history = append(s.history, a)
	return nil
}

// ListActive returns active aliases ordered by display name.
func (s *InMemory) ListActive(_ context.Context) ([]*models.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Alias, 0, len(s.active))
	for _, a := range s.active {
		clone := *a
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out, nil
}
