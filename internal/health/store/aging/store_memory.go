package aging

import (
	"context"
	"sync"
	"time"

	"clientpulse/internal/health/models"
	id "clientpulse/pkg/domain"
)

// InMemory keeps aging reports keyed by client and as-of date.
type InMemory struct {
	mu      sync.RWMutex
	reports map[id.ClientID]map[time.Time]*models.AgingSnapshot
}

func NewInMemory() *InMemory {
	return &InMemory{reports: make(map[id.ClientID]map[time.Time]*models.AgingSnapshot)}
}

// Upsert replaces the report for the same client and as-of date.
func (s *InMemory) Upsert(_ context.Context, a *models.AgingSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reports[a.ClientID] == nil {
		s.reports[a.ClientID] = make(map[time.Time]*models.AgingSnapshot)
	}
	cp := *a
	s.reports[a.ClientID][a.AsOf] = &cp
	return nil
}

// Latest returns the most recent report per client. An empty filter
// returns every client.
func (s *InMemory) Latest(_ context.Context, clientIDs []id.ClientID) (map[id.ClientID]*models.AgingSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[id.ClientID]*models.AgingSnapshot)
	pick := func(cid id.ClientID) {
		var latest *models.AgingSnapshot
		for _, a := range s.reports[cid] {
			if latest == nil || a.AsOf.After(latest.AsOf) {
				latest = a
			}
		}
		if latest != nil {
			cp := *latest
			out[cid] = &cp
		}
	}
	if len(clientIDs) == 0 {
		for cid := range s.reports {
			pick(cid)
		}
		return out, nil
	}
	for _, cid := range clientIDs {
		pick(cid)
	}
	return out, nil
}
