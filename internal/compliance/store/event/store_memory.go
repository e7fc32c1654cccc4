package event

import (
	"context"
	"sort"
	"sync"

	"clientpulse/internal/compliance/models"
	id "clientpulse/pkg/domain"
	"clientpulse/pkg/platform/sentinel"
)

// InMemory stores engagement events keyed by external id.
type InMemory struct {
	mu     sync.RWMutex
	events map[string]*models.EngagementEvent
}

func NewInMemory() *InMemory {
	return &InMemory{events: make(map[string]*models.EngagementEvent)}
}

// Upsert inserts e or re-syncs the stored event with the same external id.
// The stored ID and first completion time survive re-syncs; e is updated
// to reflect what was stored.
func (s *InMemory) Upsert(_ context.Context, e *models.EngagementEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.events[e.ExternalID]
	if ok {
		e.ID = existing.ID
		if e.Completed && existing.CompletedAt != nil {
			at := *existing.CompletedAt
			e.CompletedAt = &at
		}
		if !e.Completed {
			e.CompletedAt = nil
		}
	}
	clone := *e
	s.events[e.ExternalID] = &clone
	return !ok, nil
}

func (s *InMemory) FindByExternalID(_ context.Context, externalID string) (*models.EngagementEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[externalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *e
	return &clone, nil
}

func (s *InMemory) Delete(_ context.Context, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[externalID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.events, externalID)
	return nil
}

// CountCompleted counts completed events per client and event type for year.
func (s *InMemory) CountCompleted(_ context.Context, year int, clientIDs []id.ClientID) (map[id.ClientID]map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var filter map[id.ClientID]struct{}
	if len(clientIDs) > 0 {
		filter = make(map[id.ClientID]struct{}, len(clientIDs))
		for _, cid := range clientIDs {
			filter[cid] = struct{}{}
		}
	}
	out := make(map[id.ClientID]map[string]int)
	for _, e := range s.events {
		if !e.Completed || e.Year() != year {
			continue
		}
		if filter != nil {
			if _, ok := filter[e.ClientID]; !ok {
				continue
			}
		}
		if out[e.ClientID] == nil {
			out[e.ClientID] = make(map[string]int)
		}
		out[e.ClientID][e.EventType]++
	}
	return out, nil
}

// ListByClient returns a client's events for year ordered by date.
func (s *InMemory) ListByClient(_ context.Context, clientID id.ClientID, year int) ([]*models.EngagementEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.EngagementEvent
	for _, e := range s.events {
		if e.ClientID == clientID && e.Year() == year {
			clone := *e
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ExternalID < out[j].ExternalID
	})
	return out, nil
}
