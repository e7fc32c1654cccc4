package requirement

import (
	"context"
	"sort"
	"sync"

	"clientpulse/internal/compliance/models"
	id "clientpulse/pkg/domain"
	"clientpulse/pkg/platform/sentinel"
)

type tierKey struct {
	tier      string
	eventType string
}

// InMemory holds event types, tier requirements and client exclusions.
type InMemory struct {
	mu           sync.RWMutex
	eventTypes   map[string]*models.EventType
	requirements map[tierKey]*models.TierRequirement
	exclusions   map[id.ClientID]map[string]*models.Exclusion
}

func NewInMemory() *InMemory {
	return &InMemory{
		eventTypes:   make(map[string]*models.EventType),
		requirements: make(map[tierKey]*models.TierRequirement),
		exclusions:   make(map[id.ClientID]map[string]*models.Exclusion),
	}
}

// PutEventType creates or renames an event type.
func (s *InMemory) PutEventType(_ context.Context, et *models.EventType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *et
	s.eventTypes[et.Code] = &clone
	return nil
}

func (s *InMemory) FindEventType(_ context.Context, code string) (*models.EventType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	et, ok := s.eventTypes[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *et
	return &clone, nil
}

func (s *InMemory) ListEventTypes(_ context.Context) ([]*models.EventType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.EventType, 0, len(s.eventTypes))
	for _, et := range s.eventTypes {
		clone := *et
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// PutTierRequirement upserts a requirement. ErrNotFound if the event type is unknown.
func (s *InMemory) PutTierRequirement(_ context.Context, r *models.TierRequirement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.eventTypes[r.EventType]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *r
	s.requirements[tierKey{tier: r.Tier, eventType: r.EventType}] = &clone
	return nil
}

func (s *InMemory) ListTierRequirements(_ context.Context) ([]*models.TierRequirement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.TierRequirement, 0, len(s.requirements))
	for _, r := range s.requirements {
		clone := *r
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tier != out[j].Tier {
			return out[i].Tier < out[j].Tier
		}
		return out[i].EventType < out[j].EventType
	})
	return out, nil
}

// AddExclusion is idempotent. ErrNotFound if the event type is unknown.
func (s *InMemory) AddExclusion(_ context.Context, e *models.Exclusion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.eventTypes[e.EventType]; !ok {
		return sentinel.ErrNotFound
	}
	if s.exclusions[e.ClientID] == nil {
		s.exclusions[e.ClientID] = make(map[string]*models.Exclusion)
	}
	if _, exists := s.exclusions[e.ClientID][e.EventType]; exists {
		return nil
	}
	clone := *e
	s.exclusions[e.ClientID][e.EventType] = &clone
	return nil
}

func (s *InMemory) RemoveExclusion(_ context.Context, clientID id.ClientID, eventType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.exclusions[clientID][eventType]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.exclusions[clientID], eventType)
	return nil
}

// ListExclusions returns excluded event types per client. An empty
// clientIDs means every client.
func (s *InMemory) ListExclusions(_ context.Context, clientIDs []id.ClientID) (map[id.ClientID]map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[id.ClientID]map[string]struct{})
	add := func(cid id.ClientID) {
		for code := range s.exclusions[cid] {
			if out[cid] == nil {
				out[cid] = make(map[string]struct{})
			}
			out[cid][code] = struct{}{}
		}
	}
	if len(clientIDs) == 0 {
		for cid := range s.exclusions {
			add(cid)
		}
		return out, nil
	}
	for _, cid := range clientIDs {
		add(cid)
	}
	return out, nil
}
