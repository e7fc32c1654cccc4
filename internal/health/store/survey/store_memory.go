package survey

import (
	"context"
	"sort"
	"sync"

	"clientpulse/internal/health/models"
	id "clientpulse/pkg/domain"
)

// InMemory keeps survey responses per client in arrival order.
type InMemory struct {
	mu        sync.RWMutex
	responses map[id.ClientID][]*models.SurveyResponse
}

func NewInMemory() *InMemory {
	return &InMemory{responses: make(map[id.ClientID][]*models.SurveyResponse)}
}

func (s *InMemory) Append(_ context.Context, r *models.SurveyResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.responses[r.ClientID] = append(s.responses[r.ClientID], &cp)
	return nil
}

func (s *InMemory) ListByClient(ctx context.Context, clientID id.ClientID) ([]*models.SurveyResponse, error) {
	all, err := s.ListByClients(ctx, []id.ClientID{clientID})
	if err != nil {
		return nil, err
	}
	return all[clientID], nil
}

// ListByClients groups responses by client ordered by responded_at. An
// empty filter returns every client.
func (s *InMemory) ListByClients(_ context.Context, clientIDs []id.ClientID) (map[id.ClientID][]*models.SurveyResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[id.ClientID][]*models.SurveyResponse)
	collect := func(cid id.ClientID) {
		list := s.responses[cid]
		if len(list) == 0 {
			return
		}
		cp := make([]*models.SurveyResponse, len(list))
		for i, r := range list {
			v := *r
			cp[i] = &v
		}
		sort.SliceStable(cp, func(i, j int) bool { return cp[i].RespondedAt.Before(cp[j].RespondedAt) })
		out[cid] = cp
	}
	if len(clientIDs) == 0 {
		for cid := range s.responses {
			collect(cid)
		}
		return out, nil
	}
	for _, cid := range clientIDs {
		collect(cid)
	}
	return out, nil
}
