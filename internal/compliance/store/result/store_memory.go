package result

import (
	"context"
	"sort"
	"sync"

	"clientpulse/internal/compliance/models"
	id "clientpulse/pkg/domain"
)

// InMemory holds the last persisted compliance results per client-year.
type InMemory struct {
	mu      sync.RWMutex
	results map[int]map[id.ClientID]*models.Result
}

func NewInMemory() *InMemory {
	return &InMemory{results: make(map[int]map[id.ClientID]*models.Result)}
}

// Replace overwrites the year's results for clientIDs, or for every client
// when clientIDs is empty.
func (s *InMemory) Replace(_ context.Context, year int, clientIDs []id.ClientID, results []*models.Result, _ int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(clientIDs) == 0 || s.results[year] == nil {
		s.results[year] = make(map[id.ClientID]*models.Result, len(results))
	}
	for _, cid := range clientIDs {
		delete(s.results[year], cid)
	}
	for _, r := range results {
		s.results[year][r.Summary.ClientID] = cloneResult(r)
	}
	return nil
}

func (s *InMemory) ListYear(_ context.Context, year int) ([]*models.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Result, 0, len(s.results[year]))
	for _, r := range s.results[year] {
		out = append(out, cloneResult(r))
	}
	sortResults(out)
	return out, nil
}

func (s *InMemory) ListAll(ctx context.Context) ([]*models.Result, error) {
	s.mu.RLock()
	years := make([]int, 0, len(s.results))
	for y := range s.results {
		years = append(years, y)
	}
	s.mu.RUnlock()
	sort.Ints(years)

	var out []*models.Result
	for _, y := range years {
		list, err := s.ListYear(ctx, y)
		if err != nil {
			return nil, err
		}
		out = append(out, list...)
	}
	return out, nil
}

func cloneResult(r *models.Result) *models.Result {
	clone := &models.Result{Summary: r.Summary, Records: append([]models.Record(nil), r.Records...)}
	if r.Summary.OverallScore != nil {
		v := *r.Summary.OverallScore
		clone.Summary.OverallScore = &v
	}
	return clone
}

func sortResults(out []*models.Result) {
	sort.Slice(out, func(i, j int) bool {
		return out[i].Summary.ClientID.String() < out[j].Summary.ClientID.String()
	})
}
