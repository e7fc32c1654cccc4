package segment

import (
	"context"
	"sort"
	"sync"

	"clientpulse/internal/compliance/models"
	id "clientpulse/pkg/domain"
	"clientpulse/pkg/platform/sentinel"
)

// InMemory is an append-only segment assignment log.
type InMemory struct {
	mu       sync.RWMutex
	seq      int64
	byClient map[id.ClientID][]*models.SegmentAssignment
}

func NewInMemory() *InMemory {
	return &InMemory{byClient: make(map[id.ClientID][]*models.SegmentAssignment)}
}

// Insert appends a and assigns its sequence. ErrConflict if the interval
// overlaps an existing assignment for the same client.
func (s *InMemory) Insert(_ context.Context, a *models.SegmentAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byClient[a.ClientID] {
		if existing.Overlaps(a) {
			return sentinel.ErrConflict
		}
	}
	s.seq++
	a.Seq = s.seq
	clone := *a
	s.byClient[a.ClientID] = append(s.byClient[a.ClientID], &clone)
	return nil
}

// ListByClient returns assignments in insertion order.
func (s *InMemory) ListByClient(_ context.Context, clientID id.ClientID) ([]*models.SegmentAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.byClient[clientID]), nil
}

// ListForYear groups assignments intersecting year by client. An empty
// clientIDs means every client.
func (s *InMemory) ListForYear(_ context.Context, year int, clientIDs []id.ClientID) (map[id.ClientID][]*models.SegmentAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[id.ClientID][]*models.SegmentAssignment)
	collect := func(cid id.ClientID) {
		for _, a := range s.byClient[cid] {
			if a.IntersectsYear(year) {
				clone := *a
				out[cid] = append(out[cid], &clone)
			}
		}
	}
	if len(clientIDs) == 0 {
		for cid := range s.byClient {
			collect(cid)
		}
		return out, nil
	}
	for _, cid := range clientIDs {
		collect(cid)
	}
	return out, nil
}

// ClientsWithTier lists clients that have ever been assigned tier.
func (s *InMemory) ClientsWithTier(_ context.Context, tier string) ([]id.ClientID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []id.ClientID
	for cid, list := range s.byClient {
		for _, a := range list {
			if a.Tier == tier {
				out = append(out, cid)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func cloneAll(in []*models.SegmentAssignment) []*models.SegmentAssignment {
	out := make([]*models.SegmentAssignment, len(in))
	for i, a := range in {
		clone := *a
		out[i] = &clone
	}
	return out
}
