package snapshot

import (
	"context"
	"sort"
	"sync"
	"time"

	"clientpulse/internal/health/models"
	id "clientpulse/pkg/domain"
)

// InMemory is an append-only list of snapshots per client.
type InMemory struct {
	mu      sync.RWMutex
	history map[id.ClientID][]*models.Snapshot
}

func NewInMemory() *InMemory {
	return &InMemory{history: make(map[id.ClientID][]*models.Snapshot)}
}

func (s *InMemory) AppendBatch(_ context.Context, snapshots []*models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range snapshots {
		cp := *snap
		s.history[snap.ClientID] = append(s.history[snap.ClientID], &cp)
	}
	return nil
}

// History returns a client's snapshots with Date in [from, to], oldest
// first. Zero bounds are open.
func (s *InMemory) History(_ context.Context, clientID id.ClientID, from, to time.Time) ([]*models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Snapshot
	for _, snap := range s.history[clientID] {
		if !from.IsZero() && snap.Date.Before(from) {
			continue
		}
		if !to.IsZero() && snap.Date.After(to) {
			continue
		}
		cp := *snap
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RefreshedAt.Before(out[j].RefreshedAt) })
	return out, nil
}

// LatestAll returns the newest snapshot of every client.
func (s *InMemory) LatestAll(_ context.Context) ([]*models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Snapshot, 0, len(s.history))
	for _, list := range s.history {
		var latest *models.Snapshot
		for _, snap := range list {
			if latest == nil || !snap.RefreshedAt.Before(latest.RefreshedAt) {
				latest = snap
			}
		}
		if latest != nil {
			cp := *latest
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClientID.String() < out[j].ClientID.String() })
	return out, nil
}
