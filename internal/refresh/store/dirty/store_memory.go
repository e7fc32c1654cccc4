// Package dirty holds the client-years whose inputs changed since their
// last refresh. Marking the same client-year twice before a drain records
// it once.
package dirty

import (
	"context"
	"sort"
	"sync"

	id "clientpulse/pkg/domain"
)

type InMemory struct {
	mu  sync.Mutex
	set map[id.ClientYear]struct{}
}

func NewInMemory() *InMemory {
	return &InMemory{set: make(map[id.ClientYear]struct{})}
}

func (s *InMemory) MarkDirty(_ context.Context, keys ...id.ClientYear) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		if !k.ClientID.IsNil() {
			s.set[k] = struct{}{}
		}
	}
	return nil
}

// Drain removes and returns up to limit entries, or all when limit is zero.
func (s *InMemory) Drain(_ context.Context, limit int) ([]id.ClientYear, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]id.ClientYear, 0, len(s.set))
	for k := range s.set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for _, k := range out {
		delete(s.set, k)
	}
	return out, nil
}

func (s *InMemory) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.set), nil
}
