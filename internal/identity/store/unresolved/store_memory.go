package unresolved

import (
	"context"
	"sort"
	"sync"
	"time"

	"clientpulse/internal/identity/models"
)

type key struct {
	raw    string
	source string
}

// InMemory is the operator queue of names that could not be resolved.
type InMemory struct {
	mu      sync.Mutex
	entries map[key]*models.UnresolvedName
}

func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[key]*models.UnresolvedName)}
}

// Record inserts the name or bumps its occurrence count. A resolved entry
// that shows up again is reopened.
func (s *InMemory) Record(_ context.Context, rawName, source string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{raw: rawName, source: source}
	if e, ok := s.entries[k]; ok {
		e.Occurrences++
		e.LastSeen = now
		e.Resolved = false
		return nil
	}
	s.entries[k] = &models.UnresolvedName{
		RawName:     rawName,
		Source:      source,
		FirstSeen:   now,
		LastSeen:    now,
		Occurrences: 1,
	}
	return nil
}

// List returns queue entries, most recently seen first.
func (s *InMemory) List(_ context.Context, includeResolved bool) ([]*models.UnresolvedName, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.UnresolvedName, 0, len(s.entries))
	for _, e := range s.entries {
		if e.Resolved && !includeResolved {
			continue
		}
		clone := *e
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastSeen.Equal(out[j].LastSeen) {
			return out[i].RawName < out[j].RawName
		}
		return out[i].LastSeen.After(out[j].LastSeen)
	})
	return out, nil
}

// MarkResolved flags every open entry whose raw name is in rawNames, across sources.
func (s *InMemory) MarkResolved(_ context.Context, rawNames []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[string]struct{}, len(rawNames))
	for _, n := range rawNames {
		want[n] = struct{}{}
	}
	n := 0
	for k, e := range s.entries {
		if _, ok := want[k.raw]; ok && !e.Resolved {
			e.Resolved = true
			n++
		}
	}
	return n, nil
}
