package client

import (
	"context"
	"sort"
	"strings"
	"sync"

	"clientpulse/internal/identity/models"
	id "clientpulse/pkg/domain"
	"clientpulse/pkg/platform/sentinel"
)

// InMemory is a thread-safe in-memory client store.
type InMemory struct {
	mu      sync.RWMutex
	clients map[id.ClientID]*models.Client
	byName  map[string]id.ClientID // lower-cased canonical name
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		clients: make(map[id.ClientID]*models.Client),
		byName:  make(map[string]id.ClientID),
	}
}

// Create inserts c unless its canonical name is taken (ignoring case).
func (s *InMemory) Create(_ context.Context, c *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(c.CanonicalName)
	if _, ok := s.byName[key]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.clients[c.ID]; ok {
		return sentinel.ErrConflict
	}
	clone := *c
	s.clients[c.ID] = &clone
	s.byName[key] = c.ID
	return nil
}

// Update replaces mutable fields. The canonical name cannot change.
func (s *InMemory) Update(_ context.Context, c *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.clients[c.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	clone := *c
	clone.CanonicalName = existing.CanonicalName
	s.clients[c.ID] = &clone
	return nil
}

func (s *InMemory) FindByID(_ context.Context, clientID id.ClientID) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[clientID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

// FindByName matches the canonical name exactly.
func (s *InMemory) FindByName(_ context.Context, name string) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cid, ok := s.byName[strings.ToLower(name)]
	if !ok || s.clients[cid].CanonicalName != name {
		return nil, sentinel.ErrNotFound
	}
	clone := *s.clients[cid]
	return &clone, nil
}

// ListAll returns every client ordered by canonical name.
func (s *InMemory) ListAll(_ context.Context) ([]*models.Client, error) {
	return s.list(func(*models.Client) bool { return true }), nil
}

// ListActive returns active clients ordered by canonical name.
func (s *InMemory) ListActive(_ context.Context) ([]*models.Client, error) {
	return s.list((*models.Client).IsActive), nil
}

func (s *InMemory) list(keep func(*models.Client) bool) []*models.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Client, 0, len(s.clients))
	for _, c := range s.clients {
		if keep(c) {
			clone := *c
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CanonicalName < out[j].CanonicalName })
	return out
}
