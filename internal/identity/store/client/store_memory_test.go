package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"clientpulse/internal/identity/models"
	id "clientpulse/pkg/domain"
	"clientpulse/pkg/platform/sentinel"
)

type ClientStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *ClientStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestClientStoreSuite(t *testing.T) {
	suite.Run(t, new(ClientStoreSuite))
}

func (s *ClientStoreSuite) newClient(name string) *models.Client {
	c, err := models.NewClient(id.NewClientID(), name, "AU", "Gold", time.Now())
	s.Require().NoError(err)
	return c
}

func (s *ClientStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds client by ID and exact name", func() {
		c := s.newClient("Acme Pty Ltd")
		s.Require().NoError(s.store.Create(s.ctx, c))

		found, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal(c.CanonicalName, found.CanonicalName)

		found, err = s.store.FindByName(s.ctx, "Acme Pty Ltd")
		s.Require().NoError(err)
		s.Equal(c.ID, found.ID)
	})

	s.Run("name lookup is case sensitive", func() {
		_, err := s.store.FindByName(s.ctx, "acme pty ltd")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, id.NewClientID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *ClientStoreSuite) TestNameUniqueness() {
	s.Require().NoError(s.store.Create(s.ctx, s.newClient("Globex")))

	err := s.store.Create(s.ctx, s.newClient("GLOBEX"))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *ClientStoreSuite) TestUpdateKeepsCanonicalName() {
	c := s.newClient("Initech")
	s.Require().NoError(s.store.Create(s.ctx, c))

	c.CanonicalName = "Renamed"
	s.Require().NoError(c.Deactivate(time.Now()))
	s.Require().NoError(s.store.Update(s.ctx, c))

	found, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal("Initech", found.CanonicalName)
	s.Equal(models.ClientStatusInactive, found.Status)

	s.ErrorIs(s.store.Update(s.ctx, s.newClient("Ghost")), sentinel.ErrNotFound)
}

func (s *ClientStoreSuite) TestListing() {
	a := s.newClient("Beta")
	b := s.newClient("Alpha")
	c := s.newClient("Gamma")
	for _, cl := range []*models.Client{a, b, c} {
		s.Require().NoError(s.store.Create(s.ctx, cl))
	}
	s.Require().NoError(c.Deactivate(time.Now()))
	s.Require().NoError(s.store.Update(s.ctx, c))

	all, err := s.store.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal("Alpha", all[0].CanonicalName)

	active, err := s.store.ListActive(s.ctx)
	s.Require().NoError(err)
	s.Len(active, 2)
}

func (s *ClientStoreSuite) TestReturnsCopies() {
	c := s.newClient("Hooli")
	s.Require().NoError(s.store.Create(s.ctx, c))

	found, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	found.Country = "NZ"

	again, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal("AU", again.Country)
}
