package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"clientpulse/internal/identity/handler/mocks"
	"clientpulse/internal/identity/models"
	id "clientpulse/pkg/domain"
	dErrors "clientpulse/pkg/domain-errors"
	"clientpulse/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/identity-mocks.go -package=mocks Service
type IdentityHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  http.Handler
}

func TestIdentityHandlerSuite(t *testing.T) {
	suite.Run(t, new(IdentityHandlerSuite))
}

func (s *IdentityHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	r := chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	s.router = r
}

func (s *IdentityHandlerSuite) TestResolve() {
	clientID := id.NewClientID()

	s.Run("online mode by default", func() {
		s.service.EXPECT().Resolve(gomock.Any(), "Acme").
			Return(&models.Resolution{ClientID: clientID, CanonicalName: "Acme Pty Ltd", Step: models.MatchAlias}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/resolve?name=Acme"))
		testutil.AssertStatusOK(s.T(), rr)
		res := testutil.UnmarshalResponse[models.Resolution](s.T(), rr)
		s.Equal(clientID, res.ClientID)
		s.Equal(models.MatchAlias, res.Step)
	})

	s.Run("batch mode", func() {
		s.service.EXPECT().ResolveBatch(gomock.Any(), "acme group").
			Return(&models.Resolution{ClientID: clientID, CanonicalName: "Acme Pty Ltd", Step: models.MatchFuzzy}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/resolve?name=acme+group&mode=batch"))
		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("unresolved maps to 404", func() {
		s.service.EXPECT().Resolve(gomock.Any(), "Nobody").
			Return(nil, dErrors.New(dErrors.CodeUnresolvedClientName, "no client matches"))

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/resolve?name=Nobody"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "unresolved_client_name")
	})

	s.Run("unknown mode", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/resolve?name=x&mode=guess"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}

func (s *IdentityHandlerSuite) TestCreateClient() {
	s.Run("created", func() {
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		c, err := models.NewClient(id.NewClientID(), "Acme Pty Ltd", "AU", "Gold", now)
		s.Require().NoError(err)
		s.service.EXPECT().CreateClient(gomock.Any(), &models.CreateClientRequest{CanonicalName: "Acme Pty Ltd", Country: "AU", Segment: "Gold"}).
			Return(c, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/clients", map[string]string{
			"canonical_name": " Acme  Pty Ltd", "country": "au", "segment": "Gold",
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		testutil.AssertJSONContains(s.T(), rr, "canonical_name", "Acme Pty Ltd")
	})

	s.Run("validation error never reaches service", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/clients", map[string]string{"canonical_name": ""})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("unknown fields rejected", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/clients", map[string]string{"canonical_name": "x", "tenant": "y"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("conflict", func() {
		s.service.EXPECT().CreateClient(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "canonical name already exists"))
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/clients", map[string]string{"canonical_name": "Acme"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
	})
}

func (s *IdentityHandlerSuite) TestDeactivateClient() {
	s.Run("invalid id", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/admin/clients/not-a-uuid/deactivate"))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})

	s.Run("not found", func() {
		clientID := id.NewClientID()
		s.service.EXPECT().DeactivateClient(gomock.Any(), clientID).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "client not found"))
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/admin/clients/"+clientID.String()+"/deactivate"))
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	})
}

func (s *IdentityHandlerSuite) TestAliases() {
	alias := &models.Alias{DisplayName: "ACME", CanonicalName: "Acme Pty Ltd", IsActive: true}

	s.Run("new alias returns 201", func() {
		s.service.EXPECT().CreateAlias(gomock.Any(), gomock.Any()).Return(alias, true, nil)
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/aliases", map[string]string{"display_name": "ACME", "canonical_name": "Acme Pty Ltd"})
		testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, req), http.StatusCreated)
	})

	s.Run("existing mapping returns 200", func() {
		s.service.EXPECT().CreateAlias(gomock.Any(), gomock.Any()).Return(alias, false, nil)
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/aliases", map[string]string{"display_name": "ACME", "canonical_name": "Acme Pty Ltd"})
		testutil.AssertStatusOK(s.T(), testutil.DoRequest(s.router, req))
	})

	s.Run("deactivate", func() {
		s.service.EXPECT().DeactivateAlias(gomock.Any(), "ACME").Return(nil)
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodDelete, "/admin/aliases/ACME"))
		testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	})
}

func (s *IdentityHandlerSuite) TestListUnresolved() {
	s.service.EXPECT().ListUnresolved(gomock.Any(), true).
		Return([]*models.UnresolvedName{{RawName: "Acme Co", Source: "meetings", Occurrences: 3}}, nil)

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/admin/unresolved?include_resolved=true"))
	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONHasKey(s.T(), rr, "unresolved")

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/admin/unresolved?include_resolved=maybe"))
	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
}
