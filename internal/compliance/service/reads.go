package service

import (
	"context"

	"clientpulse/internal/compliance/models"
	id "clientpulse/pkg/domain"
	dErrors "clientpulse/pkg/domain-errors"
)

// Result returns the published compliance of a client-year. A client-year
// not yet evaluated by any refresh is not found.
func (s *Service) Result(ctx context.Context, clientID id.ClientID, year int) (*models.Result, error) {
	if err := s.requireClient(ctx, clientID); err != nil {
		return nil, err
	}
	r, ok := s.views.Load().Compliance(clientID, year)
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "compliance for %d has not been evaluated", year)
	}
	return r, nil
}

// PortfolioSummary aggregates the published results for year.
func (s *Service) PortfolioSummary(_ context.Context, year int) (*models.PortfolioSummary, error) {
	return Portfolio(year, s.views.Load().ComplianceYear(year)), nil
}
