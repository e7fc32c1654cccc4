package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"clientpulse/internal/health/formula"
	"clientpulse/internal/health/models"
	id "clientpulse/pkg/domain"
	dErrors "clientpulse/pkg/domain-errors"
)

// Score builds one snapshot per client from the latest signals and the
// compliance of year found in src. It does not persist anything.
func (s *Service) Score(ctx context.Context, year int, clientIDs []id.ClientID, src ComplianceSource, generation int64, refreshedAt time.Time) ([]*models.Snapshot, error) {
	if len(clientIDs) == 0 {
		return nil, nil
	}
	var (
		surveys map[id.ClientID][]*models.SurveyResponse
		aging   map[id.ClientID]*models.AgingSnapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		surveys, err = s.surveys.ListByClients(gctx, clientIDs)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load survey responses")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		aging, err = s.aging.Latest(gctx, clientIDs)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load aging snapshots")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	f := s.formulas.Latest()
	date := time.Date(refreshedAt.Year(), refreshedAt.Month(), refreshedAt.Day(), 0, 0, 0, 0, time.UTC)
	out := make([]*models.Snapshot, 0, len(clientIDs))
	for _, cid := range clientIDs {
		in := s.inputs(year, src, cid, surveys[cid], aging[cid])
		sc := f.Apply(in)
		s.metrics.ObserveScore(string(sc.Status), f.Version, sc.Total)
		out = append(out, &models.Snapshot{
			ID:                  id.NewSnapshotID(),
			ClientID:            cid,
			Date:                date,
			NPSComponent:        sc.NPSComponent,
			ComplianceComponent: sc.ComplianceComponent,
			AgingComponent:      sc.AgingComponent,
			TotalScore:          sc.Total,
			Status:              sc.Status,
			FormulaVersion:      f.Version,
			Inputs:              in,
			Generation:          generation,
			RefreshedAt:         refreshedAt,
		})
	}
	return out, nil
}

func (s *Service) inputs(year int, src ComplianceSource, clientID id.ClientID, surveys []*models.SurveyResponse, aging *models.AgingSnapshot) models.Inputs {
	in := models.Inputs{ComplianceYear: year}

	nps := formula.ComputeNPS(surveys)
	in.NPSScore = nps.Score
	in.NPSResponses = nps.Responses
	in.NPSQuarter = nps.Quarter
	in.NPSDeclining = nps.Declining
	if in.NPSScore == nil {
		s.metrics.IncrementMissingSignal("nps")
	}

	if res, ok := src.Compliance(clientID, year); ok && res.Summary.OverallScore != nil {
		pct := float64(*res.Summary.OverallScore)
		in.CompliancePercentage = &pct
	} else {
		s.metrics.IncrementMissingSignal("compliance")
	}

	if aging != nil {
		asOf := aging.AsOf
		in.AgingAsOf = &asOf
		in.WorkingCapitalPercentage = aging.WorkingCapitalPercentage()
	}
	if in.WorkingCapitalPercentage == nil {
		s.metrics.IncrementMissingSignal("working_capital")
	}
	return in
}

// Persist appends snapshots to the history. Called inside the refresh
// transaction.
func (s *Service) Persist(ctx context.Context, snapshots []*models.Snapshot) error {
	if err := s.snapshots.AppendBatch(ctx, snapshots); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append health snapshots")
	}
	return nil
}

// LoadLatest returns each client's newest stored snapshot, used to seed the
// view at startup.
func (s *Service) LoadLatest(ctx context.Context) ([]*models.Snapshot, error) {
	list, err := s.snapshots.LatestAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load health snapshots")
	}
	return list, nil
}
