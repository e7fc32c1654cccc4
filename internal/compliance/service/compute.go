package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"clientpulse/internal/compliance/models"
	id "clientpulse/pkg/domain"
	dErrors "clientpulse/pkg/domain-errors"
	"clientpulse/pkg/platform/audit"
)

// inputs is everything one compute pass reads from storage.
type inputs struct {
	segments     map[id.ClientID][]*models.SegmentAssignment
	requirements []*models.TierRequirement
	exclusions   map[id.ClientID]map[string]struct{}
	counts       map[id.ClientID]map[string]int
}

// Compute evaluates compliance for clientIDs in year. It only reads; the
// caller persists and publishes the results. Ambiguous tiers are resolved by
// the tie-break and reported, never returned as errors.
func (s *Service) Compute(ctx context.Context, year int, clientIDs []id.ClientID) ([]*models.Result, error) {
	start := time.Now()
	defer s.metrics.ObserveCompute(start)

	if len(clientIDs) == 0 {
		return nil, nil
	}
	in, err := s.loadInputs(ctx, year, clientIDs)
	if err != nil {
		return nil, err
	}

	results := make([]*models.Result, 0, len(clientIDs))
	for _, cid := range clientIDs {
		tier, ambiguous := ActiveTier(in.segments[cid], year)
		if ambiguous {
			s.reportAmbiguousTier(ctx, cid, year, tier, len(in.segments[cid]))
		}
		required := RequiredSet(tier, in.requirements, in.exclusions[cid])
		res := Evaluate(cid, year, tier, ambiguous, required, in.counts[cid])
		s.metrics.IncrementEvaluation(string(res.Summary.OverallStatus))
		results = append(results, res)
	}
	return results, nil
}

// loadInputs reads the four independent inputs concurrently.
func (s *Service) loadInputs(ctx context.Context, year int, clientIDs []id.ClientID) (*inputs, error) {
	in := &inputs{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		in.segments, err = s.segments.ListForYear(gctx, year, clientIDs)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load segment assignments")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		in.requirements, err = s.requirements.ListTierRequirements(gctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load tier requirements")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		in.exclusions, err = s.requirements.ListExclusions(gctx, clientIDs)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load exclusions")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		in.counts, err = s.events.CountCompleted(gctx, year, clientIDs)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count completed events")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return in, nil
}

func (s *Service) reportAmbiguousTier(ctx context.Context, clientID id.ClientID, year int, tier string, assignments int) {
	s.logger.WarnContext(ctx, "ambiguous segment assignment",
		"code", string(dErrors.CodeAmbiguousSegmentAssignment),
		"client_id", clientID.String(),
		"year", year,
		"chosen_tier", tier,
		"assignments", assignments,
	)
	s.metrics.IncrementAmbiguousTier()
	s.logAudit(ctx, audit.EventSegmentTieBreakUsed, clientID, tier, "year", year)
}

// Persist overwrites the stored results for year and scope. An empty scope
// replaces the whole year. Called inside the refresh transaction.
func (s *Service) Persist(ctx context.Context, year int, scope []id.ClientID, results []*models.Result, generation int64) error {
	if err := s.results.Replace(ctx, year, scope, results, generation); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist compliance results")
	}
	return nil
}

// LoadPersisted returns every stored result, used to seed the view at startup.
func (s *Service) LoadPersisted(ctx context.Context) ([]*models.Result, error) {
	results, err := s.results.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load compliance results")
	}
	return results, nil
}
