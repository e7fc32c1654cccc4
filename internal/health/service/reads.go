package service

import (
	"context"
	"errors"
	"time"

	"clientpulse/internal/health/models"
	id "clientpulse/pkg/domain"
	dErrors "clientpulse/pkg/domain-errors"
	"clientpulse/pkg/platform/sentinel"
)

// Current returns the client's most recent published snapshot and the time
// that snapshot was refreshed. When minRefreshedAt is later than that time
// the snapshot is still returned, flagged stale.
func (s *Service) Current(ctx context.Context, clientID id.ClientID, minRefreshedAt *time.Time) (*models.CurrentHealth, error) {
	if err := s.requireClient(ctx, clientID); err != nil {
		return nil, err
	}
	snap, ok := s.views.Load().Health(clientID)
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "no health snapshot for client")
	}
	out := &models.CurrentHealth{Snapshot: snap, RefreshedAt: snap.RefreshedAt}
	if minRefreshedAt != nil && snap.RefreshedAt.Before(*minRefreshedAt) {
		out.Stale = true
		s.metrics.IncrementStaleRead()
		s.logger.InfoContext(ctx, "serving stale health snapshot",
			"code", string(dErrors.CodeStaleSnapshot),
			"client_id", clientID.String(),
			"refreshed_at", snap.RefreshedAt,
			"requested_after", *minRefreshedAt,
		)
	}
	return out, nil
}

// History returns stored snapshots with a date in [from, to], oldest first.
// Zero bounds are open.
func (s *Service) History(ctx context.Context, clientID id.ClientID, from, to time.Time) ([]*models.Snapshot, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, dErrors.New(dErrors.CodeValidation, "to must not be before from")
	}
	if err := s.requireClient(ctx, clientID); err != nil {
		return nil, err
	}
	list, err := s.snapshots.History(ctx, clientID, from, to)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load health history")
	}
	return list, nil
}

// RecordSurvey stores a survey response and queues the client for rescoring.
func (s *Service) RecordSurvey(ctx context.Context, r *models.SurveyResponse) error {
	if err := s.requireClient(ctx, r.ClientID); err != nil {
		return err
	}
	if err := s.surveys.Append(ctx, r); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "client not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store survey response")
	}
	s.markDirty(ctx, r.ClientID)
	return nil
}

// RecordAging stores an aging report, replacing one with the same as-of date.
func (s *Service) RecordAging(ctx context.Context, a *models.AgingSnapshot) error {
	if err := s.requireClient(ctx, a.ClientID); err != nil {
		return err
	}
	if err := s.aging.Upsert(ctx, a); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "client not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store aging snapshot")
	}
	s.markDirty(ctx, a.ClientID)
	return nil
}

func (s *Service) requireClient(ctx context.Context, clientID id.ClientID) error {
	if s.clients == nil {
		return nil
	}
	if _, err := s.clients.GetClient(ctx, clientID); err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "client not found")
		}
		return err
	}
	return nil
}
