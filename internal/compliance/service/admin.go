package service

import (
	"context"
	"errors"

	"clientpulse/internal/compliance/models"
	id "clientpulse/pkg/domain"
	dErrors "clientpulse/pkg/domain-errors"
	"clientpulse/pkg/platform/audit"
	"clientpulse/pkg/platform/sentinel"
	"clientpulse/pkg/requestcontext"
)

// AssignSegment appends a segment assignment. Overlapping an existing
// interval of the same client is a conflict; to move a client between tiers
// the earlier row must have been inserted with an effective_to. An
// assignment covering today becomes the client's current segment in the
// same transaction.
func (s *Service) AssignSegment(ctx context.Context, req *models.AssignSegmentRequest) (*models.SegmentAssignment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireClient(ctx, req.ClientID); err != nil {
		return nil, err
	}
	from, to := req.Interval()
	a, err := models.NewSegmentAssignment(req.ClientID, req.Tier, from, to, requestcontext.Now(ctx))
	if err != nil {
		return nil, toValidation(err)
	}
	now := requestcontext.Now(ctx)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.segments.Insert(ctx, a); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "segment assignment overlaps an existing interval")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to insert segment assignment")
		}
		if s.clients == nil || !a.Contains(now) {
			return nil
		}
		if _, err := s.clients.SetCurrentSegment(ctx, a.ClientID, a.Tier); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventSegmentAssigned, a.ClientID, a.Tier,
		"effective_from", a.EffectiveFrom.Format("2006-01-02"))
	keys := []id.ClientYear{{ClientID: a.ClientID, Year: now.UTC().Year()}}
	for _, y := range intervalYears(a, now) {
		if y != keys[0].Year {
			keys = append(keys, id.ClientYear{ClientID: a.ClientID, Year: y})
		}
	}
	s.markDirty(ctx, keys...)
	return a, nil
}

// ListSegments returns a client's assignment history in insertion order.
func (s *Service) ListSegments(ctx context.Context, clientID id.ClientID) ([]*models.SegmentAssignment, error) {
	list, err := s.segments.ListByClient(ctx, clientID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list segment assignments")
	}
	return list, nil
}

// AddExclusion removes an event type from a client's requirements for all
// years. Adding an existing exclusion is a no-op.
func (s *Service) AddExclusion(ctx context.Context, req *models.ExclusionRequest) (*models.Exclusion, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireClient(ctx, req.ClientID); err != nil {
		return nil, err
	}
	e := &models.Exclusion{ClientID: req.ClientID, EventType: req.EventType, CreatedAt: requestcontext.Now(ctx)}
	if err := s.requirements.AddExclusion(ctx, e); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeValidation, "unknown event type")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to add exclusion")
	}
	s.logAudit(ctx, audit.EventExclusionAdded, e.ClientID, e.EventType)
	s.markDirty(ctx, s.tierYears(ctx, e.ClientID, "")...)
	return e, nil
}

func (s *Service) RemoveExclusion(ctx context.Context, req *models.ExclusionRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if err := s.requirements.RemoveExclusion(ctx, req.ClientID, req.EventType); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "exclusion not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove exclusion")
	}
	s.logAudit(ctx, audit.EventExclusionRemoved, req.ClientID, req.EventType)
	s.markDirty(ctx, s.tierYears(ctx, req.ClientID, "")...)
	return nil
}

// DefineEventType creates or renames an event type.
func (s *Service) DefineEventType(ctx context.Context, req *models.DefineEventTypeRequest) (*models.EventType, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	et, err := models.NewEventType(req.Code, req.Name)
	if err != nil {
		return nil, toValidation(err)
	}
	if err := s.requirements.PutEventType(ctx, et); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save event type")
	}
	s.logAudit(ctx, audit.EventEventTypeDefined, id.ClientID{}, et.Code)
	return et, nil
}

func (s *Service) ListEventTypes(ctx context.Context) ([]*models.EventType, error) {
	list, err := s.requirements.ListEventTypes(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list event types")
	}
	return list, nil
}

// SetTierRequirement sets a tier's yearly frequency for an event type and
// marks every client ever assigned to the tier dirty for the years it held
// the tier.
func (s *Service) SetTierRequirement(ctx context.Context, req *models.SetTierRequirementRequest) (*models.TierRequirement, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r, err := models.NewTierRequirement(req.Tier, req.EventType, req.FrequencyPerYear)
	if err != nil {
		return nil, toValidation(err)
	}
	if err := s.requirements.PutTierRequirement(ctx, r); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeValidation, "unknown event type")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save tier requirement")
	}
	s.logAudit(ctx, audit.EventTierRequirementSet, id.ClientID{}, r.Tier,
		"event_type", r.EventType, "frequency_per_year", r.FrequencyPerYear)

	affected, err := s.segments.ClientsWithTier(ctx, r.Tier)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to list clients for tier", "tier", r.Tier, "error", err)
		return r, nil
	}
	for _, cid := range affected {
		s.markDirty(ctx, s.tierYears(ctx, cid, r.Tier)...)
	}
	return r, nil
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

func toValidation(err error) error {
	if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		return dErrors.New(dErrors.CodeValidation, err.Error())
	}
	return err
}
