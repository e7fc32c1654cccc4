package service

import (
	"context"
	"errors"

	"clientpulse/internal/compliance/models"
	id "clientpulse/pkg/domain"
	dErrors "clientpulse/pkg/domain-errors"
	"clientpulse/pkg/platform/sentinel"
	"clientpulse/pkg/requestcontext"
)

// UpsertEvent stores a meeting keyed by its external id. Re-sending the same
// meeting updates it in place; created reports whether it was new.
func (s *Service) UpsertEvent(ctx context.Context, e *models.EngagementEvent) (bool, error) {
	if _, err := s.requirements.FindEventType(ctx, e.EventType); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, dErrors.Newf(dErrors.CodeValidation, "unknown event type %q", e.EventType)
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event type")
	}

	var prev *models.EngagementEvent
	if found, err := s.events.FindByExternalID(ctx, e.ExternalID); err == nil {
		prev = found
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}

	created, err := s.events.Upsert(ctx, e)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save event")
	}
	keys := []id.ClientYear{eventKey(e)}
	if prev != nil && eventKey(prev) != keys[0] {
		keys = append(keys, eventKey(prev))
	}
	s.markDirty(ctx, keys...)
	return created, nil
}

// CompleteEvent marks a stored meeting as completed.
func (s *Service) CompleteEvent(ctx context.Context, externalID string) (*models.EngagementEvent, error) {
	e, err := s.events.FindByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}
	if e.Completed {
		return e, nil
	}
	e.Complete(requestcontext.Now(ctx))
	if _, err := s.events.Upsert(ctx, e); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save event")
	}
	s.markDirty(ctx, eventKey(e))
	return e, nil
}

// DeleteEvent removes a meeting cancelled upstream.
func (s *Service) DeleteEvent(ctx context.Context, externalID string) error {
	e, err := s.events.FindByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}
	if err := s.events.Delete(ctx, externalID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete event")
	}
	s.markDirty(ctx, eventKey(e))
	return nil
}

func (s *Service) ListEvents(ctx context.Context, clientID id.ClientID, year int) ([]*models.EngagementEvent, error) {
	list, err := s.events.ListByClient(ctx, clientID, year)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list events")
	}
	return list, nil
}

// eventKey is the client-year whose compliance counts e.
func eventKey(e *models.EngagementEvent) id.ClientYear {
	return id.ClientYear{ClientID: e.ClientID, Year: e.Year()}
}
