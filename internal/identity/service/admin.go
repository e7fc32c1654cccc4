package service

import (
	"context"
	"errors"
	"strings"

	"clientpulse/internal/identity/models"
	id "clientpulse/pkg/domain"
	dErrors "clientpulse/pkg/domain-errors"
	"clientpulse/pkg/platform/audit"
	"clientpulse/pkg/platform/sentinel"
	"clientpulse/pkg/requestcontext"
)

// CreateClient registers a canonical client. Canonical names are unique
// ignoring case and may not shadow an active alias.
func (s *Service) CreateClient(ctx context.Context, req *models.CreateClientRequest) (*models.Client, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	c, err := models.NewClient(id.NewClientID(), req.CanonicalName, req.Country, req.Segment, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.aliases.FindActive(ctx, c.CanonicalName); err == nil {
			return dErrors.New(dErrors.CodeConflict, "canonical name is an active alias")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check aliases")
		}
		if err := s.clients.Create(ctx, c); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "canonical name already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create client")
		}
		if _, err := s.unresolved.MarkResolved(ctx, []string{c.CanonicalName}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update unresolved queue")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.rebuildAfterMutation(ctx)
	s.logAudit(ctx, audit.EventClientCreated, c.ID, c.CanonicalName)
	return c, nil
}

// DeactivateClient marks the client inactive. Its names keep resolving.
func (s *Service) DeactivateClient(ctx context.Context, clientID id.ClientID) (*models.Client, error) {
	var c *models.Client
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		c, err = s.clients.FindByID(ctx, clientID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "client not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load client")
		}
		if err := c.Deactivate(requestcontext.Now(ctx)); err != nil {
			return dErrors.New(dErrors.CodeConflict, err.Error())
		}
		if err := s.clients.Update(ctx, c); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update client")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventClientDeactivated, c.ID, c.CanonicalName)
	return c, nil
}

// CreateAlias maps a display name onto an existing canonical client.
// Re-creating the same mapping is a no-op and returns created=false.
func (s *Service) CreateAlias(ctx context.Context, req *models.CreateAliasRequest) (*models.Alias, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, err
	}
	a, err := models.NewAlias(req.DisplayName, req.CanonicalName, requestcontext.Now(ctx))
	if err != nil {
		return nil, false, dErrors.New(dErrors.CodeValidation, err.Error())
	}

	var (
		result  *models.Alias
		created bool
		target  *models.Client
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		target, err = s.clients.FindByName(ctx, a.CanonicalName)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "canonical client not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load client")
		}
		if e, ok := s.idx.Load().lower[strings.ToLower(a.DisplayName)]; ok && e.clientID != target.ID {
			return dErrors.New(dErrors.CodeConflict, "display name is another client's canonical name")
		}

		existing, err := s.aliases.FindActive(ctx, a.DisplayName)
		switch {
		case err == nil && existing.CanonicalName == a.CanonicalName:
			result = existing
			return nil
		case err == nil:
			return dErrors.New(dErrors.CodeConflict, "display name is already mapped to another client")
		case !errors.Is(err, sentinel.ErrNotFound):
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load alias")
		}

		if err := s.aliases.Create(ctx, a); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "display name is already mapped to another client")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create alias")
		}
		if _, err := s.unresolved.MarkResolved(ctx, []string{a.DisplayName}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update unresolved queue")
		}
		result, created = a, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		s.rebuildAfterMutation(ctx)
		s.logAudit(ctx, audit.EventAliasCreated, target.ID, a.DisplayName, "canonical_name", a.CanonicalName)
	}
	return result, created, nil
}

func (s *Service) DeactivateAlias(ctx context.Context, displayName string) error {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return dErrors.New(dErrors.CodeValidation, "display_name is required")
	}
	var a *models.Alias
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		a, err = s.aliases.FindActive(ctx, displayName)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "alias not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load alias")
		}
		if err := s.aliases.Deactivate(ctx, displayName, requestcontext.Now(ctx)); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate alias")
		}
		return nil
	})
	if err != nil {
		return err
	}

	var clientID id.ClientID
	if e, ok := s.idx.Load().exact[a.CanonicalName]; ok {
		clientID = e.clientID
	}
	s.rebuildAfterMutation(ctx)
	s.logAudit(ctx, audit.EventAliasDeactivated, clientID, displayName)
	return nil
}

// RecordUnresolved queues a raw name that did not resolve.
func (s *Service) RecordUnresolved(ctx context.Context, rawName, source string) error {
	rawName = strings.TrimSpace(rawName)
	if rawName == "" {
		return nil
	}
	if err := s.unresolved.Record(ctx, rawName, source, requestcontext.Now(ctx)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record unresolved name")
	}
	s.metrics.IncrementUnresolved(source)
	s.logger.WarnContext(ctx, "client name unresolved", "raw_name", rawName, "source", source)
	s.logAudit(ctx, audit.EventNameUnresolved, id.ClientID{}, rawName, "source", source)
	return nil
}

func (s *Service) ListUnresolved(ctx context.Context, includeResolved bool) ([]*models.UnresolvedName, error) {
	list, err := s.unresolved.List(ctx, includeResolved)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list unresolved names")
	}
	return list, nil
}

func (s *Service) GetClient(ctx context.Context, clientID id.ClientID) (*models.Client, error) {
	c, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "client not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load client")
	}
	return c, nil
}

// SetCurrentSegment records tier as the client's current segment. It joins
// the transaction carried by ctx rather than opening one, so callers can pair
// it with their own writes.
func (s *Service) SetCurrentSegment(ctx context.Context, clientID id.ClientID, tier string) (*models.Client, error) {
	c, err := s.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if err := c.AssignSegment(tier, requestcontext.Now(ctx)); err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, err.Error())
	}
	if err := s.clients.Update(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "client not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update client")
	}
	s.logger.InfoContext(ctx, "client segment changed", "client_id", c.ID.String(), "segment", c.CurrentSegment)
	return c, nil
}

// ActiveClients lists clients included in full recomputation.
func (s *Service) ActiveClients(ctx context.Context) ([]*models.Client, error) {
	list, err := s.clients.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list active clients")
	}
	return list, nil
}

// rebuildAfterMutation refreshes the index once the mutation has committed.
// A failure leaves the previous index in place until the next rebuild.
func (s *Service) rebuildAfterMutation(ctx context.Context) {
	if err := s.Rebuild(ctx); err != nil {
		s.logger.ErrorContext(ctx, "failed to rebuild resolver index", "error", err)
	}
}
