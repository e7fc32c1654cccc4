package service

import (
	"context"

	"clientpulse/internal/identity/models"
	dErrors "clientpulse/pkg/domain-errors"
	pstrings "clientpulse/pkg/platform/strings"
)

// Resolve maps a free-text name to one canonical client using, in order,
// exact canonical match, active alias, then case-insensitive canonical match.
// It never writes; callers record misses with RecordUnresolved.
func (s *Service) Resolve(ctx context.Context, rawName string) (*models.Resolution, error) {
	name := pstrings.CollapseSpace(rawName)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if e, step, ok := s.idx.Load().lookup(name); ok {
		s.metrics.IncrementResolution(string(step))
		return &models.Resolution{ClientID: e.clientID, CanonicalName: e.canonicalName, Step: step}, nil
	}
	return nil, unresolvedError(name)
}

// ResolveBatch is Resolve plus a fuzzy containment step for batch
// reconciliation. A fuzzy hit on more than one client is treated as a miss.
func (s *Service) ResolveBatch(ctx context.Context, rawName string) (*models.Resolution, error) {
	res, err := s.Resolve(ctx, rawName)
	if err == nil || !dErrors.HasCode(err, dErrors.CodeUnresolvedClientName) {
		return res, err
	}
	name := pstrings.CollapseSpace(rawName)
	matches := s.idx.Load().fuzzy(name)
	switch len(matches) {
	case 0:
		return nil, err
	case 1:
		s.metrics.IncrementResolution(string(models.MatchFuzzy))
		return &models.Resolution{
			ClientID:      matches[0].clientID,
			CanonicalName: matches[0].canonicalName,
			Step:          models.MatchFuzzy,
		}, nil
	default:
		s.metrics.IncrementFuzzyAmbiguous()
		s.logger.WarnContext(ctx, "fuzzy match ambiguous",
			"name", name,
			"candidates", len(matches),
		)
		return nil, dErrors.Newf(dErrors.CodeUnresolvedClientName, "name %q matches %d clients", name, len(matches))
	}
}

// Rebuild reloads clients and active aliases and swaps in a fresh index.
func (s *Service) Rebuild(ctx context.Context) error {
	clients, err := s.clients.ListAll(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load clients")
	}
	aliases, err := s.aliases.ListActive(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load aliases")
	}
	idx := newIndex(clients, aliases)
	s.idx.Store(idx)
	s.metrics.ObserveIndexRebuild(idx.size())
	return nil
}

func unresolvedError(name string) error {
	return dErrors.Newf(dErrors.CodeUnresolvedClientName, "no client matches %q", name)
}
