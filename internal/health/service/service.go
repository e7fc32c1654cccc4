package service

import (
	"context"
	"log/slog"
	"time"

	compliance "clientpulse/internal/compliance/models"
	"clientpulse/internal/health/formula"
	"clientpulse/internal/health/metrics"
	"clientpulse/internal/health/models"
	identity "clientpulse/internal/identity/models"
	"clientpulse/internal/snapshot"
	id "clientpulse/pkg/domain"
	"clientpulse/pkg/requestcontext"
)

type SurveyStore interface {
	Append(ctx context.Context, r *models.SurveyResponse) error
	ListByClients(ctx context.Context, clientIDs []id.ClientID) (map[id.ClientID][]*models.SurveyResponse, error)
}

type AgingStore interface {
	Upsert(ctx context.Context, a *models.AgingSnapshot) error
	Latest(ctx context.Context, clientIDs []id.ClientID) (map[id.ClientID]*models.AgingSnapshot, error)
}

type SnapshotStore interface {
	AppendBatch(ctx context.Context, snapshots []*models.Snapshot) error
	History(ctx context.Context, clientID id.ClientID, from, to time.Time) ([]*models.Snapshot, error)
	LatestAll(ctx context.Context) ([]*models.Snapshot, error)
}

type ClientDirectory interface {
	GetClient(ctx context.Context, clientID id.ClientID) (*identity.Client, error)
}

type DirtyMarker interface {
	MarkDirty(ctx context.Context, keys ...id.ClientYear) error
}

type ViewSource interface {
	Load() *snapshot.View
}

// ComplianceSource supplies compliance results to score from. A refresh
// pass passes its staged builder so health consumes the compliance it just
// computed.
type ComplianceSource interface {
	Compliance(clientID id.ClientID, year int) (*compliance.Result, bool)
}

// Service scores client health and serves the published snapshots.
type Service struct {
	surveys   SurveyStore
	aging     AgingStore
	snapshots SnapshotStore
	clients   ClientDirectory
	views     ViewSource
	formulas  *formula.Table
	dirty     DirtyMarker

	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithDirtyMarker(d DirtyMarker) Option {
	return func(s *Service) { s.dirty = d }
}

// WithFormulas overrides the built-in weight tables.
func WithFormulas(t *formula.Table) Option {
	return func(s *Service) { s.formulas = t }
}

func New(surveys SurveyStore, aging AgingStore, snapshots SnapshotStore, clients ClientDirectory, views ViewSource, opts ...Option) *Service {
	s := &Service{
		surveys:   surveys,
		aging:     aging,
		snapshots: snapshots,
		clients:   clients,
		views:     views,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.formulas == nil {
		s.formulas = formula.Builtin()
	}
	return s
}

// markDirty queues clients for the current year, the only year health
// scores from.
func (s *Service) markDirty(ctx context.Context, clientIDs ...id.ClientID) {
	if s.dirty == nil {
		return
	}
	year := requestcontext.Now(ctx).UTC().Year()
	if err := s.dirty.MarkDirty(ctx, id.ForYear(year, clientIDs...)...); err != nil {
		s.logger.WarnContext(ctx, "failed to mark clients dirty", "clients", len(clientIDs), "error", err)
	}
}
