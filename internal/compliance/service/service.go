package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"clientpulse/internal/compliance/metrics"
	"clientpulse/internal/compliance/models"
	identity "clientpulse/internal/identity/models"
	"clientpulse/internal/snapshot"
	id "clientpulse/pkg/domain"
	"clientpulse/pkg/platform/audit"
	txcontext "clientpulse/pkg/platform/tx"
	"clientpulse/pkg/requestcontext"
)

type SegmentStore interface {
	Insert(ctx context.Context, a *models.SegmentAssignment) error
	ListByClient(ctx context.Context, clientID id.ClientID) ([]*models.SegmentAssignment, error)
	ListForYear(ctx context.Context, year int, clientIDs []id.ClientID) (map[id.ClientID][]*models.SegmentAssignment, error)
	ClientsWithTier(ctx context.Context, tier string) ([]id.ClientID, error)
}

type RequirementStore interface {
	PutEventType(ctx context.Context, et *models.EventType) error
	FindEventType(ctx context.Context, code string) (*models.EventType, error)
	ListEventTypes(ctx context.Context) ([]*models.EventType, error)
	PutTierRequirement(ctx context.Context, r *models.TierRequirement) error
	ListTierRequirements(ctx context.Context) ([]*models.TierRequirement, error)
	AddExclusion(ctx context.Context, e *models.Exclusion) error
	RemoveExclusion(ctx context.Context, clientID id.ClientID, eventType string) error
	ListExclusions(ctx context.Context, clientIDs []id.ClientID) (map[id.ClientID]map[string]struct{}, error)
}

type EventStore interface {
	Upsert(ctx context.Context, e *models.EngagementEvent) (bool, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.EngagementEvent, error)
	Delete(ctx context.Context, externalID string) error
	CountCompleted(ctx context.Context, year int, clientIDs []id.ClientID) (map[id.ClientID]map[string]int, error)
	ListByClient(ctx context.Context, clientID id.ClientID, year int) ([]*models.EngagementEvent, error)
}

type ResultStore interface {
	Replace(ctx context.Context, year int, clientIDs []id.ClientID, results []*models.Result, generation int64) error
	ListAll(ctx context.Context) ([]*models.Result, error)
}

// ClientDirectory looks up canonical clients and keeps their current
// segment in step with the assignment log.
type ClientDirectory interface {
	GetClient(ctx context.Context, clientID id.ClientID) (*identity.Client, error)
	SetCurrentSegment(ctx context.Context, clientID id.ClientID, tier string) (*identity.Client, error)
}

// DirtyMarker queues client-years for change-triggered recomputation.
type DirtyMarker interface {
	MarkDirty(ctx context.Context, keys ...id.ClientYear) error
}

// ViewSource returns the currently published view.
type ViewSource interface {
	Load() *snapshot.View
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service computes compliance and administers the data it is derived from.
type Service struct {
	segments     SegmentStore
	requirements RequirementStore
	events       EventStore
	results      ResultStore
	clients      ClientDirectory
	views        ViewSource
	dirty        DirtyMarker
	tx           txcontext.Runner

	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = p }
}

func WithDirtyMarker(d DirtyMarker) Option {
	return func(s *Service) { s.dirty = d }
}

func WithTxRunner(r txcontext.Runner) Option {
	return func(s *Service) { s.tx = r }
}

// New constructs a Service.
func New(
	segments SegmentStore,
	requirements RequirementStore,
	events EventStore,
	results ResultStore,
	clients ClientDirectory,
	views ViewSource,
	opts ...Option,
) *Service {
	s := &Service{
		segments:     segments,
		requirements: requirements,
		events:       events,
		results:      results,
		clients:      clients,
		views:        views,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tx == nil {
		s.tx = &txcontext.LockRunner{}
	}
	return s
}

// markDirty is best effort; a lost mark is picked up by the next full refresh.
func (s *Service) markDirty(ctx context.Context, keys ...id.ClientYear) {
	if s.dirty == nil || len(keys) == 0 {
		return
	}
	if err := s.dirty.MarkDirty(ctx, keys...); err != nil {
		s.logger.WarnContext(ctx, "failed to mark clients dirty", "clients", len(keys), "error", err)
	}
}

// tierYears keys clientID to the current year and to every earlier year
// touched by one of its assignments to tier. An empty tier matches any
// assignment.
func (s *Service) tierYears(ctx context.Context, clientID id.ClientID, tier string) []id.ClientYear {
	now := requestcontext.Now(ctx)
	years := map[int]struct{}{now.UTC().Year(): {}}
	list, err := s.segments.ListByClient(ctx, clientID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to list segment assignments for dirty years",
			"client_id", clientID.String(), "error", err)
	}
	for _, a := range list {
		if tier != "" && a.Tier != tier {
			continue
		}
		for _, y := range intervalYears(a, now) {
			years[y] = struct{}{}
		}
	}
	out := make([]id.ClientYear, 0, len(years))
	for y := range years {
		out = append(out, id.ClientYear{ClientID: clientID, Year: y})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// intervalYears lists the calendar years a touches, up to now's year.
func intervalYears(a *models.SegmentAssignment, now time.Time) []int {
	last := now.UTC().Year()
	if a.EffectiveTo != nil && a.EffectiveTo.Year() < last {
		last = a.EffectiveTo.Year()
	}
	var years []int
	for y := a.EffectiveFrom.Year(); y <= last; y++ {
		years = append(years, y)
	}
	return years
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, clientID id.ClientID, subject string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "client_id", clientID.String(), "subject", subject, "event", string(event), "log_type", "audit")
	s.logger.InfoContext(ctx, string(event), args...)
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{ClientID: clientID, Subject: subject, Action: string(event)}); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "event", string(event), "error", err)
	}
}
