// Package service runs refresh passes: compliance is computed for the
// scope, health is scored from the staged compliance, both are persisted
// in one transaction and the new view is published with a pointer swap.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	compliance "clientpulse/internal/compliance/models"
	health "clientpulse/internal/health/models"
	healthsvc "clientpulse/internal/health/service"
	identity "clientpulse/internal/identity/models"
	"clientpulse/internal/platform/distlock"
	"clientpulse/internal/refresh/metrics"
	"clientpulse/internal/refresh/models"
	"clientpulse/internal/snapshot"
	id "clientpulse/pkg/domain"
	"clientpulse/pkg/platform/audit"
	txcontext "clientpulse/pkg/platform/tx"
	"clientpulse/pkg/requestcontext"
)

// LockKey names the cross-process writer lock.
const LockKey = "clientpulse:refresh:writer"

type ComplianceEngine interface {
	Compute(ctx context.Context, year int, clientIDs []id.ClientID) ([]*compliance.Result, error)
	Persist(ctx context.Context, year int, scope []id.ClientID, results []*compliance.Result, generation int64) error
	LoadPersisted(ctx context.Context) ([]*compliance.Result, error)
}

type HealthEngine interface {
	Score(ctx context.Context, year int, clientIDs []id.ClientID, src healthsvc.ComplianceSource, generation int64, refreshedAt time.Time) ([]*health.Snapshot, error)
	Persist(ctx context.Context, snapshots []*health.Snapshot) error
	LoadLatest(ctx context.Context) ([]*health.Snapshot, error)
}

type ClientDirectory interface {
	GetClient(ctx context.Context, clientID id.ClientID) (*identity.Client, error)
	ActiveClients(ctx context.Context) ([]*identity.Client, error)
}

type StateStore interface {
	Load(ctx context.Context) (*models.State, error)
	Save(ctx context.Context, st *models.State) error
}

// EventPublisher announces published snapshots. Failures never fail a pass.
type EventPublisher interface {
	Publish(ctx context.Context, snapshots []*health.Snapshot)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Coordinator is the single writer of the published view.
type Coordinator struct {
	compliance ComplianceEngine
	health     HealthEngine
	clients    ClientDirectory
	state      StateStore
	holder     *snapshot.Holder

	tx        txcontext.Runner
	locks     distlock.Factory
	lockTTL   time.Duration
	lockRetry time.Duration
	group     singleflight.Group
	mu        sync.Mutex

	events         EventPublisher
	auditPublisher AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	now            func() time.Time
}

type Option func(*Coordinator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

func WithTxRunner(tx txcontext.Runner) Option {
	return func(c *Coordinator) { c.tx = tx }
}

// WithLockFactory sets the cross-process writer lock. Without it only the
// in-process mutex serializes passes.
func WithLockFactory(f distlock.Factory) Option {
	return func(c *Coordinator) { c.locks = f }
}

// WithLockTTL is the expiry of the writer lock. Expiring locks are renewed
// at a third of it while a pass runs.
func WithLockTTL(d time.Duration) Option {
	return func(c *Coordinator) { c.lockTTL = d }
}

func WithLockRetry(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.lockRetry = d
		}
	}
}

func WithEventPublisher(p EventPublisher) Option {
	return func(c *Coordinator) { c.events = p }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(c *Coordinator) { c.auditPublisher = p }
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Coordinator) { c.tracer = t }
}

// WithClock overrides the pass timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func New(complianceEngine ComplianceEngine, healthEngine HealthEngine, clients ClientDirectory, state StateStore, holder *snapshot.Holder, opts ...Option) *Coordinator {
	c := &Coordinator{
		compliance: complianceEngine,
		health:     healthEngine,
		clients:    clients,
		state:      state,
		holder:     holder,
		lockRetry:  250 * time.Millisecond,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tx == nil {
		c.tx = &txcontext.LockRunner{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer("clientpulse/refresh")
	}
	return c
}

// Status reports the published generation.
func (c *Coordinator) Status(context.Context) (*models.State, error) {
	v := c.holder.Load()
	return &models.State{Generation: v.Generation(), RefreshedAt: v.RefreshedAt()}, nil
}

func (c *Coordinator) logAudit(ctx context.Context, event audit.AuditEvent, clientID id.ClientID, subject string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "subject", subject, "event", string(event), "log_type", "audit")
	if !clientID.IsNil() {
		args = append(args, "client_id", clientID.String())
	}
	if event == audit.EventRefreshFailed {
		c.logger.ErrorContext(ctx, string(event), args...)
	} else {
		c.logger.InfoContext(ctx, string(event), args...)
	}
	if c.auditPublisher == nil {
		return
	}
	if err := c.auditPublisher.Emit(ctx, audit.Event{
		ClientID: clientID,
		Subject:  subject,
		Action:   string(event),
	}); err != nil {
		c.logger.WarnContext(ctx, "failed to emit audit event", "event", string(event), "error", err)
	}
}
