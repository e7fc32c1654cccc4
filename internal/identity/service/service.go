package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"clientpulse/internal/identity/metrics"
	"clientpulse/internal/identity/models"
	id "clientpulse/pkg/domain"
	"clientpulse/pkg/platform/audit"
	txcontext "clientpulse/pkg/platform/tx"
	"clientpulse/pkg/requestcontext"
)

type ClientStore interface {
	Create(ctx context.Context, c *models.Client) error
	Update(ctx context.Context, c *models.Client) error
	FindByID(ctx context.Context, clientID id.ClientID) (*models.Client, error)
	FindByName(ctx context.Context, name string) (*models.Client, error)
	ListAll(ctx context.Context) ([]*models.Client, error)
	ListActive(ctx context.Context) ([]*models.Client, error)
}

type AliasStore interface {
	Create(ctx context.Context, a *models.Alias) error
	FindActive(ctx context.Context, displayName string) (*models.Alias, error)
	Deactivate(ctx context.Context, displayName string, now time.Time) error
	ListActive(ctx context.Context) ([]*models.Alias, error)
}

type UnresolvedStore interface {
	Record(ctx context.Context, rawName, source string, now time.Time) error
	List(ctx context.Context, includeResolved bool) ([]*models.UnresolvedName, error)
	MarkResolved(ctx context.Context, rawNames []string) (int, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service resolves free-text client names and administers the client and alias tables.
type Service struct {
	clients    ClientStore
	aliases    AliasStore
	unresolved UnresolvedStore
	tx         txcontext.Runner

	idx atomic.Pointer[index]

	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = p
	}
}

// WithTxRunner sets the transactional boundary for admin mutations.
func WithTxRunner(r txcontext.Runner) Option {
	return func(s *Service) {
		s.tx = r
	}
}

// New constructs a Service with an empty index. Call Rebuild before serving.
func New(clients ClientStore, aliases AliasStore, unresolved UnresolvedStore, opts ...Option) *Service {
	s := &Service{
		clients:    clients,
		aliases:    aliases,
		unresolved: unresolved,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = &txcontext.LockRunner{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.idx.Store(newIndex(nil, nil))
	return s
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
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		ClientID: clientID,
		Subject:  subject,
		Action:   string(event),
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "event", string(event), "error", err)
	}
}
