// Package service converts raw feed rows into typed records once, at the
// boundary. Names are resolved through the identity resolver; rows that
// fail to parse or resolve are rejected with a reason and never reach the
// domain services.
package service

import (
	"context"
	"log/slog"

	compliance "clientpulse/internal/compliance/models"
	health "clientpulse/internal/health/models"
	identity "clientpulse/internal/identity/models"
	"clientpulse/internal/ingest/metrics"
	"clientpulse/internal/ingest/models"
	id "clientpulse/pkg/domain"
	dErrors "clientpulse/pkg/domain-errors"
	"clientpulse/pkg/requestcontext"
)

type Resolver interface {
	Resolve(ctx context.Context, rawName string) (*identity.Resolution, error)
	ResolveBatch(ctx context.Context, rawName string) (*identity.Resolution, error)
	RecordUnresolved(ctx context.Context, rawName, source string) error
}

// ResolveMode selects how client names are matched. Batch feeds allow the
// fuzzy containment step; streamed records match exactly.
type ResolveMode int

const (
	ResolveBatch ResolveMode = iota
	ResolveExact
)

func (m ResolveMode) String() string {
	if m == ResolveExact {
		return "exact"
	}
	return "batch"
}

type EngagementRecorder interface {
	UpsertEvent(ctx context.Context, e *compliance.EngagementEvent) (bool, error)
	CompleteEvent(ctx context.Context, externalID string) (*compliance.EngagementEvent, error)
	DeleteEvent(ctx context.Context, externalID string) error
}

type SignalRecorder interface {
	RecordSurvey(ctx context.Context, r *health.SurveyResponse) error
	RecordAging(ctx context.Context, a *health.AgingSnapshot) error
}

type Service struct {
	resolver   Resolver
	engagement EngagementRecorder
	signals    SignalRecorder
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(resolver Resolver, engagement EngagementRecorder, signals SignalRecorder, opts ...Option) *Service {
	s := &Service{resolver: resolver, engagement: engagement, signals: signals}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// IngestMeetings applies meeting lifecycle rows in order. The returned error
// is set only for storage failures, which stop the batch; the report then
// covers the rows handled before the failure.
func (s *Service) IngestMeetings(ctx context.Context, source string, rows []models.MeetingRow) (*models.Report, error) {
	return s.IngestMeetingsMode(ctx, source, ResolveBatch, rows)
}

// IngestMeetingsMode is IngestMeetings with an explicit name matching mode.
func (s *Service) IngestMeetingsMode(ctx context.Context, source string, mode ResolveMode, rows []models.MeetingRow) (*models.Report, error) {
	report := models.NewReport(models.FeedMeetings, len(rows))
	source = sourceOr(source, models.FeedMeetings)
	for i := range rows {
		row := rows[i]
		row.Normalize()
		err := s.applyMeeting(ctx, source, mode, &row)
		if stop := s.settle(ctx, report, i, row.ExternalID, row.ClientName, err); stop != nil {
			return report, stop
		}
	}
	s.logBatch(ctx, report, source, mode)
	return report, nil
}

func (s *Service) applyMeeting(ctx context.Context, source string, mode ResolveMode, row *models.MeetingRow) error {
	if row.ExternalID == "" {
		return dErrors.New(dErrors.CodeValidation, "external_id is required")
	}
	switch row.Action {
	case models.ActionCreate:
		date, err := models.ParseDate(row.Date)
		if err != nil {
			return err
		}
		clientID, err := s.resolve(ctx, source, mode, row.ClientName)
		if err != nil {
			return err
		}
		e, err := compliance.NewEngagementEvent(row.ExternalID, clientID, row.EventType, date, row.Completed, requestcontext.Now(ctx))
		if err != nil {
			return toValidation(err)
		}
		_, err = s.engagement.UpsertEvent(ctx, e)
		return err
	case models.ActionComplete:
		_, err := s.engagement.CompleteEvent(ctx, row.ExternalID)
		return err
	case models.ActionDelete:
		return s.engagement.DeleteEvent(ctx, row.ExternalID)
	default:
		return dErrors.Newf(dErrors.CodeValidation, "unknown meeting action %q", row.Action)
	}
}

func (s *Service) IngestSurveys(ctx context.Context, source string, rows []models.SurveyRow) (*models.Report, error) {
	report := models.NewReport(models.FeedSurveys, len(rows))
	source = sourceOr(source, models.FeedSurveys)
	for i := range rows {
		row := rows[i]
		err := s.applySurvey(ctx, source, &row)
		if stop := s.settle(ctx, report, i, "", row.ClientName, err); stop != nil {
			return report, stop
		}
	}
	s.logBatch(ctx, report, source, ResolveBatch)
	return report, nil
}

func (s *Service) applySurvey(ctx context.Context, source string, row *models.SurveyRow) error {
	if row.Score == nil {
		return dErrors.New(dErrors.CodeValidation, "score is required")
	}
	respondedAt, err := models.ParseDate(row.RespondedAt)
	if err != nil {
		return err
	}
	clientID, err := s.resolve(ctx, source, ResolveBatch, row.ClientName)
	if err != nil {
		return err
	}
	r, err := health.NewSurveyResponse(clientID, *row.Score, respondedAt, row.Period, row.Feedback)
	if err != nil {
		return toValidation(err)
	}
	return s.signals.RecordSurvey(ctx, r)
}

func (s *Service) IngestAging(ctx context.Context, source string, rows []models.AgingRow) (*models.Report, error) {
	report := models.NewReport(models.FeedAging, len(rows))
	source = sourceOr(source, models.FeedAging)
	for i := range rows {
		row := rows[i]
		err := s.applyAging(ctx, source, &row)
		if stop := s.settle(ctx, report, i, "", row.ClientName, err); stop != nil {
			return report, stop
		}
	}
	s.logBatch(ctx, report, source, ResolveBatch)
	return report, nil
}

func (s *Service) applyAging(ctx context.Context, source string, row *models.AgingRow) error {
	asOf, err := models.ParseDate(row.AsOf)
	if err != nil {
		return err
	}
	clientID, err := s.resolve(ctx, source, ResolveBatch, row.ClientName)
	if err != nil {
		return err
	}
	a, err := health.NewAgingSnapshot(clientID, asOf, row.Buckets())
	if err != nil {
		return toValidation(err)
	}
	return s.signals.RecordAging(ctx, a)
}

// resolve maps a raw name to a client. Misses are queued for an operator
// and returned as unresolved_client_name.
func (s *Service) resolve(ctx context.Context, source string, mode ResolveMode, rawName string) (id.ClientID, error) {
	var res *identity.Resolution
	var err error
	if mode == ResolveExact {
		res, err = s.resolver.Resolve(ctx, rawName)
	} else {
		res, err = s.resolver.ResolveBatch(ctx, rawName)
	}
	if err == nil {
		return res.ClientID, nil
	}
	if dErrors.HasCode(err, dErrors.CodeUnresolvedClientName) {
		if recErr := s.resolver.RecordUnresolved(ctx, rawName, source); recErr != nil {
			return id.ClientID{}, recErr
		}
	}
	return id.ClientID{}, err
}

// settle records the row outcome. It returns err back when the failure is
// not the row's fault and the batch must stop.
func (s *Service) settle(ctx context.Context, report *models.Report, row int, externalID, clientName string, err error) error {
	feed := string(report.Feed)
	if err == nil {
		report.Accepted++
		s.metrics.IncrementAccepted(feed)
		return nil
	}
	code := dErrors.CodeOf(err)
	switch code {
	case dErrors.CodeInternal, dErrors.CodeUnavailable, dErrors.CodeTimeout:
		s.logger.ErrorContext(ctx, "ingest batch aborted",
			"feed", feed,
			"row", row,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return err
	}
	msg := err.Error()
	if de, ok := dErrors.As(err); ok {
		msg = de.Message
	}
	report.Rejected = append(report.Rejected, models.Rejection{
		Row:        row,
		ExternalID: externalID,
		ClientName: clientName,
		Code:       string(code),
		Reason:     msg,
	})
	s.metrics.IncrementRejected(feed, string(code))
	return nil
}

func (s *Service) logBatch(ctx context.Context, report *models.Report, source string, mode ResolveMode) {
	level := slog.LevelInfo
	if len(report.Rejected) > 0 {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "ingest batch applied",
		"feed", string(report.Feed),
		"source", source,
		"resolve_mode", mode.String(),
		"received", report.Received,
		"accepted", report.Accepted,
		"rejected", len(report.Rejected),
		"request_id", requestcontext.RequestID(ctx),
	)
}

func sourceOr(source string, feed models.Feed) string {
	if source == "" {
		return string(feed)
	}
	return source
}

func toValidation(err error) error {
	if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		if de, ok := dErrors.As(err); ok {
			return dErrors.New(dErrors.CodeValidation, de.Message)
		}
	}
	return err
}
