package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	compliance "clientpulse/internal/compliance/models"
	health "clientpulse/internal/health/models"
	identity "clientpulse/internal/identity/models"
	"clientpulse/internal/ingest/metrics"
	"clientpulse/internal/ingest/models"
	"clientpulse/internal/ingest/service/mocks"
	id "clientpulse/pkg/domain"
	dErrors "clientpulse/pkg/domain-errors"
	"clientpulse/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/ingest-mocks.go -package=mocks Resolver EngagementRecorder SignalRecorder
type IngestServiceSuite struct {
	suite.Suite
	ctx        context.Context
	resolver   *mocks.MockResolver
	engagement *mocks.MockEngagementRecorder
	signals    *mocks.MockSignalRecorder
	metrics    *metrics.Metrics
	svc        *Service
	acme       id.ClientID
}

func TestIngestServiceSuite(t *testing.T) {
	suite.Run(t, new(IngestServiceSuite))
}

func (s *IngestServiceSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	s.resolver = mocks.NewMockResolver(ctrl)
	s.engagement = mocks.NewMockEngagementRecorder(ctrl)
	s.signals = mocks.NewMockSignalRecorder(ctrl)
	s.metrics = metrics.NewWithRegistry(prometheus.NewRegistry())
	s.svc = New(s.resolver, s.engagement, s.signals,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
	)
	s.acme = id.NewClientID()
}

func (s *IngestServiceSuite) expectResolved(name string) {
	s.resolver.EXPECT().ResolveBatch(gomock.Any(), name).
		Return(&identity.Resolution{ClientID: s.acme, CanonicalName: "Acme Pty Ltd", Step: identity.MatchAlias}, nil)
}

func (s *IngestServiceSuite) TestMeetingLifecycle() {
	s.expectResolved("ACME")
	s.engagement.EXPECT().UpsertEvent(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e *compliance.EngagementEvent) (bool, error) {
			s.Equal(s.acme, e.ClientID)
			s.Equal("QBR", e.EventType)
			s.Equal(time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC), e.Date)
			s.False(e.Completed)
			return true, nil
		})
	s.engagement.EXPECT().CompleteEvent(gomock.Any(), "m-1").Return(&compliance.EngagementEvent{}, nil)
	s.engagement.EXPECT().DeleteEvent(gomock.Any(), "m-2").Return(nil)

	report, err := s.svc.IngestMeetings(s.ctx, "crm", []models.MeetingRow{
		{ExternalID: "m-1", ClientName: "ACME", EventType: "QBR", Date: "07/03/2024"},
		{Action: "complete", ExternalID: "m-1"},
		{Action: "delete", ExternalID: "m-2"},
	})
	s.Require().NoError(err)
	s.Equal(3, report.Received)
	s.Equal(3, report.Accepted)
	s.Empty(report.Rejected)
	s.Equal(3.0, promtest.ToFloat64(s.metrics.Rows.WithLabelValues("meetings", "accepted")))
}

func (s *IngestServiceSuite) TestMeetingRejections() {
	s.resolver.EXPECT().ResolveBatch(gomock.Any(), "Globex").
		Return(nil, dErrors.New(dErrors.CodeUnresolvedClientName, `client name "Globex" did not resolve`))
	s.resolver.EXPECT().RecordUnresolved(gomock.Any(), "Globex", "crm").Return(nil)
	s.expectResolved("Acme")
	s.engagement.EXPECT().UpsertEvent(gomock.Any(), gomock.Any()).
		Return(false, dErrors.New(dErrors.CodeValidation, `unknown event type "Lunch"`))
	s.engagement.EXPECT().DeleteEvent(gomock.Any(), "gone").
		Return(dErrors.New(dErrors.CodeNotFound, "engagement event not found"))

	report, err := s.svc.IngestMeetings(s.ctx, "crm", []models.MeetingRow{
		{ExternalID: "m-1", ClientName: "Globex", EventType: "QBR", Date: "2024-03-07"},
		{ExternalID: "m-2", ClientName: "Acme", EventType: "QBR", Date: "sometime"},
		{ExternalID: "m-3", ClientName: "Acme", EventType: "Lunch", Date: "2024-03-07"},
		{ExternalID: "", ClientName: "Acme"},
		{Action: "reschedule", ExternalID: "m-4"},
		{Action: "delete", ExternalID: "gone"},
	})
	s.Require().NoError(err)
	s.Equal(0, report.Accepted)
	s.Require().Len(report.Rejected, 6)

	codes := make([]string, 0, len(report.Rejected))
	for _, r := range report.Rejected {
		codes = append(codes, r.Code)
	}
	s.Equal([]string{
		string(dErrors.CodeUnresolvedClientName),
		string(dErrors.CodeValidation),
		string(dErrors.CodeValidation),
		string(dErrors.CodeValidation),
		string(dErrors.CodeValidation),
		string(dErrors.CodeNotFound),
	}, codes)
	s.Equal("Globex", report.Rejected[0].ClientName)
	s.Equal(1, report.Rejected[1].Row)
	s.Contains(report.Rejected[1].Reason, "sometime")
	s.Equal(1.0, promtest.ToFloat64(s.metrics.Rejections.WithLabelValues("meetings", "unresolved_client_name")))
}

func (s *IngestServiceSuite) TestStorageFailureStopsBatch() {
	s.expectResolved("Acme")
	s.engagement.EXPECT().UpsertEvent(gomock.Any(), gomock.Any()).Return(true, nil)
	s.expectResolved("Acme")
	s.engagement.EXPECT().UpsertEvent(gomock.Any(), gomock.Any()).
		Return(false, dErrors.New(dErrors.CodeInternal, "failed to store engagement event"))

	report, err := s.svc.IngestMeetings(s.ctx, "", []models.MeetingRow{
		{ExternalID: "a", ClientName: "Acme", EventType: "QBR", Date: "2024-01-10"},
		{ExternalID: "b", ClientName: "Acme", EventType: "QBR", Date: "2024-02-10"},
		{ExternalID: "c", ClientName: "Acme", EventType: "QBR", Date: "2024-03-10"},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.Equal(1, report.Accepted)
}

func (s *IngestServiceSuite) TestSurveys() {
	s.expectResolved("Acme")
	s.signals.EXPECT().RecordSurvey(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r *health.SurveyResponse) error {
			s.Equal(s.acme, r.ClientID)
			s.Equal(9, r.Score)
			s.Equal("H1", r.Period)
			s.Equal(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), r.RespondedAt)
			return nil
		})
	s.expectResolved("Acme")

	nine, eleven := 9, 11
	report, err := s.svc.IngestSurveys(s.ctx, "", []models.SurveyRow{
		{ClientName: "Acme", Score: &nine, RespondedAt: "2 May 2024", Period: "H1"},
		{ClientName: "Acme", Score: &eleven, RespondedAt: "2024-05-02"},
		{ClientName: "Acme", RespondedAt: "2024-05-02"},
	})
	s.Require().NoError(err)
	s.Equal(1, report.Accepted)
	s.Require().Len(report.Rejected, 2)
	s.Equal(string(dErrors.CodeValidation), report.Rejected[0].Code)
	s.Contains(report.Rejected[0].Reason, "between 0 and 10")
	s.Equal("score is required", report.Rejected[1].Reason)
}

func (s *IngestServiceSuite) TestUnresolvedSurveyUsesFeedAsSource() {
	s.resolver.EXPECT().ResolveBatch(gomock.Any(), "Initech").
		Return(nil, dErrors.New(dErrors.CodeUnresolvedClientName, "unresolved"))
	s.resolver.EXPECT().RecordUnresolved(gomock.Any(), "Initech", "surveys").Return(nil)

	seven := 7
	report, err := s.svc.IngestSurveys(s.ctx, "", []models.SurveyRow{{ClientName: "Initech", Score: &seven, RespondedAt: "2024-05-02"}})
	s.Require().NoError(err)
	s.Len(report.Rejected, 1)
}

func (s *IngestServiceSuite) TestAging() {
	s.expectResolved("Acme")
	s.signals.EXPECT().RecordAging(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, a *health.AgingSnapshot) error {
			s.Equal(s.acme, a.ClientID)
			s.Equal(time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC), a.AsOf)
			s.Require().NotNil(a.WorkingCapitalPercentage())
			s.InDelta(90.0, *a.WorkingCapitalPercentage(), 1e-9)
			return nil
		})
	s.expectResolved("Acme")

	report, err := s.svc.IngestAging(s.ctx, "erp", []models.AgingRow{
		{ClientName: "Acme", AsOf: "2024/04/30", Current: 500, D1To30: 200, D31To60: 100, D61To90: 100, D91To120: 50, D121Plus: 50},
		{ClientName: "Acme", AsOf: "2024-04-30", Current: -5},
	})
	s.Require().NoError(err)
	s.Equal(1, report.Accepted)
	s.Require().Len(report.Rejected, 1)
	s.Contains(report.Rejected[0].Reason, "negative")
}

func (s *IngestServiceSuite) TestExactModeSkipsFuzzyMatching() {
	s.resolver.EXPECT().Resolve(gomock.Any(), "Acme Holdings").
		Return(nil, dErrors.New(dErrors.CodeUnresolvedClientName, `client name "Acme Holdings" did not resolve`))
	s.resolver.EXPECT().RecordUnresolved(gomock.Any(), "Acme Holdings", "kafka:crm.meetings").Return(nil)
	s.resolver.EXPECT().Resolve(gomock.Any(), "ACME").
		Return(&identity.Resolution{ClientID: s.acme, CanonicalName: "Acme Pty Ltd", Step: identity.MatchAlias}, nil)
	s.engagement.EXPECT().UpsertEvent(gomock.Any(), gomock.Any()).Return(true, nil)

	report, err := s.svc.IngestMeetingsMode(s.ctx, "kafka:crm.meetings", ResolveExact, []models.MeetingRow{
		{ExternalID: "m-1", ClientName: "Acme Holdings", EventType: "QBR", Date: "2024-03-07"},
		{ExternalID: "m-2", ClientName: "ACME", EventType: "QBR", Date: "2024-03-08"},
	})
	s.Require().NoError(err)
	s.Equal(1, report.Accepted)
	s.Require().Len(report.Rejected, 1)
	s.Equal(string(dErrors.CodeUnresolvedClientName), report.Rejected[0].Code)
}
