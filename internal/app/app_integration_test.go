//go:build integration

package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	compliance "clientpulse/internal/compliance/models"
	identity "clientpulse/internal/identity/models"
	ingest "clientpulse/internal/ingest/models"
	"clientpulse/internal/platform/config"
	refresh "clientpulse/internal/refresh/models"
	id "clientpulse/pkg/domain"
	"clientpulse/pkg/testutil/containers"
)

var allTables = []string{
	"aliases", "clients", "unresolved_names",
	"segment_assignments", "event_types", "tier_requirements", "event_exclusions",
	"engagement_events", "compliance_records", "compliance_summaries",
	"survey_responses", "aging_snapshots", "health_snapshots", "refresh_state", "audit_events",
}

// PostgresAppSuite runs refresh passes against Postgres and Redis.
type PostgresAppSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	redis    *containers.RedisContainer
}

func TestPostgresAppSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresAppSuite))
}

func (s *PostgresAppSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.redis = mgr.GetRedis(s.T())
}

func (s *PostgresAppSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, allTables...))
	s.Require().NoError(s.redis.FlushAll(ctx))
}

func (s *PostgresAppSuite) build() *App {
	cfg, err := config.Load()
	s.Require().NoError(err)
	a, err := Build(cfg, Deps{
		DB:       s.postgres.DB,
		Redis:    s.redis.Client,
		Registry: prometheus.NewRegistry(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:    passClock,
	})
	s.Require().NoError(err)
	s.Require().NoError(a.Load(context.Background()))
	s.T().Cleanup(a.Close)
	return a
}

func (s *PostgresAppSuite) TestRefreshSurvivesRestart() {
	ctx := context.Background()
	a := s.build()

	client, err := a.Identity.CreateClient(ctx, &identity.CreateClientRequest{CanonicalName: "Acme Corp", Country: "AU", Segment: "Gold"})
	s.Require().NoError(err)
	_, err = a.Compliance.DefineEventType(ctx, &compliance.DefineEventTypeRequest{Code: "QBR", Name: "Quarterly business review"})
	s.Require().NoError(err)
	_, err = a.Compliance.SetTierRequirement(ctx, &compliance.SetTierRequirementRequest{Tier: "Gold", EventType: "QBR", FrequencyPerYear: 4})
	s.Require().NoError(err)
	_, err = a.Compliance.AssignSegment(ctx, &compliance.AssignSegmentRequest{ClientID: client.ID, Tier: "Gold", EffectiveFrom: "2024-01-01"})
	s.Require().NoError(err)

	report, err := a.Ingest.IngestMeetings(ctx, "crm", []ingest.MeetingRow{
		{Action: ingest.ActionCreate, ExternalID: "m-1", ClientName: "acme corp", EventType: "QBR", Date: "2024-02-01", Completed: true},
		{Action: ingest.ActionCreate, ExternalID: "m-2", ClientName: "Acme Corp", EventType: "QBR", Date: "2024-05-01", Completed: true},
	})
	s.Require().NoError(err)
	s.Equal(2, report.Accepted)

	dirty, err := a.Dirty.Drain(ctx, 0)
	s.Require().NoError(err)
	s.Contains(dirty, id.ClientYear{ClientID: client.ID, Year: 2024})

	first, err := a.Refresh.RecomputeAll(ctx, 2024)
	s.Require().NoError(err)
	s.Equal(int64(1), first.Generation)

	// A second process bootstraps the same view from Postgres.
	restarted := s.build()
	st, err := restarted.Refresh.Status(ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), st.Generation)

	res, err := restarted.Compliance.Result(ctx, client.ID, 2024)
	s.Require().NoError(err)
	s.Require().Len(res.Records, 1)
	s.Equal(50, res.Records[0].Percentage)

	cur, err := restarted.Health.Current(ctx, client.ID, nil)
	s.Require().NoError(err)
	s.Equal(int64(1), cur.Snapshot.Generation)

	second, err := restarted.Refresh.Refresh(ctx, refresh.OneClient(client.ID, 2024))
	s.Require().NoError(err)
	s.Equal(int64(2), second.Generation)

	history, err := restarted.Health.History(ctx, client.ID, time.Time{}, time.Time{})
	s.Require().NoError(err)
	s.Len(history, 2)
}
