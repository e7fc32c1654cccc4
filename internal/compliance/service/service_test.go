package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"clientpulse/internal/compliance/metrics"
	"clientpulse/internal/compliance/models"
	eventstore "clientpulse/internal/compliance/store/event"
	requirementstore "clientpulse/internal/compliance/store/requirement"
	resultstore "clientpulse/internal/compliance/store/result"
	segmentstore "clientpulse/internal/compliance/store/segment"
	identity "clientpulse/internal/identity/models"
	"clientpulse/internal/snapshot"
	id "clientpulse/pkg/domain"
	dErrors "clientpulse/pkg/domain-errors"
	"clientpulse/pkg/platform/audit"
	auditpublisher "clientpulse/pkg/platform/audit/publisher"
	auditmemory "clientpulse/pkg/platform/audit/store/memory"
	"clientpulse/pkg/requestcontext"
)

type fakeDirectory struct {
	clients map[id.ClientID]*identity.Client
}

func (d *fakeDirectory) GetClient(_ context.Context, clientID id.ClientID) (*identity.Client, error) {
	c, ok := d.clients[clientID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "client not found")
	}
	return c, nil
}

func (d *fakeDirectory) SetCurrentSegment(ctx context.Context, clientID id.ClientID, tier string) (*identity.Client, error) {
	c, err := d.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	c.CurrentSegment = tier
	return c, nil
}

type recordingDirty struct {
	mu    sync.Mutex
	marks []id.ClientYear
}

func (r *recordingDirty) MarkDirty(_ context.Context, keys ...id.ClientYear) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.marks = append(r.marks, keys...)
	return nil
}

func (r *recordingDirty) take() []id.ClientYear {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.marks
	r.marks = nil
	return out
}

type ComplianceServiceSuite struct {
	suite.Suite
	ctx        context.Context
	svc        *Service
	results    *resultstore.InMemory
	holder     *snapshot.Holder
	dirty      *recordingDirty
	directory  *fakeDirectory
	auditStore *auditmemory.InMemoryStore
	metrics    *metrics.Metrics
}

func TestComplianceServiceSuite(t *testing.T) {
	suite.Run(t, new(ComplianceServiceSuite))
}

func (s *ComplianceServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	s.results = resultstore.NewInMemory()
	s.holder = snapshot.NewHolder()
	s.dirty = &recordingDirty{}
	s.directory = &fakeDirectory{clients: make(map[id.ClientID]*identity.Client)}
	s.auditStore = auditmemory.NewInMemoryStore()
	s.metrics = metrics.NewWithRegistry(prometheus.NewRegistry())
	s.svc = New(
		segmentstore.NewInMemory(),
		requirementstore.NewInMemory(),
		eventstore.NewInMemory(),
		s.results,
		s.directory,
		s.holder,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
		WithAuditPublisher(auditpublisher.NewPublisher(s.auditStore)),
		WithDirtyMarker(s.dirty),
	)

	s.defineType("QBR")
	s.defineType("HC")
}

func (s *ComplianceServiceSuite) newClient() id.ClientID {
	cid := id.NewClientID()
	s.directory.clients[cid] = &identity.Client{ID: cid, CanonicalName: cid.String(), Status: identity.ClientStatusActive}
	return cid
}

func (s *ComplianceServiceSuite) defineType(code string) {
	_, err := s.svc.DefineEventType(s.ctx, &models.DefineEventTypeRequest{Code: code})
	s.Require().NoError(err)
}

func (s *ComplianceServiceSuite) setRequirement(tier, eventType string, freq int) {
	_, err := s.svc.SetTierRequirement(s.ctx, &models.SetTierRequirementRequest{Tier: tier, EventType: eventType, FrequencyPerYear: freq})
	s.Require().NoError(err)
}

func (s *ComplianceServiceSuite) assign(cid id.ClientID, tier, from, to string) {
	_, err := s.svc.AssignSegment(s.ctx, &models.AssignSegmentRequest{ClientID: cid, Tier: tier, EffectiveFrom: from, EffectiveTo: to})
	s.Require().NoError(err)
}

func (s *ComplianceServiceSuite) meeting(cid id.ClientID, ext, eventType string, date time.Time, completed bool) {
	e, err := models.NewEngagementEvent(ext, cid, eventType, date, completed, date)
	s.Require().NoError(err)
	_, err = s.svc.UpsertEvent(s.ctx, e)
	s.Require().NoError(err)
}

func (s *ComplianceServiceSuite) computeOne(cid id.ClientID, year int) *models.Result {
	results, err := s.svc.Compute(s.ctx, year, []id.ClientID{cid})
	s.Require().NoError(err)
	s.Require().Len(results, 1)
	return results[0]
}

func (s *ComplianceServiceSuite) publish(year int, results []*models.Result) {
	b := snapshot.NewBuilder(s.holder.Load(), s.holder.Load().Generation()+1, time.Now())
	b.SetCompliance(year, nil, results)
	s.holder.Publish(b.Build())
}

func (s *ComplianceServiceSuite) TestComputeQuarterlyReviews() {
	cid := s.newClient()
	s.setRequirement("Gold", "QBR", 4)
	s.assign(cid, "Gold", "2024-01-01", "")
	s.meeting(cid, "m1", "QBR", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), true)
	s.meeting(cid, "m2", "QBR", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), true)
	s.meeting(cid, "m3", "QBR", time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), false)
	s.meeting(cid, "m4", "QBR", time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC), true)

	res := s.computeOne(cid, 2024)
	s.Require().Len(res.Records, 1)
	rec := res.Records[0]
	s.Equal(4, rec.Expected)
	s.Equal(2, rec.Actual)
	s.Equal(50, rec.Percentage)
	s.Equal(models.StatusAtRisk, rec.Status)
	s.Equal("Gold", res.Summary.Tier)
	s.Require().NotNil(res.Summary.OverallScore)
	s.Equal(0, *res.Summary.OverallScore)
	s.Equal(models.OverallCritical, res.Summary.OverallStatus)
}

func (s *ComplianceServiceSuite) TestComputeOverallPassRatio() {
	cid := s.newClient()
	s.setRequirement("Gold", "QBR", 4)
	s.setRequirement("Gold", "HC", 1)
	s.assign(cid, "Gold", "2024-01-01", "2024-12-31")
	for i, month := range []time.Month{1, 4, 7, 10} {
		s.meeting(cid, "q"+string(rune('a'+i)), "QBR", time.Date(2024, month, 10, 0, 0, 0, 0, time.UTC), true)
	}

	res := s.computeOne(cid, 2024)
	s.Require().NotNil(res.Summary.OverallScore)
	s.Equal(50, *res.Summary.OverallScore)
	s.Equal(models.OverallAtRisk, res.Summary.OverallStatus)
}

func (s *ComplianceServiceSuite) TestComputeExclusion() {
	cid := s.newClient()
	s.setRequirement("Gold", "QBR", 4)
	s.setRequirement("Gold", "HC", 1)
	s.assign(cid, "Gold", "2024-01-01", "")
	s.meeting(cid, "hc", "HC", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true)

	_, err := s.svc.AddExclusion(s.ctx, &models.ExclusionRequest{ClientID: cid, EventType: "HC"})
	s.Require().NoError(err)

	res := s.computeOne(cid, 2024)
	s.Require().Len(res.Records, 1)
	s.Equal("QBR", res.Records[0].EventType)

	s.Require().NoError(s.svc.RemoveExclusion(s.ctx, &models.ExclusionRequest{ClientID: cid, EventType: "HC"}))
	res = s.computeOne(cid, 2024)
	s.Len(res.Records, 2)

	err = s.svc.RemoveExclusion(s.ctx, &models.ExclusionRequest{ClientID: cid, EventType: "HC"})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ComplianceServiceSuite) TestComputeNoRequirements() {
	unassigned := s.newClient()
	bronze := s.newClient()
	s.setRequirement("Bronze", "QBR", 0)
	s.assign(bronze, "Bronze", "2024-01-01", "")

	results, err := s.svc.Compute(s.ctx, 2024, []id.ClientID{unassigned, bronze})
	s.Require().NoError(err)
	s.Require().Len(results, 2)
	for _, res := range results {
		s.Nil(res.Summary.OverallScore)
		s.True(res.Summary.NoRequirements)
		s.Equal(models.OverallNoRequirements, res.Summary.OverallStatus)
	}
	s.Equal(2.0, testutil.ToFloat64(s.metrics.Evaluations.WithLabelValues(string(models.OverallNoRequirements))))
}

func (s *ComplianceServiceSuite) TestComputeAmbiguousTier() {
	cid := s.newClient()
	s.setRequirement("Gold", "QBR", 4)
	s.setRequirement("Silver", "QBR", 2)
	s.assign(cid, "Gold", "2024-01-01", "2024-06-30")
	s.assign(cid, "Silver", "2024-07-01", "")

	res := s.computeOne(cid, 2024)
	s.Equal("Silver", res.Summary.Tier, "most recently inserted assignment wins")
	s.True(res.Summary.AmbiguousTier)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.AmbiguousTiers))

	events, err := s.auditStore.ListByClient(s.ctx, cid)
	s.Require().NoError(err)
	var actions []string
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	s.Contains(actions, string(audit.EventSegmentTieBreakUsed))

	res = s.computeOne(cid, 2025)
	s.False(res.Summary.AmbiguousTier)
	s.Equal("Silver", res.Summary.Tier)
}

func (s *ComplianceServiceSuite) TestComputeIsDeterministic() {
	cid := s.newClient()
	s.setRequirement("Gold", "QBR", 4)
	s.assign(cid, "Gold", "2024-01-01", "")
	s.meeting(cid, "m1", "QBR", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), true)

	first := s.computeOne(cid, 2024)
	second := s.computeOne(cid, 2024)
	s.Equal(first, second)
}

func (s *ComplianceServiceSuite) TestAssignSegment() {
	cid := s.newClient()
	s.assign(cid, "Gold", "2024-01-01", "2024-06-30")
	s.Equal(id.ForYear(2024, cid), s.dirty.take())
	s.Equal("Gold", s.directory.clients[cid].CurrentSegment)

	s.Run("overlap is a conflict", func() {
		_, err := s.svc.AssignSegment(s.ctx, &models.AssignSegmentRequest{ClientID: cid, Tier: "Silver", EffectiveFrom: "2024-06-30"})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unknown client", func() {
		_, err := s.svc.AssignSegment(s.ctx, &models.AssignSegmentRequest{ClientID: id.NewClientID(), Tier: "Gold", EffectiveFrom: "2024-01-01"})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("bad date", func() {
		_, err := s.svc.AssignSegment(s.ctx, &models.AssignSegmentRequest{ClientID: cid, Tier: "Gold", EffectiveFrom: "1 July"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	list, err := s.svc.ListSegments(s.ctx, cid)
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *ComplianceServiceSuite) TestSetTierRequirementMarksTierClientsDirty() {
	gold := s.newClient()
	silver := s.newClient()
	s.assign(gold, "Gold", "2024-01-01", "")
	s.assign(silver, "Silver", "2024-01-01", "")
	s.dirty.take()

	s.setRequirement("Gold", "QBR", 4)
	s.Equal(id.ForYear(2024, gold), s.dirty.take())

	_, err := s.svc.SetTierRequirement(s.ctx, &models.SetTierRequirementRequest{Tier: "Gold", EventType: "NOPE", FrequencyPerYear: 1})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ComplianceServiceSuite) TestEngagementLifecycle() {
	cid := s.newClient()
	e, err := models.NewEngagementEvent("mtg-1", cid, "QBR", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), false, time.Now())
	s.Require().NoError(err)

	created, err := s.svc.UpsertEvent(s.ctx, e)
	s.Require().NoError(err)
	s.True(created)

	created, err = s.svc.UpsertEvent(s.ctx, e)
	s.Require().NoError(err)
	s.False(created, "re-sync of the same meeting updates in place")

	done, err := s.svc.CompleteEvent(s.ctx, "mtg-1")
	s.Require().NoError(err)
	s.True(done.Completed)

	list, err := s.svc.ListEvents(s.ctx, cid, 2024)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.True(list[0].Completed)

	s.Require().NoError(s.svc.DeleteEvent(s.ctx, "mtg-1"))
	s.True(dErrors.HasCode(s.svc.DeleteEvent(s.ctx, "mtg-1"), dErrors.CodeNotFound))
	_, err = s.svc.CompleteEvent(s.ctx, "mtg-1")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	for _, marked := range s.dirty.take() {
		s.Equal(id.ClientYear{ClientID: cid, Year: 2024}, marked)
	}
}

func (s *ComplianceServiceSuite) TestAssignSegmentTracksCurrentSegment() {
	cid := s.newClient()
	s.directory.clients[cid].CurrentSegment = "Gold"

	s.Run("past interval leaves the current segment alone", func() {
		s.assign(cid, "Bronze", "2021-03-01", "2022-12-31")
		s.Equal("Gold", s.directory.clients[cid].CurrentSegment)
		s.ElementsMatch([]id.ClientYear{
			{ClientID: cid, Year: 2024},
			{ClientID: cid, Year: 2021},
			{ClientID: cid, Year: 2022},
		}, s.dirty.take())
	})

	s.Run("interval covering today becomes current", func() {
		s.assign(cid, "Silver", "2023-01-01", "")
		s.Equal("Silver", s.directory.clients[cid].CurrentSegment)
		s.ElementsMatch([]id.ClientYear{
			{ClientID: cid, Year: 2024},
			{ClientID: cid, Year: 2023},
		}, s.dirty.take())
	})

	s.Run("future interval is not current yet", func() {
		s.assign(cid, "Platinum", "2030-01-01", "")
		s.Equal("Silver", s.directory.clients[cid].CurrentSegment)
	})
}

func (s *ComplianceServiceSuite) TestEventChangesMarkTheirOwnYear() {
	cid := s.newClient()
	s.meeting(cid, "mtg-old", "QBR", time.Date(2022, 11, 3, 0, 0, 0, 0, time.UTC), true)
	s.Equal(id.ForYear(2022, cid), s.dirty.take())

	s.meeting(cid, "mtg-old", "QBR", time.Date(2022, 11, 3, 0, 0, 0, 0, time.UTC), true)
	s.Equal(id.ForYear(2022, cid), s.dirty.take(), "re-sync in the same year marks it once")

	s.meeting(cid, "mtg-old", "QBR", time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC), true)
	s.Equal([]id.ClientYear{{ClientID: cid, Year: 2024}, {ClientID: cid, Year: 2022}}, s.dirty.take(),
		"moving a meeting marks both years")

	s.Require().NoError(s.svc.DeleteEvent(s.ctx, "mtg-old"))
	s.Equal(id.ForYear(2024, cid), s.dirty.take())
}

func (s *ComplianceServiceSuite) TestUpsertEventUnknownType() {
	e, err := models.NewEngagementEvent("mtg-x", s.newClient(), "Offsite", time.Now(), true, time.Now())
	s.Require().NoError(err)
	_, err = s.svc.UpsertEvent(s.ctx, e)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ComplianceServiceSuite) TestReadsFromPublishedView() {
	cid := s.newClient()
	s.setRequirement("Gold", "QBR", 1)
	s.assign(cid, "Gold", "2024-01-01", "")

	_, err := s.svc.Result(s.ctx, cid, 2024)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound), "not evaluated before the first refresh")

	results, err := s.svc.Compute(s.ctx, 2024, []id.ClientID{cid})
	s.Require().NoError(err)
	s.Require().NoError(s.svc.Persist(s.ctx, 2024, nil, results, 1))
	s.publish(2024, results)

	res, err := s.svc.Result(s.ctx, cid, 2024)
	s.Require().NoError(err)
	s.Equal(models.OverallCritical, res.Summary.OverallStatus)

	portfolio, err := s.svc.PortfolioSummary(s.ctx, 2024)
	s.Require().NoError(err)
	s.Equal(1, portfolio.ClientsEvaluated)
	s.Require().NotNil(portfolio.AverageScore)
	s.Equal(0.0, *portfolio.AverageScore)

	persisted, err := s.svc.LoadPersisted(s.ctx)
	s.Require().NoError(err)
	s.Len(persisted, 1)

	_, err = s.svc.Result(s.ctx, id.NewClientID(), 2024)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
