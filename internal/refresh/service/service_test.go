package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	compliancemodels "clientpulse/internal/compliance/models"
	compliancesvc "clientpulse/internal/compliance/service"
	eventstore "clientpulse/internal/compliance/store/event"
	requirementstore "clientpulse/internal/compliance/store/requirement"
	resultstore "clientpulse/internal/compliance/store/result"
	segmentstore "clientpulse/internal/compliance/store/segment"
	healthmodels "clientpulse/internal/health/models"
	healthsvc "clientpulse/internal/health/service"
	agingstore "clientpulse/internal/health/store/aging"
	snapshotstore "clientpulse/internal/health/store/snapshot"
	surveystore "clientpulse/internal/health/store/survey"
	identity "clientpulse/internal/identity/models"
	"clientpulse/internal/platform/distlock"
	"clientpulse/internal/refresh/metrics"
	"clientpulse/internal/refresh/models"
	statestore "clientpulse/internal/refresh/store/state"
	"clientpulse/internal/snapshot"
	id "clientpulse/pkg/domain"
	dErrors "clientpulse/pkg/domain-errors"
	"clientpulse/pkg/platform/audit"
	auditpublisher "clientpulse/pkg/platform/audit/publisher"
	auditmemory "clientpulse/pkg/platform/audit/store/memory"
	"clientpulse/pkg/platform/sentinel"
)

type directory struct {
	mu      sync.Mutex
	clients map[id.ClientID]*identity.Client
}

func (d *directory) GetClient(_ context.Context, clientID id.ClientID) (*identity.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.clients[clientID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "client not found")
	}
	return c, nil
}

func (d *directory) SetCurrentSegment(ctx context.Context, clientID id.ClientID, tier string) (*identity.Client, error) {
	c, err := d.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	c.CurrentSegment = tier
	d.mu.Unlock()
	return c, nil
}

func (d *directory) ActiveClients(_ context.Context) ([]*identity.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*identity.Client
	for _, c := range d.clients {
		if c.IsActive() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// gatedCompliance blocks Compute until release is closed.
type gatedCompliance struct {
	*compliancesvc.Service
	mu      sync.Mutex
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (g *gatedCompliance) Compute(ctx context.Context, year int, clientIDs []id.ClientID) ([]*compliancemodels.Result, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.entered != nil {
		g.entered <- struct{}{}
		<-g.release
	}
	return g.Service.Compute(ctx, year, clientIDs)
}

type failingHealth struct {
	*healthsvc.Service
}

func (failingHealth) Persist(context.Context, []*healthmodels.Snapshot) error {
	return dErrors.New(dErrors.CodeInternal, "failed to persist health snapshots")
}

// expiringLock is always granted and always found lost on renewal.
type expiringLock struct{}

func (expiringLock) Acquire(context.Context) (bool, error)               { return true, nil }
func (expiringLock) Release(context.Context) error                       { return nil }
func (expiringLock) Extend(context.Context, time.Duration) (bool, error) { return false, nil }

type recordingEvents struct {
	published [][]*healthmodels.Snapshot
}

func (r *recordingEvents) Publish(_ context.Context, snapshots []*healthmodels.Snapshot) {
	r.published = append(r.published, snapshots)
}

type CoordinatorSuite struct {
	suite.Suite
	ctx        context.Context
	clock      time.Time
	dir        *directory
	compliance *compliancesvc.Service
	health     *healthsvc.Service
	results    *resultstore.InMemory
	snapshots  *snapshotstore.InMemory
	state      *statestore.InMemory
	holder     *snapshot.Holder
	auditStore *auditmemory.InMemoryStore
	events     *recordingEvents
	metrics    *metrics.Metrics
	coord      *Coordinator
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func (s *CoordinatorSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = time.Date(2024, 6, 1, 2, 0, 0, 0, time.UTC)
	s.dir = &directory{clients: make(map[id.ClientID]*identity.Client)}
	s.results = resultstore.NewInMemory()
	s.snapshots = snapshotstore.NewInMemory()
	s.state = statestore.NewInMemory()
	s.holder = snapshot.NewHolder()
	s.auditStore = auditmemory.NewInMemoryStore()
	s.events = &recordingEvents{}
	s.metrics = metrics.NewWithRegistry(prometheus.NewRegistry())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.compliance = compliancesvc.New(
		segmentstore.NewInMemory(),
		requirementstore.NewInMemory(),
		eventstore.NewInMemory(),
		s.results,
		s.dir,
		s.holder,
		compliancesvc.WithLogger(logger),
	)
	s.health = healthsvc.New(
		surveystore.NewInMemory(),
		agingstore.NewInMemory(),
		s.snapshots,
		s.dir,
		s.holder,
		healthsvc.WithLogger(logger),
	)
	s.coord = s.newCoordinator(s.compliance, s.health)

	_, err := s.compliance.DefineEventType(s.ctx, &compliancemodels.DefineEventTypeRequest{Code: "QBR"})
	s.Require().NoError(err)
	_, err = s.compliance.SetTierRequirement(s.ctx, &compliancemodels.SetTierRequirementRequest{Tier: "Gold", EventType: "QBR", FrequencyPerYear: 4})
	s.Require().NoError(err)
}

func (s *CoordinatorSuite) newCoordinator(c ComplianceEngine, h HealthEngine, opts ...Option) *Coordinator {
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
		WithAuditPublisher(auditpublisher.NewPublisher(s.auditStore)),
		WithEventPublisher(s.events),
		WithClock(func() time.Time { return s.clock }),
		WithLockFactory(distlock.NewFactory(nil, nil, time.Minute)),
		WithLockRetry(5 * time.Millisecond),
	}
	return New(c, h, s.dir, s.state, s.holder, append(base, opts...)...)
}

func (s *CoordinatorSuite) goldClient(completedQBRs int) id.ClientID {
	cid := id.NewClientID()
	s.dir.mu.Lock()
	s.dir.clients[cid] = &identity.Client{ID: cid, CanonicalName: cid.String(), Status: identity.ClientStatusActive}
	s.dir.mu.Unlock()
	_, err := s.compliance.AssignSegment(s.ctx, &compliancemodels.AssignSegmentRequest{ClientID: cid, Tier: "Gold", EffectiveFrom: "2024-01-01"})
	s.Require().NoError(err)
	for i := 0; i < completedQBRs; i++ {
		date := time.Date(2024, time.Month(1+3*i), 15, 0, 0, 0, 0, time.UTC)
		e, err := compliancemodels.NewEngagementEvent(cid.String()+string(rune('a'+i)), cid, "QBR", date, true, date)
		s.Require().NoError(err)
		_, err = s.compliance.UpsertEvent(s.ctx, e)
		s.Require().NoError(err)
	}
	return cid
}

func (s *CoordinatorSuite) TestRecomputeAllPublishesStagedCompliance() {
	full := s.goldClient(4)
	half := s.goldClient(2)

	out, err := s.coord.RecomputeAll(s.ctx, 2024)
	s.Require().NoError(err)
	s.Equal(int64(1), out.Generation)
	s.Equal(2, out.ComplianceResults)
	s.Equal(2, out.HealthSnapshots)
	s.False(out.Coalesced)

	view := s.holder.Load()
	s.Equal(int64(1), view.Generation())
	s.Equal(s.clock, view.RefreshedAt())

	res, ok := view.Compliance(full, 2024)
	s.Require().True(ok)
	s.Equal(100, *res.Summary.OverallScore)

	// Missing NPS and aging with full compliance scores 0 / 50 / 10.
	snap, ok := view.Health(full)
	s.Require().True(ok)
	s.Equal(0.0, snap.NPSComponent)
	s.Equal(50.0, snap.ComplianceComponent)
	s.Equal(10.0, snap.AgingComponent)
	s.Equal(60, snap.TotalScore)
	s.Equal(healthmodels.StatusAtRisk, snap.Status)
	s.Equal(int64(1), snap.Generation)

	halfSnap, ok := view.Health(half)
	s.Require().True(ok)
	s.Equal(10, halfSnap.TotalScore, "two of four reviews fails the only requirement")

	st, err := s.state.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), st.Generation)

	s.Require().Len(s.events.published, 1)
	s.Len(s.events.published[0], 2)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.Passes.WithLabelValues("all", "success")))

	events, err := s.auditStore.ListRecent(s.ctx, 10)
	s.Require().NoError(err)
	s.Contains(actions(events), string(audit.EventRefreshCompleted))
}

func (s *CoordinatorSuite) TestRecomputeAllIsDeterministic() {
	a := s.goldClient(3)
	b := s.goldClient(1)

	_, err := s.coord.RecomputeAll(s.ctx, 2024)
	s.Require().NoError(err)
	first := s.holder.Load()

	s.clock = s.clock.Add(time.Hour)
	_, err = s.coord.RecomputeAll(s.ctx, 2024)
	s.Require().NoError(err)
	second := s.holder.Load()
	s.Equal(int64(2), second.Generation())

	s.Equal(first.ComplianceYear(2024), second.ComplianceYear(2024))
	for _, cid := range []id.ClientID{a, b} {
		before, _ := first.Health(cid)
		after, _ := second.Health(cid)
		s.Equal(before.TotalScore, after.TotalScore)
		s.Equal(before.Inputs, after.Inputs)
		s.Equal(before.Status, after.Status)
		s.NotEqual(before.ID, after.ID)
	}

	history, err := s.health.History(s.ctx, a, time.Time{}, time.Time{})
	s.Require().NoError(err)
	s.Len(history, 2, "each pass appends")
}

func (s *CoordinatorSuite) TestRecomputeOneLeavesOthersUntouched() {
	a := s.goldClient(1)
	b := s.goldClient(1)
	_, err := s.coord.RecomputeAll(s.ctx, 2024)
	s.Require().NoError(err)
	bBefore, _ := s.holder.Load().Health(b)

	for i := 1; i < 4; i++ {
		date := time.Date(2024, time.Month(1+3*i), 20, 0, 0, 0, 0, time.UTC)
		e, err := compliancemodels.NewEngagementEvent(a.String()+"-extra"+string(rune('a'+i)), a, "QBR", date, true, date)
		s.Require().NoError(err)
		_, err = s.compliance.UpsertEvent(s.ctx, e)
		s.Require().NoError(err)
	}

	out, err := s.coord.RecomputeOne(s.ctx, a, 2024)
	s.Require().NoError(err)
	s.Equal(1, out.HealthSnapshots)
	s.Require().NotNil(out.ClientID)
	s.Equal(a, *out.ClientID)

	view := s.holder.Load()
	aSnap, _ := view.Health(a)
	s.Equal(60, aSnap.TotalScore)
	bAfter, _ := view.Health(b)
	s.Same(bBefore, bAfter)
	s.Len(view.ComplianceYear(2024), 2)
}

func (s *CoordinatorSuite) TestRecomputeOneRejectsUnknownAndInactive() {
	_, err := s.coord.RecomputeOne(s.ctx, id.NewClientID(), 2024)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	cid := s.goldClient(0)
	s.dir.clients[cid].Status = identity.ClientStatusInactive
	_, err = s.coord.RecomputeOne(s.ctx, cid, 2024)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal(int64(0), s.holder.Load().Generation())
}

func (s *CoordinatorSuite) TestFailedPersistKeepsPreviousView() {
	s.goldClient(4)
	_, err := s.coord.RecomputeAll(s.ctx, 2024)
	s.Require().NoError(err)
	before := s.holder.Load()

	broken := s.newCoordinator(s.compliance, failingHealth{s.health})
	_, err = broken.RecomputeAll(s.ctx, 2024)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.Same(before, s.holder.Load())

	st, err := s.state.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), st.Generation)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.Passes.WithLabelValues("all", "failure")))
}

func (s *CoordinatorSuite) TestCancelledPassKeepsPreviousView() {
	s.goldClient(4)
	before := s.holder.Load()

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err := s.coord.RecomputeAll(ctx, 2024)
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
	s.Same(before, s.holder.Load())
}

func (s *CoordinatorSuite) TestConcurrentSameScopeIsCoalesced() {
	s.goldClient(2)
	gate := &gatedCompliance{Service: s.compliance, entered: make(chan struct{}, 1), release: make(chan struct{})}
	coord := s.newCoordinator(gate, s.health)

	outcomes := make(chan *models.Outcome, 2)
	go func() {
		out, err := coord.RecomputeAll(s.ctx, 2024)
		s.NoError(err)
		outcomes <- out
	}()
	<-gate.entered
	go func() {
		out, err := coord.RecomputeAll(s.ctx, 2024)
		s.NoError(err)
		outcomes <- out
	}()
	time.Sleep(50 * time.Millisecond)
	close(gate.release)

	first, second := <-outcomes, <-outcomes
	s.Require().NotNil(first)
	s.Require().NotNil(second)
	s.Equal(first.Generation, second.Generation)
	s.True(first.Coalesced != second.Coalesced, "exactly one caller joined")
	s.Equal(1, gate.calls)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.Coalesced))
}

func (s *CoordinatorSuite) TestWaitsForForeignWriterLock() {
	s.goldClient(1)
	locks := distlock.NewFactory(nil, nil, time.Minute)
	coord := s.newCoordinator(s.compliance, s.health, WithLockFactory(locks))

	held := locks(LockKey)
	ok, err := held.Acquire(s.ctx)
	s.Require().NoError(err)
	s.Require().True(ok)

	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Millisecond)
	defer cancel()
	_, err = coord.RecomputeAll(ctx, 2024)
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
	s.Positive(promtest.ToFloat64(s.metrics.LockContended))
	s.Eventually(func() bool {
		return promtest.ToFloat64(s.metrics.Passes.WithLabelValues("all", "failure")) == 1
	}, time.Second, 5*time.Millisecond, "abandoned pass gives up")

	s.Require().NoError(held.Release(s.ctx))
	_, err = coord.RecomputeAll(s.ctx, 2024)
	s.NoError(err)
}

func (s *CoordinatorSuite) TestPastYearPassLeavesHealthAlone() {
	cid := s.goldClient(4)
	_, err := s.coord.RecomputeAll(s.ctx, 2024)
	s.Require().NoError(err)
	current, ok := s.holder.Load().Health(cid)
	s.Require().True(ok)
	s.Equal(2024, current.Inputs.ComplianceYear)

	s.clock = s.clock.Add(time.Hour)
	out, err := s.coord.RecomputeAll(s.ctx, 2021)
	s.Require().NoError(err)
	s.Equal(int64(2), out.Generation)
	s.Equal(1, out.ComplianceResults)
	s.Zero(out.HealthSnapshots)

	view := s.holder.Load()
	after, ok := view.Health(cid)
	s.Require().True(ok)
	s.Same(current, after)
	_, ok = view.Compliance(cid, 2021)
	s.True(ok)
	_, ok = view.Compliance(cid, 2024)
	s.True(ok, "other years stay published")

	history, err := s.health.History(s.ctx, cid, time.Time{}, time.Time{})
	s.Require().NoError(err)
	s.Len(history, 1)
	s.Len(s.events.published, 1)
}

func (s *CoordinatorSuite) TestLostWriterLockAbandonsPass() {
	s.goldClient(2)
	gate := &gatedCompliance{Service: s.compliance, entered: make(chan struct{}, 1), release: make(chan struct{})}
	coord := s.newCoordinator(gate, s.health,
		WithLockFactory(func(string) distlock.Lock { return expiringLock{} }),
		WithLockTTL(30*time.Millisecond),
	)
	before := s.holder.Load()

	errs := make(chan error, 1)
	go func() {
		_, err := coord.RecomputeAll(s.ctx, 2024)
		errs <- err
	}()
	<-gate.entered
	s.Eventually(func() bool {
		return promtest.ToFloat64(s.metrics.LockLost) == 1
	}, time.Second, 5*time.Millisecond)
	close(gate.release)

	err := <-errs
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.ErrorIs(err, sentinel.ErrLockHeld)
	s.Same(before, s.holder.Load())
	_, err = s.state.Load(s.ctx)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *CoordinatorSuite) TestBootstrapRestoresCommittedGeneration() {
	cid := s.goldClient(4)
	_, err := s.coord.RecomputeAll(s.ctx, 2024)
	s.Require().NoError(err)
	s.clock = s.clock.Add(time.Hour)
	_, err = s.coord.RecomputeAll(s.ctx, 2024)
	s.Require().NoError(err)

	fresh := snapshot.NewHolder()
	restarted := New(s.compliance, s.health, s.dir, s.state, fresh,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(restarted.Bootstrap(s.ctx))

	view := fresh.Load()
	s.Equal(int64(2), view.Generation())
	s.Equal(s.clock, view.RefreshedAt())
	snap, ok := view.Health(cid)
	s.Require().True(ok)
	s.Equal(int64(2), snap.Generation)
	_, ok = view.Compliance(cid, 2024)
	s.True(ok)
}

func (s *CoordinatorSuite) TestBootstrapWithoutCommittedGeneration() {
	s.Require().NoError(s.coord.Bootstrap(s.ctx))
	s.Equal(int64(0), s.holder.Load().Generation())
}

func (s *CoordinatorSuite) TestRefreshValidatesScope() {
	_, err := s.coord.Refresh(s.ctx, models.Scope{Kind: "team"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	_, err = s.coord.Refresh(s.ctx, models.Scope{Kind: models.ScopeClient})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *CoordinatorSuite) TestZeroYearUsesPassYear() {
	s.goldClient(4)
	out, err := s.coord.Refresh(s.ctx, models.AllClients(0))
	s.Require().NoError(err)
	s.Equal(2024, out.Year)
}

func actions(events []audit.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Action)
	}
	return out
}
