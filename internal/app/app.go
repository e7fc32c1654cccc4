// Package app assembles the services shared by the server and the refresh CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	compliancehandler "clientpulse/internal/compliance/handler"
	compliancemetrics "clientpulse/internal/compliance/metrics"
	compliancesvc "clientpulse/internal/compliance/service"
	eventstore "clientpulse/internal/compliance/store/event"
	requirementstore "clientpulse/internal/compliance/store/requirement"
	resultstore "clientpulse/internal/compliance/store/result"
	segmentstore "clientpulse/internal/compliance/store/segment"
	"clientpulse/internal/health/formula"
	healthhandler "clientpulse/internal/health/handler"
	healthmetrics "clientpulse/internal/health/metrics"
	healthsvc "clientpulse/internal/health/service"
	agingstore "clientpulse/internal/health/store/aging"
	healthsnapshotstore "clientpulse/internal/health/store/snapshot"
	surveystore "clientpulse/internal/health/store/survey"
	httpapi "clientpulse/internal/http"
	identityhandler "clientpulse/internal/identity/handler"
	identitymetrics "clientpulse/internal/identity/metrics"
	identitysvc "clientpulse/internal/identity/service"
	aliasstore "clientpulse/internal/identity/store/alias"
	clientstore "clientpulse/internal/identity/store/client"
	unresolvedstore "clientpulse/internal/identity/store/unresolved"
	ingesthandler "clientpulse/internal/ingest/handler"
	ingestmetrics "clientpulse/internal/ingest/metrics"
	ingestsvc "clientpulse/internal/ingest/service"
	"clientpulse/internal/platform/config"
	"clientpulse/internal/platform/distlock"
	"clientpulse/internal/platform/kafka"
	refreshhandler "clientpulse/internal/refresh/handler"
	refreshmetrics "clientpulse/internal/refresh/metrics"
	refreshsvc "clientpulse/internal/refresh/service"
	"clientpulse/internal/refresh/store/dirty"
	"clientpulse/internal/refresh/store/state"
	"clientpulse/internal/snapshot"
	id "clientpulse/pkg/domain"
	audit "clientpulse/pkg/platform/audit"
	auditpublisher "clientpulse/pkg/platform/audit/publisher"
	auditmemory "clientpulse/pkg/platform/audit/store/memory"
	auditpostgres "clientpulse/pkg/platform/audit/store/postgres"
	"clientpulse/pkg/platform/circuit"
	txcontext "clientpulse/pkg/platform/tx"
)

const auditBuffer = 1024

// Deps are the opened infrastructure handles. Nil DB or Redis selects the
// in-memory adapters.
type Deps struct {
	DB       *sql.DB
	Redis    *redis.Client
	Registry prometheus.Registerer
	Logger   *slog.Logger
	// Clock stamps refresh passes and picks the current year. Defaults to
	// time.Now.
	Clock func() time.Time
}

// DirtyQueue is the change-triggered refresh queue.
type DirtyQueue interface {
	MarkDirty(ctx context.Context, keys ...id.ClientYear) error
	Drain(ctx context.Context, limit int) ([]id.ClientYear, error)
}

// App holds the wired services.
type App struct {
	Identity   *identitysvc.Service
	Compliance *compliancesvc.Service
	Health     *healthsvc.Service
	Refresh    *refreshsvc.Coordinator
	Ingest     *ingestsvc.Service
	Worker     *refreshsvc.Worker
	Dirty      DirtyQueue
	Views      *snapshot.Holder

	audit    *auditpublisher.Publisher
	producer *kafka.Producer
	logger   *slog.Logger
}

type stores struct {
	clients      identitysvc.ClientStore
	aliases      identitysvc.AliasStore
	unresolved   identitysvc.UnresolvedStore
	segments     compliancesvc.SegmentStore
	requirements compliancesvc.RequirementStore
	events       compliancesvc.EventStore
	results      compliancesvc.ResultStore
	surveys      healthsvc.SurveyStore
	aging        healthsvc.AgingStore
	snapshots    healthsvc.SnapshotStore
	state        refreshsvc.StateStore
	audit        audit.Store
}

func newStores(db *sql.DB) stores {
	if db == nil {
		return stores{
			clients:      clientstore.NewInMemory(),
			aliases:      aliasstore.NewInMemory(),
			unresolved:   unresolvedstore.NewInMemory(),
			segments:     segmentstore.NewInMemory(),
			requirements: requirementstore.NewInMemory(),
			events:       eventstore.NewInMemory(),
			results:      resultstore.NewInMemory(),
			surveys:      surveystore.NewInMemory(),
			aging:        agingstore.NewInMemory(),
			snapshots:    healthsnapshotstore.NewInMemory(),
			state:        state.NewInMemory(),
			audit:        auditmemory.NewInMemoryStore(),
		}
	}
	return stores{
		clients:      clientstore.NewPostgres(db),
		aliases:      aliasstore.NewPostgres(db),
		unresolved:   unresolvedstore.NewPostgres(db),
		segments:     segmentstore.NewPostgres(db),
		requirements: requirementstore.NewPostgres(db),
		events:       eventstore.NewPostgres(db),
		results:      resultstore.NewPostgres(db),
		surveys:      surveystore.NewPostgres(db),
		aging:        agingstore.NewPostgres(db),
		snapshots:    healthsnapshotstore.NewPostgres(db),
		state:        state.NewPostgres(db),
		audit:        auditpostgres.New(db),
	}
}

// Build wires every service for cfg. When Kafka is configured, refresh
// events are produced to cfg.Kafka.RefreshTopic.
func Build(cfg config.Config, deps Deps) (*App, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	formulas := formula.Builtin()
	if cfg.FormulaFile != "" {
		t, err := formula.Load(cfg.FormulaFile)
		if err != nil {
			return nil, fmt.Errorf("load formula table: %w", err)
		}
		formulas = t
	}

	s := newStores(deps.DB)
	tx := txcontext.NewRunner(deps.DB)
	views := snapshot.NewHolder()
	auditPub := auditpublisher.NewPublisher(s.audit,
		auditpublisher.WithLogger(logger),
		auditpublisher.WithAsyncBuffer(auditBuffer),
	)

	var queue DirtyQueue = dirty.NewInMemory()
	if deps.Redis != nil {
		queue = dirty.NewRedis(deps.Redis, dirty.DefaultKey)
	}

	identity := identitysvc.New(s.clients, s.aliases, s.unresolved,
		identitysvc.WithLogger(logger),
		identitysvc.WithMetrics(identitymetrics.NewWithRegistry(reg)),
		identitysvc.WithAuditPublisher(auditPub),
		identitysvc.WithTxRunner(tx),
	)
	compliance := compliancesvc.New(s.segments, s.requirements, s.events, s.results, identity, views,
		compliancesvc.WithLogger(logger),
		compliancesvc.WithMetrics(compliancemetrics.NewWithRegistry(reg)),
		compliancesvc.WithAuditPublisher(auditPub),
		compliancesvc.WithDirtyMarker(queue),
		compliancesvc.WithTxRunner(tx),
	)
	health := healthsvc.New(s.surveys, s.aging, s.snapshots, identity, views,
		healthsvc.WithLogger(logger),
		healthsvc.WithMetrics(healthmetrics.NewWithRegistry(reg)),
		healthsvc.WithDirtyMarker(queue),
		healthsvc.WithFormulas(formulas),
	)

	refreshMetrics := refreshmetrics.NewWithRegistry(reg)
	opts := []refreshsvc.Option{
		refreshsvc.WithLogger(logger),
		refreshsvc.WithMetrics(refreshMetrics),
		refreshsvc.WithTxRunner(tx),
		refreshsvc.WithLockFactory(distlock.NewFactory(deps.Redis, deps.DB, cfg.Refresh.LockTTL)),
		refreshsvc.WithLockTTL(cfg.Refresh.LockTTL),
		refreshsvc.WithAuditPublisher(auditPub),
	}
	if deps.Clock != nil {
		opts = append(opts, refreshsvc.WithClock(deps.Clock))
	}
	var producer *kafka.Producer
	if cfg.KafkaEnabled() {
		p, err := kafka.NewProducer(cfg.Kafka.Brokers)
		if err != nil {
			auditPub.Close()
			return nil, fmt.Errorf("create kafka producer: %w", err)
		}
		producer = p
		breaker := circuit.New("kafka-refresh-events",
			circuit.WithFailureThreshold(5),
			circuit.WithSuccessThreshold(2),
		)
		opts = append(opts, refreshsvc.WithEventPublisher(
			refreshsvc.NewKafkaPublisher(producer, cfg.Kafka.RefreshTopic, breaker, logger, refreshMetrics),
		))
	}
	coordinator := refreshsvc.New(compliance, health, identity, s.state, views, opts...)

	ingest := ingestsvc.New(identity, compliance, health,
		ingestsvc.WithLogger(logger),
		ingestsvc.WithMetrics(ingestmetrics.NewWithRegistry(reg)),
	)
	worker := refreshsvc.NewWorker(coordinator, queue, refreshsvc.WorkerConfig{
		DirtyInterval: cfg.Refresh.DirtyInterval,
		BatchSize:     cfg.Refresh.DirtyBatchSize,
		FullInterval:  cfg.Refresh.FullInterval,
	}, logger, refreshMetrics)

	return &App{
		Identity:   identity,
		Compliance: compliance,
		Health:     health,
		Refresh:    coordinator,
		Ingest:     ingest,
		Worker:     worker,
		Dirty:      queue,
		Views:      views,
		audit:      auditPub,
		producer:   producer,
		logger:     logger,
	}, nil
}

// Handlers returns every module's HTTP handler.
func (a *App) Handlers() []httpapi.Registrar {
	return []httpapi.Registrar{
		identityhandler.New(a.Identity, a.logger),
		compliancehandler.New(a.Compliance, a.logger),
		healthhandler.New(a.Health, a.logger),
		refreshhandler.New(a.Refresh, a.logger),
		ingesthandler.New(a.Ingest, a.logger),
	}
}

// Load builds the resolver index and seeds the published view from the
// last persisted refresh.
func (a *App) Load(ctx context.Context) error {
	if err := a.Identity.Rebuild(ctx); err != nil {
		return fmt.Errorf("build resolver index: %w", err)
	}
	if err := a.Refresh.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap refresh view: %w", err)
	}
	return nil
}

// Close flushes the audit buffer and closes the producer.
func (a *App) Close() {
	a.audit.Close()
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("kafka producer close failed", "error", err)
		}
	}
}
