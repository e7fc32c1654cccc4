package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"clientpulse/internal/refresh/metrics"
	"clientpulse/internal/refresh/models"
	id "clientpulse/pkg/domain"
	dErrors "clientpulse/pkg/domain-errors"
)

// Refresher runs refresh passes.
type Refresher interface {
	RecomputeAll(ctx context.Context, year int) (*models.Outcome, error)
	RecomputeOne(ctx context.Context, clientID id.ClientID, year int) (*models.Outcome, error)
}

// DirtyQueue is the set of client-years awaiting a targeted refresh.
type DirtyQueue interface {
	MarkDirty(ctx context.Context, keys ...id.ClientYear) error
	Drain(ctx context.Context, limit int) ([]id.ClientYear, error)
}

type WorkerConfig struct {
	DirtyInterval time.Duration
	BatchSize     int
	// FullInterval schedules RecomputeAll. Zero disables it.
	FullInterval time.Duration
}

// Worker drains the dirty set into targeted refreshes and optionally runs
// periodic full refreshes.
type Worker struct {
	refresher Refresher
	queue     DirtyQueue
	cfg       WorkerConfig
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewWorker(refresher Refresher, queue DirtyQueue, cfg WorkerConfig, logger *slog.Logger, m *metrics.Metrics) *Worker {
	if cfg.DirtyInterval <= 0 {
		cfg.DirtyInterval = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{refresher: refresher, queue: queue, cfg: cfg, logger: logger, metrics: m}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	dirty := time.NewTicker(w.cfg.DirtyInterval)
	defer dirty.Stop()

	var full <-chan time.Time
	if w.cfg.FullInterval > 0 {
		t := time.NewTicker(w.cfg.FullInterval)
		defer t.Stop()
		full = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-dirty.C:
			if _, err := w.DrainOnce(ctx); err != nil && ctx.Err() == nil {
				w.logger.ErrorContext(ctx, "dirty refresh drain failed", "error", err)
			}
		case <-full:
			if _, err := w.refresher.RecomputeAll(ctx, 0); err != nil && ctx.Err() == nil {
				w.logger.ErrorContext(ctx, "scheduled full refresh failed", "error", err)
			}
		}
	}
}

// DrainOnce refreshes one batch of dirty client-years, each in its own
// year, and returns how many refreshed. Entries whose pass failed on storage
// are marked dirty again; unknown or inactive clients are dropped.
func (w *Worker) DrainOnce(ctx context.Context) (int, error) {
	batch, err := w.queue.Drain(ctx, w.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	w.metrics.AddDirtyDrained(len(batch))

	refreshed := 0
	for i, k := range batch {
		_, err := w.refresher.RecomputeOne(ctx, k.ClientID, k.Year)
		switch {
		case err == nil:
			refreshed++
		case dErrors.HasCode(err, dErrors.CodeNotFound), dErrors.HasCode(err, dErrors.CodeValidation):
			w.logger.WarnContext(ctx, "dropping dirty client", "client_id", k.ClientID.String(), "year", k.Year, "error", err)
		default:
			if remarkErr := w.queue.MarkDirty(context.WithoutCancel(ctx), batch[i:]...); remarkErr != nil {
				err = errors.Join(err, remarkErr)
			}
			return refreshed, err
		}
	}
	return refreshed, nil
}
