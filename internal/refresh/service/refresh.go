package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	compliance "clientpulse/internal/compliance/models"
	health "clientpulse/internal/health/models"
	"clientpulse/internal/platform/distlock"
	"clientpulse/internal/refresh/models"
	"clientpulse/internal/snapshot"
	id "clientpulse/pkg/domain"
	dErrors "clientpulse/pkg/domain-errors"
	"clientpulse/pkg/platform/audit"
	"clientpulse/pkg/platform/sentinel"
	"clientpulse/pkg/requestcontext"
)

// RecomputeAll recomputes every active client for year and appends one
// health snapshot per client.
func (c *Coordinator) RecomputeAll(ctx context.Context, year int) (*models.Outcome, error) {
	return c.Refresh(ctx, models.AllClients(year))
}

// RecomputeOne recomputes a single client for year.
func (c *Coordinator) RecomputeOne(ctx context.Context, clientID id.ClientID, year int) (*models.Outcome, error) {
	return c.Refresh(ctx, models.OneClient(clientID, year))
}

// Refresh runs a pass for scope. Callers asking for a scope already in
// flight share its outcome. Passes for different scopes run one at a time.
// If ctx ends before the swap the published view is left unchanged.
func (c *Coordinator) Refresh(ctx context.Context, scope models.Scope) (*models.Outcome, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if scope.Year == 0 {
		scope.Year = c.now().UTC().Year()
	}

	led := false
	ch := c.group.DoChan(scope.Key(), func() (any, error) {
		led = true
		return c.run(ctx, scope)
	})
	select {
	case <-ctx.Done():
		return nil, cancelled(ctx)
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		out := *res.Val.(*models.Outcome)
		if !led {
			out.Coalesced = true
			c.metrics.IncrementCoalesced()
		}
		return &out, nil
	}
}

func (c *Coordinator) run(ctx context.Context, scope models.Scope) (*models.Outcome, error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "refresh.pass", trace.WithAttributes(
		attribute.String("refresh.scope", string(scope.Kind)),
		attribute.Int("refresh.year", scope.Year),
	))
	defer span.End()

	out, err := c.pass(ctx, scope)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.metrics.ObservePass(string(scope.Kind), "failure", start)
		c.logAudit(ctx, audit.EventRefreshFailed, scope.ClientID, scope.Key(), "error", err)
		return nil, err
	}
	out.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int64("refresh.generation", out.Generation),
		attribute.Int("refresh.snapshots", out.HealthSnapshots),
	)
	c.metrics.ObservePass(string(scope.Kind), "success", start)
	c.metrics.SetGeneration(out.Generation)
	c.logAudit(ctx, audit.EventRefreshCompleted, scope.ClientID, scope.Key(),
		"generation", out.Generation,
		"compliance_results", out.ComplianceResults,
		"health_snapshots", out.HealthSnapshots,
		"duration_ms", out.Duration.Milliseconds(),
	)
	return out, nil
}

func (c *Coordinator) pass(ctx context.Context, scope models.Scope) (*models.Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, release, err := c.acquireWriterLock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	at := c.now().UTC()
	ctx = requestcontext.WithTime(ctx, at)

	clientIDs, persistScope, err := c.targets(ctx, scope)
	if err != nil {
		return nil, err
	}
	gen, err := c.nextGeneration(ctx)
	if err != nil {
		return nil, err
	}

	results, err := c.compliance.Compute(ctx, scope.Year, clientIDs)
	if err != nil {
		return nil, err
	}
	builder := snapshot.NewBuilder(c.holder.Load(), gen, at)
	builder.SetCompliance(scope.Year, persistScope, results)

	// Health scores from current-year compliance only. A pass over any
	// other year restates compliance and leaves published health alone.
	var snaps []*health.Snapshot
	if scope.Year == at.Year() {
		snaps, err = c.health.Score(ctx, scope.Year, clientIDs, builder, gen, at)
		if err != nil {
			return nil, err
		}
		builder.SetHealth(snaps)
	}

	if ctx.Err() != nil {
		return nil, cancelled(ctx)
	}
	err = c.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := c.compliance.Persist(ctx, scope.Year, persistScope, results, gen); err != nil {
			return err
		}
		if len(snaps) > 0 {
			if err := c.health.Persist(ctx, snaps); err != nil {
				return err
			}
		}
		if err := c.state.Save(ctx, &models.State{Generation: gen, RefreshedAt: at}); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "refresh generation moved past this pass")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to advance refresh generation")
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, cancelled(ctx)
		}
		return nil, err
	}

	// Committed: the view must follow the database even if ctx has ended.
	c.holder.Publish(builder.Build())
	if c.events != nil && len(snaps) > 0 {
		c.events.Publish(context.WithoutCancel(ctx), snaps)
	}

	out := &models.Outcome{
		Scope:             scope.Kind,
		Year:              scope.Year,
		Generation:        gen,
		RefreshedAt:       at,
		ComplianceResults: len(results),
		HealthSnapshots:   len(snaps),
	}
	if scope.Kind == models.ScopeClient {
		cid := scope.ClientID
		out.ClientID = &cid
	}
	return out, nil
}

// targets returns the clients to compute and the scope to overwrite. A full
// pass overwrites the whole year, so its persist scope is empty.
func (c *Coordinator) targets(ctx context.Context, scope models.Scope) ([]id.ClientID, []id.ClientID, error) {
	if scope.Kind == models.ScopeClient {
		client, err := c.clients.GetClient(ctx, scope.ClientID)
		if err != nil {
			return nil, nil, err
		}
		if !client.IsActive() {
			return nil, nil, dErrors.New(dErrors.CodeValidation, "client is inactive")
		}
		ids := []id.ClientID{client.ID}
		return ids, ids, nil
	}
	active, err := c.clients.ActiveClients(ctx)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]id.ClientID, 0, len(active))
	for _, cl := range active {
		ids = append(ids, cl.ID)
	}
	return ids, nil, nil
}

func (c *Coordinator) nextGeneration(ctx context.Context) (int64, error) {
	current := c.holder.Load().Generation()
	st, err := c.state.Load(ctx)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
	case err != nil:
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load refresh generation")
	case st.Generation > current:
		current = st.Generation
	}
	return current + 1, nil
}

// acquireWriterLock polls the cross-process lock until it is taken or ctx
// ends. Locks that expire are renewed while the pass runs; if renewal finds
// the lock gone the returned context is cancelled with ErrLockHeld.
func (c *Coordinator) acquireWriterLock(ctx context.Context) (context.Context, func(), error) {
	if c.locks == nil {
		return ctx, func() {}, nil
	}
	lock := c.locks(LockKey)
	for {
		ok, err := lock.Acquire(ctx)
		if err != nil {
			code := dErrors.CodeInternal
			if errors.Is(err, sentinel.ErrUnavailable) {
				code = dErrors.CodeUnavailable
			}
			return nil, nil, dErrors.Wrap(err, code, "failed to take refresh writer lock")
		}
		if ok {
			break
		}
		c.metrics.IncrementLockContended()
		select {
		case <-ctx.Done():
			return nil, nil, dErrors.Wrap(fmt.Errorf("%w: %w", sentinel.ErrLockHeld, ctx.Err()),
				dErrors.CodeTimeout, "timed out waiting for refresh writer lock")
		case <-time.After(c.lockRetry):
		}
	}

	passCtx, cancel := context.WithCancelCause(ctx)
	stop := c.keepLock(passCtx, lock, cancel)
	return passCtx, func() {
		stop()
		cancel(nil)
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			c.logger.WarnContext(ctx, "failed to release refresh writer lock", "error", err)
		}
	}, nil
}

// keepLock renews an expiring lock every third of its TTL until stop is
// called. Transient renewal errors are retried on the next tick.
func (c *Coordinator) keepLock(ctx context.Context, lock distlock.Lock, cancel context.CancelCauseFunc) (stop func()) {
	ext, ok := lock.(distlock.Extender)
	if !ok || c.lockTTL <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(c.lockTTL / 3)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			held, err := ext.Extend(ctx, c.lockTTL)
			switch {
			case err != nil:
				c.logger.WarnContext(ctx, "failed to extend refresh writer lock", "error", err)
			case !held:
				c.metrics.IncrementLockLost()
				c.logger.ErrorContext(ctx, "refresh writer lock expired mid-pass")
				cancel(fmt.Errorf("%w: refresh writer lock expired mid-pass", sentinel.ErrLockHeld))
				return
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}

// Bootstrap publishes the last committed generation from storage so reads
// are served before the first pass of this process.
func (c *Coordinator) Bootstrap(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, err := c.state.Load(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		c.logger.InfoContext(ctx, "no committed refresh generation, serving empty view")
		return nil
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load refresh generation")
	}
	results, err := c.compliance.LoadPersisted(ctx)
	if err != nil {
		return err
	}
	snaps, err := c.health.LoadLatest(ctx)
	if err != nil {
		return err
	}

	builder := snapshot.NewBuilder(snapshot.Empty(), st.Generation, st.RefreshedAt)
	byYear := make(map[int][]*compliance.Result)
	for _, r := range results {
		byYear[r.Summary.Year] = append(byYear[r.Summary.Year], r)
	}
	for year, list := range byYear {
		builder.SetCompliance(year, nil, list)
	}
	builder.SetHealth(snaps)
	c.holder.Publish(builder.Build())
	c.metrics.SetGeneration(st.Generation)
	c.logger.InfoContext(ctx, "published committed refresh generation",
		"generation", st.Generation,
		"refreshed_at", st.RefreshedAt,
		"compliance_results", len(results),
		"health_snapshots", len(snaps),
	)
	return nil
}

// cancelled reports why ctx ended before publication. Losing the writer
// lock is a conflict with whichever process took it over.
func cancelled(ctx context.Context) error {
	if cause := context.Cause(ctx); errors.Is(cause, sentinel.ErrLockHeld) {
		return dErrors.Wrap(cause, dErrors.CodeConflict, "refresh writer lock lost before publication")
	}
	return dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "refresh cancelled before publication")
}
