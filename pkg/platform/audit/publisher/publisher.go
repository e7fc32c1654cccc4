// Package publisher emits audit events to an audit.Store.
//
// Synchronous mode (the default) is fail-closed: Emit returns the store error
// and the calling admin operation must fail. Async mode buffers events for
// best-effort operational events and drains the buffer on Close.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	id "clientpulse/pkg/domain"
	audit "clientpulse/pkg/platform/audit"
	"clientpulse/pkg/requestcontext"
)

// ErrBufferFull is returned by Emit in async mode when the buffer is saturated.
var ErrBufferFull = errors.New("audit buffer full")

// Publisher writes audit events.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	buffer chan audit.Event
	wg     sync.WaitGroup
	once   sync.Once
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for async persistence failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithAsyncBuffer switches the publisher to buffered, non-blocking emission.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.buffer = make(chan audit.Event, size)
		}
	}
}

// NewPublisher creates a publisher over store.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records event. Missing timestamp, request ID and operator are filled
// from the context.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Action == "" {
		return fmt.Errorf("audit event requires Action")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Operator == "" {
		event.Operator = requestcontext.Operator(ctx)
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.buffer == nil {
		if err := p.store.Append(ctx, event); err != nil {
			return fmt.Errorf("persist audit event: %w", err)
		}
		return nil
	}

	select {
	case p.buffer <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBufferFull
	}
}

// List returns the events recorded for a client.
func (p *Publisher) List(ctx context.Context, clientID id.ClientID) ([]audit.Event, error) {
	return p.store.ListByClient(ctx, clientID)
}

// Close stops accepting async events and waits for the buffer to drain.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.buffer != nil {
			close(p.buffer)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.buffer {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := p.store.Append(ctx, event)
		cancel()
		if err != nil && p.logger != nil {
			p.logger.Error("failed to persist audit event",
				"action", event.Action,
				"error", err,
			)
		}
	}
}
