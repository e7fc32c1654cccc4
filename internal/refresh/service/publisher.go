package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	health "clientpulse/internal/health/models"
	"clientpulse/internal/refresh/metrics"
	"clientpulse/pkg/platform/circuit"
)

// Sender produces one keyed record.
type Sender interface {
	Send(ctx context.Context, topic string, key, value []byte) error
}

// RefreshedEvent is the record value announcing a published snapshot.
type RefreshedEvent struct {
	ClientID       string        `json:"client_id"`
	Generation     int64         `json:"generation"`
	RefreshedAt    time.Time     `json:"refreshed_at"`
	Date           string        `json:"date"`
	TotalScore     int           `json:"total_score"`
	Status         health.Status `json:"status"`
	FormulaVersion string        `json:"formula_version"`
}

// KafkaPublisher sends one record per snapshot, keyed by client id. While
// the breaker is open records are dropped; every retryOpenEvery-th record is
// still attempted so the breaker can observe recovery.
type KafkaPublisher struct {
	sender  Sender
	topic   string
	breaker *circuit.Breaker
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics

	skipped int
}

const retryOpenEvery = 10

func NewKafkaPublisher(sender Sender, topic string, breaker *circuit.Breaker, logger *slog.Logger, m *metrics.Metrics) *KafkaPublisher {
	if breaker == nil {
		breaker = circuit.New("kafka-refresh-events")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaPublisher{
		sender:  sender,
		topic:   topic,
		breaker: breaker,
		timeout: 5 * time.Second,
		logger:  logger,
		metrics: m,
	}
}

// Publish is called by the single writer after each swap, so it is not
// safe for concurrent use.
func (p *KafkaPublisher) Publish(ctx context.Context, snapshots []*health.Snapshot) {
	for _, s := range snapshots {
		if p.breaker.IsOpen() {
			p.skipped++
			if p.skipped%retryOpenEvery != 0 {
				p.metrics.IncrementDropped("circuit_open")
				continue
			}
		}
		value, err := json.Marshal(RefreshedEvent{
			ClientID:       s.ClientID.String(),
			Generation:     s.Generation,
			RefreshedAt:    s.RefreshedAt,
			Date:           s.Date.Format(time.DateOnly),
			TotalScore:     s.TotalScore,
			Status:         s.Status,
			FormulaVersion: s.FormulaVersion,
		})
		if err != nil {
			p.metrics.IncrementDropped("encode")
			continue
		}
		sendCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err = p.sender.Send(sendCtx, p.topic, []byte(s.ClientID.String()), value)
		cancel()
		if err != nil {
			p.metrics.IncrementDropped("send")
			if _, change := p.breaker.RecordFailure(); change.Opened {
				p.logger.WarnContext(ctx, "refresh event circuit opened", "breaker", p.breaker.Name(), "error", err)
			}
			continue
		}
		p.metrics.IncrementPublished()
		if _, change := p.breaker.RecordSuccess(); change.Closed {
			p.skipped = 0
			p.logger.InfoContext(ctx, "refresh event circuit closed", "breaker", p.breaker.Name())
		}
	}
}
