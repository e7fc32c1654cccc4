package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	healthmodels "clientpulse/internal/health/models"
	"clientpulse/internal/refresh/metrics"
	id "clientpulse/pkg/domain"
	"clientpulse/pkg/platform/circuit"
)

type record struct {
	topic      string
	key, value []byte
}

type fakeSender struct {
	err  error
	sent []record
}

func (f *fakeSender) Send(_ context.Context, topic string, key, value []byte) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, record{topic: topic, key: key, value: value})
	return nil
}

func snapshots(n int) []*healthmodels.Snapshot {
	at := time.Date(2024, 6, 1, 2, 0, 0, 0, time.UTC)
	out := make([]*healthmodels.Snapshot, n)
	for i := range out {
		out[i] = &healthmodels.Snapshot{
			ID:             id.NewSnapshotID(),
			ClientID:       id.NewClientID(),
			Date:           time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			TotalScore:     79,
			Status:         healthmodels.StatusHealthy,
			FormulaVersion: "v2",
			Generation:     4,
			RefreshedAt:    at,
		}
	}
	return out
}

func TestKafkaPublisherKeysByClient(t *testing.T) {
	sender := &fakeSender{}
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	p := NewKafkaPublisher(sender, "clientpulse.health.refreshed", nil, slog.New(slog.NewTextHandler(io.Discard, nil)), m)

	snaps := snapshots(2)
	p.Publish(context.Background(), snaps)

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "clientpulse.health.refreshed", sender.sent[0].topic)
	assert.Equal(t, snaps[0].ClientID.String(), string(sender.sent[0].key))

	var ev RefreshedEvent
	require.NoError(t, json.Unmarshal(sender.sent[1].value, &ev))
	assert.Equal(t, snaps[1].ClientID.String(), ev.ClientID)
	assert.Equal(t, int64(4), ev.Generation)
	assert.Equal(t, "2024-06-01", ev.Date)
	assert.Equal(t, 79, ev.TotalScore)
	assert.Equal(t, 2.0, promtest.ToFloat64(m.EventsPublished))
}

func TestKafkaPublisherShedsWhileOpen(t *testing.T) {
	sender := &fakeSender{err: errors.New("broker down")}
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	breaker := circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1))
	p := NewKafkaPublisher(sender, "t", breaker, slog.New(slog.NewTextHandler(io.Discard, nil)), m)

	p.Publish(context.Background(), snapshots(2))
	assert.True(t, breaker.IsOpen())
	assert.Equal(t, 2.0, promtest.ToFloat64(m.EventsDropped.WithLabelValues("send")))

	p.Publish(context.Background(), snapshots(retryOpenEvery-1))
	assert.Equal(t, float64(retryOpenEvery-1), promtest.ToFloat64(m.EventsDropped.WithLabelValues("circuit_open")))

	// The next record is a trial send; its success closes the breaker.
	sender.err = nil
	p.Publish(context.Background(), snapshots(2))
	assert.False(t, breaker.IsOpen())
	assert.Len(t, sender.sent, 2)
}
