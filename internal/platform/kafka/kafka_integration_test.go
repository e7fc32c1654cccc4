//go:build integration

package kafka

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"clientpulse/pkg/testutil/containers"
)

func TestProduceConsumeRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	broker := containers.GetManager().GetKafka(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	const topic = "clientpulse.meetings.it"
	require.NoError(t, EnsureTopics(ctx, broker.Brokers, 1, topic))
	require.NoError(t, EnsureTopics(ctx, broker.Brokers, 1, topic), "second call is a no-op")

	producer, err := NewProducer(broker.Brokers)
	require.NoError(t, err)
	defer producer.Close()
	require.NoError(t, producer.Send(ctx, topic, []byte("m-1"), []byte(`{"action":"create"}`)))

	consumer, err := NewConsumer(broker.Brokers, "it-group", []string{topic}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer consumer.Close()

	got := make(chan Message, 1)
	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		_ = consumer.Run(runCtx, func(_ context.Context, msg Message) error {
			select {
			case got <- msg:
			default:
			}
			return nil
		})
	}()

	select {
	case msg := <-got:
		require.Equal(t, "m-1", string(msg.Key))
		require.JSONEq(t, `{"action":"create"}`, string(msg.Value))
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}

	require.NoError(t, producer.Close())
	require.ErrorIs(t, producer.Send(ctx, topic, nil, nil), ErrProducerClosed)
}
