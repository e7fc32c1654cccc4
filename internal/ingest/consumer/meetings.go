// Package consumer adapts the meeting lifecycle topic to the ingest service.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"clientpulse/internal/ingest/models"
	ingestsvc "clientpulse/internal/ingest/service"
	"clientpulse/internal/platform/kafka"
)

// MeetingIngester applies meeting rows.
type MeetingIngester interface {
	IngestMeetingsMode(ctx context.Context, source string, mode ingestsvc.ResolveMode, rows []models.MeetingRow) (*models.Report, error)
}

// Meetings handles one meeting row per record.
type Meetings struct {
	ingester MeetingIngester
	logger   *slog.Logger
}

func NewMeetings(ingester MeetingIngester, logger *slog.Logger) *Meetings {
	if logger == nil {
		logger = slog.Default()
	}
	return &Meetings{ingester: ingester, logger: logger}
}

// Handle is a kafka.Handler. Client names match exactly; fuzzy matching is
// reserved for operator-reviewed batch uploads. Rejected rows are logged and committed;
// undecodable records and storage failures are returned to the consumer.
func (m *Meetings) Handle(ctx context.Context, msg kafka.Message) error {
	var row models.MeetingRow
	if err := json.Unmarshal(msg.Value, &row); err != nil {
		return fmt.Errorf("decode meeting record at %s/%d@%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
	}
	report, err := m.ingester.IngestMeetingsMode(ctx, "kafka:"+msg.Topic, ingestsvc.ResolveExact, []models.MeetingRow{row})
	if err != nil {
		return err
	}
	for _, r := range report.Rejected {
		m.logger.WarnContext(ctx, "meeting record rejected",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"external_id", r.ExternalID,
			"client_name", r.ClientName,
			"code", r.Code,
			"reason", r.Reason,
		)
	}
	return nil
}
