package models

import (
	"strings"

	dErrors "clientpulse/pkg/domain-errors"
)

// maxBatchRows bounds one HTTP ingest request.
const maxBatchRows = 5000

// Batch is the body of an ingest request. Source defaults to the feed name.
type Batch[T any] struct {
	Source string `json:"source,omitempty"`
	Rows   []T    `json:"rows"`
}

func (b *Batch[T]) Validate() error {
	b.Source = strings.TrimSpace(b.Source)
	if len(b.Rows) == 0 {
		return dErrors.New(dErrors.CodeValidation, "rows must not be empty")
	}
	if len(b.Rows) > maxBatchRows {
		return dErrors.Newf(dErrors.CodeValidation, "at most %d rows per request", maxBatchRows)
	}
	return nil
}

type MeetingBatch = Batch[MeetingRow]
type SurveyBatch = Batch[SurveyRow]
type AgingBatch = Batch[AgingRow]
