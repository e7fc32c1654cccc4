package models

import (
	"fmt"
	"strings"
	"time"

	id "clientpulse/pkg/domain"
	dErrors "clientpulse/pkg/domain-errors"
)

// SurveyResponse is a single 0-10 likelihood-to-recommend answer.
type SurveyResponse struct {
	ClientID    id.ClientID `json:"client_id"`
	Score       int         `json:"score"`
	RespondedAt time.Time   `json:"responded_at"`
	Period      string      `json:"period,omitempty"`
	Feedback    string      `json:"feedback,omitempty"`
}

func NewSurveyResponse(clientID id.ClientID, score int, respondedAt time.Time, period, feedback string) (*SurveyResponse, error) {
	if clientID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "client id is required")
	}
	if score < 0 || score > 10 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "score must be between 0 and 10")
	}
	if respondedAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "responded_at is required")
	}
	return &SurveyResponse{
		ClientID:    clientID,
		Score:       score,
		RespondedAt: respondedAt.UTC(),
		Period:      strings.TrimSpace(period),
		Feedback:    strings.TrimSpace(feedback),
	}, nil
}

// Quarter labels the calendar quarter of the response, e.g. "2024-Q3".
func (r *SurveyResponse) Quarter() string {
	return QuarterOf(r.RespondedAt)
}

func QuarterOf(t time.Time) string {
	return fmt.Sprintf("%d-Q%d", t.Year(), (int(t.Month())-1)/3+1)
}

// AgingSnapshot is a receivables aging report for one client as of a date.
type AgingSnapshot struct {
	ClientID id.ClientID `json:"client_id"`
	AsOf     time.Time   `json:"as_of"`
	Current  float64     `json:"current"`
	D1To30   float64     `json:"d1_30"`
	D31To60  float64     `json:"d31_60"`
	D61To90  float64     `json:"d61_90"`
	D91To120 float64     `json:"d91_120"`
	D121Plus float64     `json:"d121_plus"`
}

func NewAgingSnapshot(clientID id.ClientID, asOf time.Time, buckets [6]float64) (*AgingSnapshot, error) {
	if clientID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "client id is required")
	}
	if asOf.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "as_of is required")
	}
	for _, b := range buckets {
		if b < 0 {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "aging buckets must not be negative")
		}
	}
	t := asOf.UTC()
	return &AgingSnapshot{
		ClientID: clientID,
		AsOf:     time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
		Current:  buckets[0],
		D1To30:   buckets[1],
		D31To60:  buckets[2],
		D61To90:  buckets[3],
		D91To120: buckets[4],
		D121Plus: buckets[5],
	}, nil
}

func (a *AgingSnapshot) Outstanding() float64 {
	return a.Current + a.D1To30 + a.D31To60 + a.D61To90 + a.D91To120 + a.D121Plus
}

// WorkingCapitalPercentage is the share of the outstanding balance in the
// buckets up to 90 days. Nil when nothing is outstanding.
func (a *AgingSnapshot) WorkingCapitalPercentage() *float64 {
	total := a.Outstanding()
	if total <= 0 {
		return nil
	}
	pct := (a.Current + a.D1To30 + a.D31To60 + a.D61To90) / total * 100
	return &pct
}
