package models

import (
	"strings"
	"time"

	id "clientpulse/pkg/domain"
	dErrors "clientpulse/pkg/domain-errors"
)

// EngagementEvent is one scheduled or completed client meeting, keyed by the
// meeting system's external id.
type EngagementEvent struct {
	ID          id.EventID  `json:"id"`
	ExternalID  string      `json:"external_id"`
	ClientID    id.ClientID `json:"client_id"`
	EventType   string      `json:"event_type"`
	Date        time.Time   `json:"date"`
	Completed   bool        `json:"completed"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func NewEngagementEvent(externalID string, clientID id.ClientID, eventType string, date time.Time, completed bool, now time.Time) (*EngagementEvent, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "external id cannot be empty")
	}
	if clientID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "client id is required")
	}
	if strings.TrimSpace(eventType) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event type cannot be empty")
	}
	e := &EngagementEvent{
		ID:         id.NewEventID(),
		ExternalID: externalID,
		ClientID:   clientID,
		EventType:  strings.TrimSpace(eventType),
		Date:       Day(date),
		UpdatedAt:  now,
	}
	if completed {
		e.Complete(now)
	}
	return e, nil
}

// Complete marks the event done. Completing twice keeps the first timestamp.
func (e *EngagementEvent) Complete(now time.Time) {
	if e.Completed {
		return
	}
	e.Completed = true
	at := now
	e.CompletedAt = &at
	e.UpdatedAt = now
}

// Year is the calendar year the event counts towards.
func (e *EngagementEvent) Year() int {
	return e.Date.Year()
}
