package models

import (
	"strings"
	"time"

	id "clientpulse/pkg/domain"
	dErrors "clientpulse/pkg/domain-errors"
)

// EventType is a recurring engagement activity such as a QBR or health check.
type EventType struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func NewEventType(code, name string) (*EventType, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event type code cannot be empty")
	}
	if name == "" {
		name = code
	}
	return &EventType{Code: code, Name: name}, nil
}

// TierRequirement is how many events of a type a tier expects per year.
// A frequency of zero means the type is not required.
type TierRequirement struct {
	Tier             string `json:"tier"`
	EventType        string `json:"event_type"`
	FrequencyPerYear int    `json:"frequency_per_year"`
}

func NewTierRequirement(tier, eventType string, frequency int) (*TierRequirement, error) {
	tier = strings.TrimSpace(tier)
	eventType = strings.TrimSpace(eventType)
	if tier == "" || eventType == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tier and event type are required")
	}
	if frequency < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "frequency_per_year must not be negative")
	}
	return &TierRequirement{Tier: tier, EventType: eventType, FrequencyPerYear: frequency}, nil
}

// Exclusion removes an event type from a client's requirements for all periods.
type Exclusion struct {
	ClientID  id.ClientID `json:"client_id"`
	EventType string      `json:"event_type"`
	CreatedAt time.Time   `json:"created_at"`
}
