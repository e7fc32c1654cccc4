package models

import (
	"strings"
	"time"

	id "clientpulse/pkg/domain"
	dErrors "clientpulse/pkg/domain-errors"
)

// AssignSegmentRequest inserts a segment assignment. Dates are YYYY-MM-DD.
type AssignSegmentRequest struct {
	ClientID      id.ClientID `json:"client_id"`
	Tier          string      `json:"tier"`
	EffectiveFrom string      `json:"effective_from"`
	EffectiveTo   string      `json:"effective_to,omitempty"`

	from time.Time
	to   *time.Time
}

func (r *AssignSegmentRequest) Validate() error {
	r.Tier = strings.TrimSpace(r.Tier)
	if r.ClientID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "client_id is required")
	}
	if r.Tier == "" {
		return dErrors.New(dErrors.CodeValidation, "tier is required")
	}
	from, err := time.Parse(time.DateOnly, strings.TrimSpace(r.EffectiveFrom))
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "effective_from must be YYYY-MM-DD")
	}
	r.from = from
	r.to = nil
	if strings.TrimSpace(r.EffectiveTo) != "" {
		to, err := time.Parse(time.DateOnly, strings.TrimSpace(r.EffectiveTo))
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "effective_to must be YYYY-MM-DD")
		}
		if to.Before(from) {
			return dErrors.New(dErrors.CodeValidation, "effective_to must not be before effective_from")
		}
		r.to = &to
	}
	return nil
}

// Interval returns the parsed dates. Only valid after Validate.
func (r *AssignSegmentRequest) Interval() (time.Time, *time.Time) {
	return r.from, r.to
}

// ExclusionRequest adds or removes an event-type exclusion.
type ExclusionRequest struct {
	ClientID  id.ClientID `json:"client_id"`
	EventType string      `json:"event_type"`
}

func (r *ExclusionRequest) Validate() error {
	r.EventType = strings.TrimSpace(r.EventType)
	if r.ClientID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "client_id is required")
	}
	if r.EventType == "" {
		return dErrors.New(dErrors.CodeValidation, "event_type is required")
	}
	return nil
}

type DefineEventTypeRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (r *DefineEventTypeRequest) Validate() error {
	r.Code = strings.TrimSpace(r.Code)
	r.Name = strings.TrimSpace(r.Name)
	if r.Code == "" {
		return dErrors.New(dErrors.CodeValidation, "code is required")
	}
	return nil
}

type SetTierRequirementRequest struct {
	Tier             string `json:"tier"`
	EventType        string `json:"event_type"`
	FrequencyPerYear int    `json:"frequency_per_year"`
}

func (r *SetTierRequirementRequest) Validate() error {
	r.Tier = strings.TrimSpace(r.Tier)
	r.EventType = strings.TrimSpace(r.EventType)
	if r.Tier == "" || r.EventType == "" {
		return dErrors.New(dErrors.CodeValidation, "tier and event_type are required")
	}
	if r.FrequencyPerYear < 0 {
		return dErrors.New(dErrors.CodeValidation, "frequency_per_year must not be negative")
	}
	return nil
}
