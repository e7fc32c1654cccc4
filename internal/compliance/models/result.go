package models

import (
	id "clientpulse/pkg/domain"
)

// Status classifies a single event type's compliance percentage.
type Status string

const (
	StatusCritical  Status = "critical"
	StatusAtRisk    Status = "at-risk"
	StatusCompliant Status = "compliant"
	StatusExceeded  Status = "exceeded"
)

// OverallStatus classifies a client's rolled-up compliance.
type OverallStatus string

const (
	OverallCritical       OverallStatus = "critical"
	OverallAtRisk         OverallStatus = "at-risk"
	OverallCompliant      OverallStatus = "compliant"
	OverallNoRequirements OverallStatus = "no-requirements"
)

// Record is the derived compliance of one event type for a client-year.
type Record struct {
	ClientID   id.ClientID `json:"client_id"`
	Year       int         `json:"year"`
	EventType  string      `json:"event_type"`
	Expected   int         `json:"expected"`
	Actual     int         `json:"actual"`
	Percentage int         `json:"percentage"`
	Status     Status      `json:"status"`
}

// Summary is the rollup for a client-year. OverallScore is nil when the
// client has no required event types.
type Summary struct {
	ClientID       id.ClientID   `json:"client_id"`
	Year           int           `json:"year"`
	Tier           string        `json:"tier"`
	OverallScore   *int          `json:"overall_score"`
	OverallStatus  OverallStatus `json:"overall_status"`
	NoRequirements bool          `json:"no_requirements"`
	AmbiguousTier  bool          `json:"ambiguous_tier"`
}

// Result bundles a summary with its per-event records.
type Result struct {
	Summary Summary  `json:"summary"`
	Records []Record `json:"records"`
}

// PortfolioSummary aggregates a year's results. Clients without
// requirements are counted separately and excluded from the average.
type PortfolioSummary struct {
	Year                    int                   `json:"year"`
	ClientsEvaluated        int                   `json:"clients_evaluated"`
	ClientsWithRequirements int                   `json:"clients_with_requirements"`
	NoRequirements          int                   `json:"no_requirements"`
	AverageScore            *float64              `json:"average_score"`
	ByStatus                map[OverallStatus]int `json:"by_status"`
	AmbiguousTiers          int                   `json:"ambiguous_tiers"`
}
