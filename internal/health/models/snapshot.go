package models

import (
	"time"

	id "clientpulse/pkg/domain"
)

// Status classifies a total health score.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusAtRisk   Status = "at-risk"
	StatusCritical Status = "critical"
)

// Inputs is the breakdown of signals a snapshot was scored from. A nil
// pointer means the signal was missing and the formula default applied.
type Inputs struct {
	NPSScore                 *float64   `json:"nps_score"`
	NPSResponses             int        `json:"nps_responses"`
	NPSQuarter               string     `json:"nps_quarter,omitempty"`
	NPSDeclining             bool       `json:"nps_declining"`
	CompliancePercentage     *float64   `json:"compliance_percentage"`
	ComplianceYear           int        `json:"compliance_year"`
	WorkingCapitalPercentage *float64   `json:"working_capital_percentage"`
	AgingAsOf                *time.Time `json:"aging_as_of,omitempty"`
}

// Snapshot is one scored point in a client's append-only health history.
type Snapshot struct {
	ID                  id.SnapshotID `json:"id"`
	ClientID            id.ClientID   `json:"client_id"`
	Date                time.Time     `json:"date"`
	NPSComponent        float64       `json:"nps_component"`
	ComplianceComponent float64       `json:"compliance_component"`
	AgingComponent      float64       `json:"aging_component"`
	TotalScore          int           `json:"total_score"`
	Status              Status        `json:"status"`
	FormulaVersion      string        `json:"formula_version"`
	Inputs              Inputs        `json:"inputs"`
	Generation          int64         `json:"generation"`
	RefreshedAt         time.Time     `json:"refreshed_at"`
}

// CurrentHealth is the read model for the latest published snapshot.
// Stale is set when the caller asked for data newer than the last refresh.
type CurrentHealth struct {
	Snapshot    *Snapshot `json:"snapshot"`
	RefreshedAt time.Time `json:"refreshed_at"`
	Stale       bool      `json:"stale"`
}
