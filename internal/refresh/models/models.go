package models

import (
	"fmt"
	"strings"
	"time"

	id "clientpulse/pkg/domain"
	dErrors "clientpulse/pkg/domain-errors"
)

// ScopeKind selects which clients a refresh pass recomputes.
type ScopeKind string

const (
	ScopeAll    ScopeKind = "all"
	ScopeClient ScopeKind = "client"
)

// Scope identifies one refresh pass. A zero Year means the pass's calendar year.
type Scope struct {
	Kind     ScopeKind
	ClientID id.ClientID
	Year     int
}

func AllClients(year int) Scope {
	return Scope{Kind: ScopeAll, Year: year}
}

func OneClient(clientID id.ClientID, year int) Scope {
	return Scope{Kind: ScopeClient, ClientID: clientID, Year: year}
}

// Key identifies passes that may be coalesced.
func (s Scope) Key() string {
	if s.Kind == ScopeClient {
		return fmt.Sprintf("client:%s:%d", s.ClientID, s.Year)
	}
	return fmt.Sprintf("all:%d", s.Year)
}

func (s Scope) Validate() error {
	switch s.Kind {
	case ScopeAll:
	case ScopeClient:
		if s.ClientID.IsNil() {
			return dErrors.New(dErrors.CodeValidation, "client_id is required for client scope")
		}
	default:
		return dErrors.Newf(dErrors.CodeValidation, "unknown refresh scope %q", s.Kind)
	}
	if s.Year != 0 && (s.Year < 1900 || s.Year > 9999) {
		return dErrors.New(dErrors.CodeValidation, "year must be a four digit number")
	}
	return nil
}

// Outcome describes a completed pass. Coalesced is set for callers that
// joined a pass started by someone else.
type Outcome struct {
	Scope             ScopeKind     `json:"scope"`
	ClientID          *id.ClientID  `json:"client_id,omitempty"`
	Year              int           `json:"year"`
	Generation        int64         `json:"generation"`
	RefreshedAt       time.Time     `json:"refreshed_at"`
	ComplianceResults int           `json:"compliance_results"`
	HealthSnapshots   int           `json:"health_snapshots"`
	Duration          time.Duration `json:"duration_ns"`
	Coalesced         bool          `json:"coalesced"`
}

// State is the persisted generation pointer.
type State struct {
	Generation  int64     `json:"generation"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// RefreshRequest is the body of a manual refresh trigger.
type RefreshRequest struct {
	Scope    string `json:"scope"`
	ClientID string `json:"client_id,omitempty"`
	Year     int    `json:"year,omitempty"`

	scope Scope
}

func (r *RefreshRequest) Validate() error {
	r.Scope = strings.ToLower(strings.TrimSpace(r.Scope))
	if r.Scope == "" {
		r.Scope = string(ScopeAll)
	}
	s := Scope{Kind: ScopeKind(r.Scope), Year: r.Year}
	if raw := strings.TrimSpace(r.ClientID); raw != "" {
		cid, err := id.ParseClientID(raw)
		if err != nil {
			return err
		}
		s.ClientID = cid
	}
	if s.Kind == ScopeAll && !s.ClientID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "client_id is only valid for client scope")
	}
	if err := s.Validate(); err != nil {
		return err
	}
	r.scope = s
	return nil
}

// ToScope returns the parsed scope. Only valid after Validate.
func (r *RefreshRequest) ToScope() Scope {
	return r.scope
}
