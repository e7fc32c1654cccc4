package models

import (
	"strings"
	"time"

	id "clientpulse/pkg/domain"
	dErrors "clientpulse/pkg/domain-errors"
	pstrings "clientpulse/pkg/platform/strings"
)

// ClientStatus is the lifecycle state of a canonical client.
type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "active"
	ClientStatusInactive ClientStatus = "inactive"
)

// IsValid reports whether the status is a known value.
func (s ClientStatus) IsValid() bool {
	return s == ClientStatusActive || s == ClientStatusInactive
}

// Client is the canonical client entity.
//
// Invariants:
//   - CanonicalName is non-empty, whitespace collapsed, at most 256 characters
//   - CanonicalName is unique across clients
//   - Clients are never deleted, only deactivated
//   - Inactive clients still resolve; they are skipped by full recomputation
type Client struct {
	ID             id.ClientID  `json:"id"`
	CanonicalName  string       `json:"canonical_name"`
	Country        string       `json:"country"`
	CurrentSegment string       `json:"current_segment"`
	Status         ClientStatus `json:"status"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

func (c *Client) IsActive() bool {
	return c.Status == ClientStatusActive
}

// Deactivate marks the client inactive.
func (c *Client) Deactivate(now time.Time) error {
	if !c.IsActive() {
		return dErrors.New(dErrors.CodeInvariantViolation, "client is already inactive")
	}
	c.Status = ClientStatusInactive
	c.UpdatedAt = now
	return nil
}

// AssignSegment sets the current segment tier.
func (c *Client) AssignSegment(tier string, now time.Time) error {
	tier = strings.TrimSpace(tier)
	if tier == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "segment tier cannot be empty")
	}
	c.CurrentSegment = tier
	c.UpdatedAt = now
	return nil
}

// NewClient validates and builds an active client.
func NewClient(clientID id.ClientID, canonicalName, country, segment string, now time.Time) (*Client, error) {
	name := pstrings.CollapseSpace(canonicalName)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "canonical name cannot be empty")
	}
	if len(name) > 256 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "canonical name must be 256 characters or less")
	}
	return &Client{
		ID:             clientID,
		CanonicalName:  name,
		Country:        strings.ToUpper(strings.TrimSpace(country)),
		CurrentSegment: strings.TrimSpace(segment),
		Status:         ClientStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
