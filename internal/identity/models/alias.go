package models

import (
	"time"

	dErrors "clientpulse/pkg/domain-errors"
	pstrings "clientpulse/pkg/platform/strings"
)

// Alias maps a free-text display name onto a canonical client name.
//
// Invariants:
//   - DisplayName and CanonicalName are non-empty
//   - An active DisplayName maps to exactly one CanonicalName
//   - Aliases are created only by an explicit admin action
type Alias struct {
	DisplayName   string     `json:"display_name"`
	CanonicalName string     `json:"canonical_name"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

// NewAlias builds an active alias.
func NewAlias(displayName, canonicalName string, now time.Time) (*Alias, error) {
	display := pstrings.CollapseSpace(displayName)
	canonical := pstrings.CollapseSpace(canonicalName)
	if display == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "display name cannot be empty")
	}
	if canonical == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "canonical name cannot be empty")
	}
	if len(display) > 256 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "display name must be 256 characters or less")
	}
	return &Alias{
		DisplayName:   display,
		CanonicalName: canonical,
		IsActive:      true,
		CreatedAt:     now,
	}, nil
}
