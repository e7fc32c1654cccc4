package models

import (
	"strings"
	"time"

	id "clientpulse/pkg/domain"
	dErrors "clientpulse/pkg/domain-errors"
)

// SegmentAssignment places a client in a tier for a closed or open-ended
// date interval. Assignments are append-only; Seq orders them by insertion.
//
// Invariants:
//   - Tier is non-empty
//   - EffectiveTo, when set, is on or after EffectiveFrom
//   - Intervals for one client never overlap
type SegmentAssignment struct {
	Seq           int64       `json:"seq"`
	ClientID      id.ClientID `json:"client_id"`
	Tier          string      `json:"tier"`
	EffectiveFrom time.Time   `json:"effective_from"`
	EffectiveTo   *time.Time  `json:"effective_to,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// NewSegmentAssignment validates and builds an assignment. Dates are
// truncated to UTC midnight.
func NewSegmentAssignment(clientID id.ClientID, tier string, from time.Time, to *time.Time, now time.Time) (*SegmentAssignment, error) {
	tier = strings.TrimSpace(tier)
	if clientID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "client id is required")
	}
	if tier == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tier cannot be empty")
	}
	if from.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "effective_from is required")
	}
	a := &SegmentAssignment{
		ClientID:      clientID,
		Tier:          tier,
		EffectiveFrom: Day(from),
		CreatedAt:     now,
	}
	if to != nil {
		end := Day(*to)
		if end.Before(a.EffectiveFrom) {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "effective_to must not be before effective_from")
		}
		a.EffectiveTo = &end
	}
	return a, nil
}

// Contains reports whether day t falls inside the inclusive interval.
func (a *SegmentAssignment) Contains(t time.Time) bool {
	d := Day(t)
	if d.Before(a.EffectiveFrom) {
		return false
	}
	return a.EffectiveTo == nil || !d.After(*a.EffectiveTo)
}

// Overlaps reports whether two intervals share at least one day.
func (a *SegmentAssignment) Overlaps(b *SegmentAssignment) bool {
	if a.EffectiveTo != nil && a.EffectiveTo.Before(b.EffectiveFrom) {
		return false
	}
	if b.EffectiveTo != nil && b.EffectiveTo.Before(a.EffectiveFrom) {
		return false
	}
	return true
}

// IntersectsYear reports whether the interval touches any day of year.
func (a *SegmentAssignment) IntersectsYear(year int) bool {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return a.Overlaps(&SegmentAssignment{EffectiveFrom: start, EffectiveTo: &end})
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
