package audit

import (
	"context"
	"time"

	id "clientpulse/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryAdmin covers changes to reference data that drive scoring:
	// clients, aliases, segments, requirements, exclusions.
	CategoryAdmin EventCategory = "admin"

	// CategoryOperations covers refresh passes and ingestion outcomes.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	ClientID  id.ClientID
	Subject   string
	Action    string
	Reason    string
	RequestID string
	// Operator is who performed the action. Workers record "system".
	Operator string
}

type AuditEvent string

const (
	// Identity events
	EventClientCreated     AuditEvent = "client_created"
	EventClientDeactivated AuditEvent = "client_deactivated"
	EventAliasCreated      AuditEvent = "alias_created"
	EventAliasDeactivated  AuditEvent = "alias_deactivated"
	EventNameUnresolved    AuditEvent = "name_unresolved"

	// Compliance reference data
	EventSegmentAssigned     AuditEvent = "segment_assigned"
	EventExclusionAdded      AuditEvent = "exclusion_added"
	EventExclusionRemoved    AuditEvent = "exclusion_removed"
	EventEventTypeDefined    AuditEvent = "event_type_defined"
	EventTierRequirementSet  AuditEvent = "tier_requirement_set"
	EventSegmentTieBreakUsed AuditEvent = "segment_tie_break_used"

	// Refresh events
	EventRefreshCompleted AuditEvent = "refresh_completed"
	EventRefreshFailed    AuditEvent = "refresh_failed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventClientCreated:      CategoryAdmin,
	EventClientDeactivated:  CategoryAdmin,
	EventAliasCreated:       CategoryAdmin,
	EventAliasDeactivated:   CategoryAdmin,
	EventSegmentAssigned:    CategoryAdmin,
	EventExclusionAdded:     CategoryAdmin,
	EventExclusionRemoved:   CategoryAdmin,
	EventEventTypeDefined:   CategoryAdmin,
	EventTierRequirementSet: CategoryAdmin,

	EventNameUnresolved:      CategoryOperations,
	EventSegmentTieBreakUsed: CategoryOperations,
	EventRefreshCompleted:    CategoryOperations,
	EventRefreshFailed:       CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByClient(ctx context.Context, clientID id.ClientID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
