// Package domain holds the typed identifiers shared across modules.
package domain

import (
	"github.com/google/uuid"

	dErrors "clientpulse/pkg/domain-errors"
)

// ClientID identifies a canonical client.
type ClientID uuid.UUID

// EventID identifies an engagement event.
type EventID uuid.UUID

// SnapshotID identifies one appended health snapshot.
type SnapshotID uuid.UUID

func NewClientID() ClientID     { return ClientID(uuid.New()) }
func NewEventID() EventID       { return EventID(uuid.New()) }
func NewSnapshotID() SnapshotID { return SnapshotID(uuid.New()) }

func (id ClientID) String() string   { return uuid.UUID(id).String() }
func (id EventID) String() string    { return uuid.UUID(id).String() }
func (id SnapshotID) String() string { return uuid.UUID(id).String() }

func (id ClientID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id SnapshotID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id ClientID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id EventID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }

func (id SnapshotID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText accepts the nil uuid; unsaved snapshots carry no id.
func (id *SnapshotID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "snapshot_id must be a valid uuid")
	}
	*id = SnapshotID(u)
	return nil
}

func (id *ClientID) UnmarshalText(b []byte) error {
	parsed, err := ParseClientID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *EventID) UnmarshalText(b []byte) error {
	parsed, err := ParseEventID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseClientID parses a non-nil UUID into a ClientID.
func ParseClientID(s string) (ClientID, error) {
	u, err := parseUUID(s, "client_id")
	return ClientID(u), err
}

// ParseEventID parses a non-nil UUID into an EventID.
func ParseEventID(s string) (EventID, error) {
	u, err := parseUUID(s, "event_id")
	return EventID(u), err
}

// ParseSnapshotID parses a non-nil UUID into a SnapshotID.
func ParseSnapshotID(s string) (SnapshotID, error) {
	u, err := parseUUID(s, "snapshot_id")
	return SnapshotID(u), err
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s is required", field)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s must be a valid uuid", field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s must not be the nil uuid", field)
	}
	return u, nil
}
