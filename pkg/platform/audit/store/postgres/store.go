package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "clientpulse/pkg/domain"
	audit "clientpulse/pkg/platform/audit"
	txcontext "clientpulse/pkg/platform/tx"
)

// Store implements audit.Store on the audit_events table. Appends join the
// caller's transaction when one is carried by the context, so an admin
// mutation and its audit row commit together.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts an audit event. The category is always derived from the action.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	category := audit.AuditEvent(event.Action).Category()

	var clientID *uuid.UUID
	if !event.ClientID.IsNil() {
		cid := uuid.UUID(event.ClientID)
		clientID = &cid
	}

	query := `
		INSERT INTO audit_events (
			id, category, timestamp, client_id, subject, action,
			reason, request_id, operator
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		uuid.New(),
		string(category),
		event.Timestamp,
		clientID,
		event.Subject,
		event.Action,
		event.Reason,
		event.RequestID,
		event.Operator,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

const selectEvents = `
	SELECT category, timestamp, client_id, subject, action, reason, request_id, operator
	FROM audit_events`

// ListByClient returns events for a client, newest first.
func (s *Store) ListByClient(ctx context.Context, clientID id.ClientID) ([]audit.Event, error) {
	return s.list(ctx, selectEvents+` WHERE client_id = $1 ORDER BY timestamp DESC`, uuid.UUID(clientID))
}

// ListRecent returns the limit most recent events.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	return s.list(ctx, selectEvents+` ORDER BY timestamp DESC LIMIT $1`, limit)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var out []audit.Event
	for rows.Next() {
		var e audit.Event
		var category string
		var clientID uuid.NullUUID
		if err := rows.Scan(&category, &e.Timestamp, &clientID, &e.Subject, &e.Action, &e.Reason, &e.RequestID, &e.Operator); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		if clientID.Valid {
			e.ClientID = id.ClientID(clientID.UUID)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return out, nil
}
