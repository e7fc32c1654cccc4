package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"clientpulse/internal/compliance/models"
	"clientpulse/internal/platform/postgres"
	id "clientpulse/pkg/domain"
	"clientpulse/pkg/platform/sentinel"
	txcontext "clientpulse/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const eventColumns = `id, external_id, client_id, event_type, event_date, completed, completed_at, updated_at`

// Upsert keys on external_id. xmax = 0 identifies a fresh insert.
func (s *PostgresStore) Upsert(ctx context.Context, e *models.EngagementEvent) (bool, error) {
	query := `
		INSERT INTO engagement_events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (external_id) DO UPDATE SET
			client_id    = EXCLUDED.client_id,
			event_type   = EXCLUDED.event_type,
			event_date   = EXCLUDED.event_date,
			completed    = EXCLUDED.completed,
			completed_at = CASE WHEN EXCLUDED.completed
			                    THEN COALESCE(engagement_events.completed_at, EXCLUDED.completed_at)
			                    ELSE NULL END,
			updated_at   = EXCLUDED.updated_at
		RETURNING id, completed_at, (xmax = 0) AS inserted
	`
	var (
		rawID       uuid.UUID
		completedAt sql.NullTime
		inserted    bool
	)
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query,
		uuid.UUID(e.ID), e.ExternalID, uuid.UUID(e.ClientID), e.EventType, e.Date,
		e.Completed, nullTime(e.CompletedAt), e.UpdatedAt,
	).Scan(&rawID, &completedAt, &inserted)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return false, sentinel.ErrNotFound
		}
		return false, fmt.Errorf("upsert engagement event: %w", err)
	}
	e.ID = id.EventID(rawID)
	e.CompletedAt = nil
	if completedAt.Valid {
		t := completedAt.Time
		e.CompletedAt = &t
	}
	return inserted, nil
}

func (s *PostgresStore) FindByExternalID(ctx context.Context, externalID string) (*models.EngagementEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM engagement_events WHERE external_id = $1`
	e, err := scanEvent(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, externalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find engagement event: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) Delete(ctx context.Context, externalID string) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `DELETE FROM engagement_events WHERE external_id = $1`, externalID)
	if err != nil {
		return fmt.Errorf("delete engagement event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete engagement event rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CountCompleted(ctx context.Context, year int, clientIDs []id.ClientID) (map[id.ClientID]map[string]int, error) {
	query := `
		SELECT client_id, event_type, COUNT(*)
		FROM engagement_events
		WHERE completed
		  AND event_date >= $1 AND event_date < $2
		  AND ($3::uuid[] IS NULL OR client_id = ANY($3::uuid[]))
		GROUP BY client_id, event_type
	`
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, start, start.AddDate(1, 0, 0), postgres.ClientIDArray(clientIDs))
	if err != nil {
		return nil, fmt.Errorf("count completed events: %w", err)
	}
	defer rows.Close()

	out := make(map[id.ClientID]map[string]int)
	for rows.Next() {
		var (
			raw   uuid.UUID
			code  string
			count int
		)
		if err := rows.Scan(&raw, &code, &count); err != nil {
			return nil, fmt.Errorf("scan event count: %w", err)
		}
		cid := id.ClientID(raw)
		if out[cid] == nil {
			out[cid] = make(map[string]int)
		}
		out[cid][code] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event counts: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListByClient(ctx context.Context, clientID id.ClientID, year int) ([]*models.EngagementEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM engagement_events
		WHERE client_id = $1 AND event_date >= $2 AND event_date < $3
		ORDER BY event_date, external_id
	`
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, uuid.UUID(clientID), start, start.AddDate(1, 0, 0))
	if err != nil {
		return nil, fmt.Errorf("list engagement events: %w", err)
	}
	defer rows.Close()

	var out []*models.EngagementEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan engagement event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate engagement events: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.EngagementEvent, error) {
	var (
		e           models.EngagementEvent
		rawID       uuid.UUID
		rawClient   uuid.UUID
		completedAt sql.NullTime
	)
	if err := row.Scan(&rawID, &e.ExternalID, &rawClient, &e.EventType, &e.Date, &e.Completed, &completedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.ID = id.EventID(rawID)
	e.ClientID = id.ClientID(rawClient)
	e.Date = models.Day(e.Date)
	if completedAt.Valid {
		t := completedAt.Time
		e.CompletedAt = &t
	}
	return &e, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
