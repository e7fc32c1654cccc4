package requirement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (s *PostgresStore) PutEventType(ctx context.Context, et *models.EventType) error {
	query := `
		INSERT INTO event_types (code, name) VALUES ($1, $2)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
	`
	if _, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, et.Code, et.Name); err != nil {
		return fmt.Errorf("upsert event type: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindEventType(ctx context.Context, code string) (*models.EventType, error) {
	var et models.EventType
	err := txcontext.Executor(ctx, s.db).
		QueryRowContext(ctx, `SELECT code, name FROM event_types WHERE code = $1`, code).
		Scan(&et.Code, &et.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find event type: %w", err)
	}
	return &et, nil
}

func (s *PostgresStore) ListEventTypes(ctx context.Context) ([]*models.EventType, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, `SELECT code, name FROM event_types ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list event types: %w", err)
	}
	defer rows.Close()

	var out []*models.EventType
	for rows.Next() {
		var et models.EventType
		if err := rows.Scan(&et.Code, &et.Name); err != nil {
			return nil, fmt.Errorf("scan event type: %w", err)
		}
		out = append(out, &et)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event types: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) PutTierRequirement(ctx context.Context, r *models.TierRequirement) error {
	query := `
		INSERT INTO tier_requirements (tier, event_type, frequency_per_year) VALUES ($1, $2, $3)
		ON CONFLICT (tier, event_type) DO UPDATE SET frequency_per_year = EXCLUDED.frequency_per_year
	`
	if _, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, r.Tier, r.EventType, r.FrequencyPerYear); err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("upsert tier requirement: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListTierRequirements(ctx context.Context) ([]*models.TierRequirement, error) {
	query := `SELECT tier, event_type, frequency_per_year FROM tier_requirements ORDER BY tier, event_type`
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tier requirements: %w", err)
	}
	defer rows.Close()

	var out []*models.TierRequirement
	for rows.Next() {
		var r models.TierRequirement
		if err := rows.Scan(&r.Tier, &r.EventType, &r.FrequencyPerYear); err != nil {
			return nil, fmt.Errorf("scan tier requirement: %w", err)
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tier requirements: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) AddExclusion(ctx context.Context, e *models.Exclusion) error {
	query := `
		INSERT INTO event_exclusions (client_id, event_type, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (client_id, event_type) DO NOTHING
	`
	if _, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, uuid.UUID(e.ClientID), e.EventType, e.CreatedAt); err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("insert exclusion: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveExclusion(ctx context.Context, clientID id.ClientID, eventType string) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx,
		`DELETE FROM event_exclusions WHERE client_id = $1 AND event_type = $2`,
		uuid.UUID(clientID), eventType,
	)
	if err != nil {
		return fmt.Errorf("delete exclusion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete exclusion rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListExclusions(ctx context.Context, clientIDs []id.ClientID) (map[id.ClientID]map[string]struct{}, error) {
	query := `
		SELECT client_id, event_type FROM event_exclusions
		WHERE ($1::uuid[] IS NULL OR client_id = ANY($1::uuid[]))
	`
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, postgres.ClientIDArray(clientIDs))
	if err != nil {
		return nil, fmt.Errorf("list exclusions: %w", err)
	}
	defer rows.Close()

	out := make(map[id.ClientID]map[string]struct{})
	for rows.Next() {
		var (
			raw  uuid.UUID
			code string
		)
		if err := rows.Scan(&raw, &code); err != nil {
			return nil, fmt.Errorf("scan exclusion: %w", err)
		}
		cid := id.ClientID(raw)
		if out[cid] == nil {
			out[cid] = make(map[string]struct{})
		}
		out[cid][code] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exclusions: %w", err)
	}
	return out, nil
}
