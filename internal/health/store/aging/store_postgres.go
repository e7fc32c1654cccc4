package aging

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"clientpulse/internal/health/models"
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

func (s *PostgresStore) Upsert(ctx context.Context, a *models.AgingSnapshot) error {
	query := `
		INSERT INTO aging_snapshots (client_id, as_of, current, d1_30, d31_60, d61_90, d91_120, d121_plus)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (client_id, as_of) DO UPDATE SET
			current   = EXCLUDED.current,
			d1_30     = EXCLUDED.d1_30,
			d31_60    = EXCLUDED.d31_60,
			d61_90    = EXCLUDED.d61_90,
			d91_120   = EXCLUDED.d91_120,
			d121_plus = EXCLUDED.d121_plus
	`
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(a.ClientID), a.AsOf, a.Current, a.D1To30, a.D31To60, a.D61To90, a.D91To120, a.D121Plus)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("upsert aging snapshot: %w", err)
	}
	return nil
}

func (s *PostgresStore) Latest(ctx context.Context, clientIDs []id.ClientID) (map[id.ClientID]*models.AgingSnapshot, error) {
	query := `
		SELECT DISTINCT ON (client_id)
			client_id, as_of, current, d1_30, d31_60, d61_90, d91_120, d121_plus
		FROM aging_snapshots
		WHERE ($1::uuid[] IS NULL OR client_id = ANY($1::uuid[]))
		ORDER BY client_id, as_of DESC
	`
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, postgres.ClientIDArray(clientIDs))
	if err != nil {
		return nil, fmt.Errorf("list latest aging snapshots: %w", err)
	}
	defer rows.Close()

	out := make(map[id.ClientID]*models.AgingSnapshot)
	for rows.Next() {
		var (
			a   models.AgingSnapshot
			raw uuid.UUID
		)
		if err := rows.Scan(&raw, &a.AsOf, &a.Current, &a.D1To30, &a.D31To60, &a.D61To90, &a.D91To120, &a.D121Plus); err != nil {
			return nil, fmt.Errorf("scan aging snapshot: %w", err)
		}
		a.ClientID = id.ClientID(raw)
		out[a.ClientID] = &a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aging snapshots: %w", err)
	}
	return out, nil
}
