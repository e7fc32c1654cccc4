package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"clientpulse/internal/refresh/models"
	"clientpulse/pkg/platform/sentinel"
	txcontext "clientpulse/pkg/platform/tx"
)

// PostgresStore persists the generation pointer in the single-row
// refresh_state table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Load(ctx context.Context) (*models.State, error) {
	var st models.State
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT generation, refreshed_at FROM refresh_state WHERE id = 1`,
	).Scan(&st.Generation, &st.RefreshedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("load refresh state: %w", err)
	}
	st.RefreshedAt = st.RefreshedAt.UTC()
	return &st, nil
}

// Save advances the pointer. A generation older than the stored one is
// rejected with sentinel.ErrConflict so a lagging writer cannot rewind it.
func (s *PostgresStore) Save(ctx context.Context, st *models.State) error {
	query := `
		INSERT INTO refresh_state (id, generation, refreshed_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET
			generation   = EXCLUDED.generation,
			refreshed_at = EXCLUDED.refreshed_at
		WHERE refresh_state.generation < EXCLUDED.generation
	`
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, st.Generation, st.RefreshedAt)
	if err != nil {
		return fmt.Errorf("save refresh state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save refresh state: %w", err)
	}
	if n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}
