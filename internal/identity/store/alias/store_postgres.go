package alias

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"clientpulse/internal/identity/models"
	"clientpulse/internal/platform/postgres"
	"clientpulse/pkg/platform/sentinel"
	txcontext "clientpulse/pkg/platform/tx"
)

// PostgresStore persists aliases. A partial unique index on display_name
// WHERE is_active enforces one active mapping per display name.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, a *models.Alias) error {
	query := `
		INSERT INTO aliases (display_name, canonical_name, is_active, created_at)
		VALUES ($1, $2, TRUE, $3)
	`
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, a.DisplayName, a.CanonicalName, a.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		if postgres.IsForeignKeyViolation(err) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("insert alias: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindActive(ctx context.Context, displayName string) (*models.Alias, error) {
	query := `
		SELECT display_name, canonical_name, is_active, created_at, deactivated_at
		FROM aliases
		WHERE display_name = $1 AND is_active
	`
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, displayName)
	a, err := scanAlias(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find alias: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) Deactivate(ctx context.Context, displayName string, now time.Time) error {
	query := `
		UPDATE aliases
		SET is_active = FALSE, deactivated_at = $2
		WHERE display_name = $1 AND is_active
	`
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, displayName, now)
	if err != nil {
		return fmt.Errorf("deactivate alias: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate alias rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]*models.Alias, error) {
	query := `
		SELECT display_name, canonical_name, is_active, created_at, deactivated_at
		FROM aliases
		WHERE is_active
		ORDER BY display_name
	`
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	defer rows.Close()

	var out []*models.Alias
	for rows.Next() {
		a, err := scanAlias(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aliases: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlias(row rowScanner) (*models.Alias, error) {
	var (
		a           models.Alias
		deactivated sql.NullTime
	)
	if err := row.Scan(&a.DisplayName, &a.CanonicalName, &a.IsActive, &a.CreatedAt, &deactivated); err != nil {
		return nil, err
	}
	if deactivated.Valid {
		t := deactivated.Time
		a.DeactivatedAt = &t
	}
	return &a, nil
}
