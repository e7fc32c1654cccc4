package unresolved

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"clientpulse/internal/identity/models"
	txcontext "clientpulse/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Record(ctx context.Context, rawName, source string, now time.Time) error {
	query := `
		INSERT INTO unresolved_names (raw_name, source, first_seen, last_seen, occurrences, resolved)
		VALUES ($1, $2, $3, $3, 1, FALSE)
		ON CONFLICT (raw_name, source) DO UPDATE
		SET occurrences = unresolved_names.occurrences + 1,
		    last_seen = EXCLUDED.last_seen,
		    resolved = FALSE
	`
	if _, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, rawName, source, now); err != nil {
		return fmt.Errorf("record unresolved name: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, includeResolved bool) ([]*models.UnresolvedName, error) {
	query := `
		SELECT raw_name, source, first_seen, last_seen, occurrences, resolved
		FROM unresolved_names
		WHERE $1 OR NOT resolved
		ORDER BY last_seen DESC, raw_name
	`
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, includeResolved)
	if err != nil {
		return nil, fmt.Errorf("list unresolved names: %w", err)
	}
	defer rows.Close()

	var out []*models.UnresolvedName
	for rows.Next() {
		var u models.UnresolvedName
		if err := rows.Scan(&u.RawName, &u.Source, &u.FirstSeen, &u.LastSeen, &u.Occurrences, &u.Resolved); err != nil {
			return nil, fmt.Errorf("scan unresolved name: %w", err)
		}
		out = append(out, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unresolved names: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) MarkResolved(ctx context.Context, rawNames []string) (int, error) {
	if len(rawNames) == 0 {
		return 0, nil
	}
	query := `UPDATE unresolved_names SET resolved = TRUE WHERE raw_name = ANY($1) AND NOT resolved`
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, pq.Array(rawNames))
	if err != nil {
		return 0, fmt.Errorf("mark unresolved names resolved: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark unresolved rows affected: %w", err)
	}
	return int(n), nil
}
