package segment

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"clientpulse/internal/compliance/models"
	"clientpulse/internal/platform/postgres"
	id "clientpulse/pkg/domain"
	"clientpulse/pkg/platform/sentinel"
	txcontext "clientpulse/pkg/platform/tx"
)

// PostgresStore relies on an exclusion constraint over
// daterange(effective_from, effective_to, '[]') to reject overlaps.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const segmentColumns = `seq, client_id, tier, effective_from, effective_to, created_at`

func (s *PostgresStore) Insert(ctx context.Context, a *models.SegmentAssignment) error {
	query := `
		INSERT INTO segment_assignments (client_id, tier, effective_from, effective_to, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING seq
	`
	var to any
	if a.EffectiveTo != nil {
		to = *a.EffectiveTo
	}
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query,
		uuid.UUID(a.ClientID), a.Tier, a.EffectiveFrom, to, a.CreatedAt,
	).Scan(&a.Seq)
	if err != nil {
		if postgres.IsConstraintConflict(err) {
			return sentinel.ErrConflict
		}
		if postgres.IsForeignKeyViolation(err) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("insert segment assignment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByClient(ctx context.Context, clientID id.ClientID) ([]*models.SegmentAssignment, error) {
	query := `SELECT ` + segmentColumns + ` FROM segment_assignments WHERE client_id = $1 ORDER BY seq`
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, uuid.UUID(clientID))
	if err != nil {
		return nil, fmt.Errorf("list segment assignments: %w", err)
	}
	defer rows.Close()

	var out []*models.SegmentAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan segment assignment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate segment assignments: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListForYear(ctx context.Context, year int, clientIDs []id.ClientID) (map[id.ClientID][]*models.SegmentAssignment, error) {
	query := `
		SELECT ` + segmentColumns + `
		FROM segment_assignments
		WHERE effective_from <= $2
		  AND (effective_to IS NULL OR effective_to >= $1)
		  AND ($3::uuid[] IS NULL OR client_id = ANY($3::uuid[]))
		ORDER BY client_id, seq
	`
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, start, end, postgres.ClientIDArray(clientIDs))
	if err != nil {
		return nil, fmt.Errorf("list segment assignments for year: %w", err)
	}
	defer rows.Close()

	out := make(map[id.ClientID][]*models.SegmentAssignment)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan segment assignment: %w", err)
		}
		out[a.ClientID] = append(out[a.ClientID], a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate segment assignments: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ClientsWithTier(ctx context.Context, tier string) ([]id.ClientID, error) {
	query := `SELECT DISTINCT client_id FROM segment_assignments WHERE tier = $1 ORDER BY client_id`
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, tier)
	if err != nil {
		return nil, fmt.Errorf("list clients with tier: %w", err)
	}
	defer rows.Close()

	var out []id.ClientID
	for rows.Next() {
		var raw uuid.UUID
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan client id: %w", err)
		}
		out = append(out, id.ClientID(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients with tier: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssignment(row rowScanner) (*models.SegmentAssignment, error) {
	var (
		a   models.SegmentAssignment
		raw uuid.UUID
		to  sql.NullTime
	)
	if err := row.Scan(&a.Seq, &raw, &a.Tier, &a.EffectiveFrom, &to, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.ClientID = id.ClientID(raw)
	a.EffectiveFrom = models.Day(a.EffectiveFrom)
	if to.Valid {
		end := models.Day(to.Time)
		a.EffectiveTo = &end
	}
	return &a, nil
}
