package result

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"clientpulse/internal/compliance/models"
	"clientpulse/internal/platform/postgres"
	id "clientpulse/pkg/domain"
	txcontext "clientpulse/pkg/platform/tx"
)

// PostgresStore persists derived compliance. Callers run Replace inside the
// refresh transaction so the overwrite is atomic with the health append.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Replace(ctx context.Context, year int, clientIDs []id.ClientID, results []*models.Result, generation int64) error {
	exec := txcontext.Executor(ctx, s.db)
	filter := postgres.ClientIDArray(clientIDs)

	if _, err := exec.ExecContext(ctx,
		`DELETE FROM compliance_records WHERE year = $1 AND ($2::uuid[] IS NULL OR client_id = ANY($2::uuid[]))`,
		year, filter); err != nil {
		return fmt.Errorf("clear compliance records: %w", err)
	}
	if _, err := exec.ExecContext(ctx,
		`DELETE FROM compliance_summaries WHERE year = $1 AND ($2::uuid[] IS NULL OR client_id = ANY($2::uuid[]))`,
		year, filter); err != nil {
		return fmt.Errorf("clear compliance summaries: %w", err)
	}

	for _, r := range results {
		sum := r.Summary
		var score sql.NullInt64
		if sum.OverallScore != nil {
			score = sql.NullInt64{Int64: int64(*sum.OverallScore), Valid: true}
		}
		if _, err := exec.ExecContext(ctx, `
			INSERT INTO compliance_summaries
				(client_id, year, tier, overall_score, overall_status, no_requirements, ambiguous_tier, generation)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			uuid.UUID(sum.ClientID), sum.Year, sum.Tier, score, string(sum.OverallStatus),
			sum.NoRequirements, sum.AmbiguousTier, generation,
		); err != nil {
			return fmt.Errorf("insert compliance summary: %w", err)
		}
	}

	if err := insertRecords(ctx, exec, results, generation); err != nil {
		return err
	}
	return nil
}

// insertRecords writes all records in one statement by unnesting parallel arrays.
func insertRecords(ctx context.Context, exec txcontext.Querier, results []*models.Result, generation int64) error {
	var (
		clients  []string
		years    []int64
		codes    []string
		expected []int64
		actual   []int64
		pcts     []int64
		statuses []string
	)
	for _, r := range results {
		for _, rec := range r.Records {
			clients = append(clients, rec.ClientID.String())
			years = append(years, int64(rec.Year))
			codes = append(codes, rec.EventType)
			expected = append(expected, int64(rec.Expected))
			actual = append(actual, int64(rec.Actual))
			pcts = append(pcts, int64(rec.Percentage))
			statuses = append(statuses, string(rec.Status))
		}
	}
	if len(clients) == 0 {
		return nil
	}
	query := `
		INSERT INTO compliance_records
			(client_id, year, event_type, expected, actual, percentage, status, generation)
		SELECT c, y, e, x, a, p, s, $8
		FROM unnest($1::uuid[], $2::int[], $3::text[], $4::int[], $5::int[], $6::int[], $7::text[])
			AS t(c, y, e, x, a, p, s)
	`
	if _, err := exec.ExecContext(ctx, query,
		pq.Array(clients), pq.Array(years), pq.Array(codes),
		pq.Array(expected), pq.Array(actual), pq.Array(pcts), pq.Array(statuses),
		generation,
	); err != nil {
		return fmt.Errorf("insert compliance records: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListYear(ctx context.Context, year int) ([]*models.Result, error) {
	return s.load(ctx, "WHERE year = $1", year)
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]*models.Result, error) {
	return s.load(ctx, "")
}

func (s *PostgresStore) load(ctx context.Context, where string, args ...any) ([]*models.Result, error) {
	exec := txcontext.Executor(ctx, s.db)

	rows, err := exec.QueryContext(ctx, `
		SELECT client_id, year, tier, overall_score, overall_status, no_requirements, ambiguous_tier
		FROM compliance_summaries `+where+`
		ORDER BY year, client_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list compliance summaries: %w", err)
	}
	type key struct {
		client id.ClientID
		year   int
	}
	var out []*models.Result
	byKey := make(map[key]*models.Result)
	for rows.Next() {
		var (
			sum    models.Summary
			raw    uuid.UUID
			score  sql.NullInt64
			status string
		)
		if err := rows.Scan(&raw, &sum.Year, &sum.Tier, &score, &status, &sum.NoRequirements, &sum.AmbiguousTier); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan compliance summary: %w", err)
		}
		sum.ClientID = id.ClientID(raw)
		sum.OverallStatus = models.OverallStatus(status)
		if score.Valid {
			v := int(score.Int64)
			sum.OverallScore = &v
		}
		r := &models.Result{Summary: sum, Records: []models.Record{}}
		out = append(out, r)
		byKey[key{sum.ClientID, sum.Year}] = r
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate compliance summaries: %w", err)
	}
	rows.Close()

	recRows, err := exec.QueryContext(ctx, `
		SELECT client_id, year, event_type, expected, actual, percentage, status
		FROM compliance_records `+where+`
		ORDER BY year, client_id, event_type`, args...)
	if err != nil {
		return nil, fmt.Errorf("list compliance records: %w", err)
	}
	defer recRows.Close()
	for recRows.Next() {
		var (
			rec    models.Record
			raw    uuid.UUID
			status string
		)
		if err := recRows.Scan(&raw, &rec.Year, &rec.EventType, &rec.Expected, &rec.Actual, &rec.Percentage, &status); err != nil {
			return nil, fmt.Errorf("scan compliance record: %w", err)
		}
		rec.ClientID = id.ClientID(raw)
		rec.Status = models.Status(status)
		if r, ok := byKey[key{rec.ClientID, rec.Year}]; ok {
			r.Records = append(r.Records, rec)
		}
	}
	if err := recRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate compliance records: %w", err)
	}
	return out, nil
}
