package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"clientpulse/internal/health/models"
	id "clientpulse/pkg/domain"
	txcontext "clientpulse/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const snapshotColumns = `id, client_id, snapshot_date, nps_component, compliance_component, aging_component,
	total_score, status, formula_version, inputs, generation, refreshed_at`

// AppendBatch inserts snapshots. Run inside the refresh transaction so a
// failed pass appends nothing.
func (s *PostgresStore) AppendBatch(ctx context.Context, snapshots []*models.Snapshot) error {
	query := `INSERT INTO health_snapshots (` + snapshotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	exec := txcontext.Executor(ctx, s.db)
	for _, snap := range snapshots {
		inputs, err := json.Marshal(snap.Inputs)
		if err != nil {
			return fmt.Errorf("marshal snapshot inputs: %w", err)
		}
		_, err = exec.ExecContext(ctx, query,
			uuid.UUID(snap.ID), uuid.UUID(snap.ClientID), snap.Date,
			snap.NPSComponent, snap.ComplianceComponent, snap.AgingComponent,
			snap.TotalScore, string(snap.Status), snap.FormulaVersion, inputs,
			snap.Generation, snap.RefreshedAt,
		)
		if err != nil {
			return fmt.Errorf("append health snapshot: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) History(ctx context.Context, clientID id.ClientID, from, to time.Time) ([]*models.Snapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM health_snapshots
		WHERE client_id = $1
		  AND ($2::date IS NULL OR snapshot_date >= $2::date)
		  AND ($3::date IS NULL OR snapshot_date <= $3::date)
		ORDER BY refreshed_at, id
	`
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, uuid.UUID(clientID), nullDate(from), nullDate(to))
	if err != nil {
		return nil, fmt.Errorf("list health history: %w", err)
	}
	return collect(rows)
}

func (s *PostgresStore) LatestAll(ctx context.Context) ([]*models.Snapshot, error) {
	query := `
		SELECT DISTINCT ON (client_id) ` + snapshotColumns + `
		FROM health_snapshots
		ORDER BY client_id, refreshed_at DESC, generation DESC
	`
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list latest health snapshots: %w", err)
	}
	return collect(rows)
}

func collect(rows *sql.Rows) ([]*models.Snapshot, error) {
	defer rows.Close()
	var out []*models.Snapshot
	for rows.Next() {
		var (
			snap      models.Snapshot
			rawID     uuid.UUID
			rawClient uuid.UUID
			status    string
			inputs    []byte
		)
		if err := rows.Scan(&rawID, &rawClient, &snap.Date,
			&snap.NPSComponent, &snap.ComplianceComponent, &snap.AgingComponent,
			&snap.TotalScore, &status, &snap.FormulaVersion, &inputs,
			&snap.Generation, &snap.RefreshedAt,
		); err != nil {
			return nil, fmt.Errorf("scan health snapshot: %w", err)
		}
		if err := json.Unmarshal(inputs, &snap.Inputs); err != nil {
			return nil, fmt.Errorf("decode snapshot inputs: %w", err)
		}
		snap.ID = id.SnapshotID(rawID)
		snap.ClientID = id.ClientID(rawClient)
		snap.Status = models.Status(status)
		out = append(out, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate health snapshots: %w", err)
	}
	return out, nil
}

func nullDate(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
