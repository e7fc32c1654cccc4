package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"clientpulse/internal/identity/models"
	"clientpulse/internal/platform/postgres"
	id "clientpulse/pkg/domain"
	"clientpulse/pkg/platform/sentinel"
	txcontext "clientpulse/pkg/platform/tx"
)

// PostgresStore persists clients in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed client store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const clientColumns = `id, canonical_name, country, current_segment, status, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, c *models.Client) error {
	query := `
		INSERT INTO clients (` + clientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(c.ID), c.CanonicalName, c.Country, c.CurrentSegment, string(c.Status), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, c *models.Client) error {
	query := `
		UPDATE clients
		SET country = $2, current_segment = $3, status = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(c.ID), c.Country, c.CurrentSegment, string(c.Status), c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update client rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, clientID id.ClientID) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
	return s.findOne(ctx, query, uuid.UUID(clientID))
}

func (s *PostgresStore) FindByName(ctx context.Context, name string) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE canonical_name = $1`
	return s.findOne(ctx, query, name)
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]*models.Client, error) {
	return s.list(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY canonical_name`)
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]*models.Client, error) {
	return s.list(ctx, `SELECT `+clientColumns+` FROM clients WHERE status = 'active' ORDER BY canonical_name`)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.Client, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, arg)
	c, err := scanClient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find client: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) list(ctx context.Context, query string) ([]*models.Client, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var out []*models.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (*models.Client, error) {
	var (
		c      models.Client
		raw    uuid.UUID
		status string
	)
	if err := row.Scan(&raw, &c.CanonicalName, &c.Country, &c.CurrentSegment, &status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.ID = id.ClientID(raw)
	c.Status = models.ClientStatus(status)
	return &c, nil
}
