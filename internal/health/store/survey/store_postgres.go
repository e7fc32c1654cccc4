package survey

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

func (s *PostgresStore) Append(ctx context.Context, r *models.SurveyResponse) error {
	query := `
		INSERT INTO survey_responses (client_id, score, responded_at, period, feedback)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(r.ClientID), r.Score, r.RespondedAt, r.Period, r.Feedback)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("append survey response: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByClient(ctx context.Context, clientID id.ClientID) ([]*models.SurveyResponse, error) {
	all, err := s.ListByClients(ctx, []id.ClientID{clientID})
	if err != nil {
		return nil, err
	}
	return all[clientID], nil
}

func (s *PostgresStore) ListByClients(ctx context.Context, clientIDs []id.ClientID) (map[id.ClientID][]*models.SurveyResponse, error) {
	query := `
		SELECT client_id, score, responded_at, period, feedback
		FROM survey_responses
		WHERE ($1::uuid[] IS NULL OR client_id = ANY($1::uuid[]))
		ORDER BY client_id, responded_at, id
	`
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, postgres.ClientIDArray(clientIDs))
	if err != nil {
		return nil, fmt.Errorf("list survey responses: %w", err)
	}
	defer rows.Close()

	out := make(map[id.ClientID][]*models.SurveyResponse)
	for rows.Next() {
		var (
			r   models.SurveyResponse
			raw uuid.UUID
		)
		if err := rows.Scan(&raw, &r.Score, &r.RespondedAt, &r.Period, &r.Feedback); err != nil {
			return nil, fmt.Errorf("scan survey response: %w", err)
		}
		r.ClientID = id.ClientID(raw)
		r.RespondedAt = r.RespondedAt.UTC()
		out[r.ClientID] = append(out[r.ClientID], &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate survey responses: %w", err)
	}
	return out, nil
}
