package client

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clientpulse/internal/identity/models"
	id "clientpulse/pkg/domain"
	"clientpulse/pkg/platform/sentinel"
)

func TestPostgresCreateConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	c, err := models.NewClient(id.NewClientID(), "Acme", "AU", "Gold", time.Now())
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO clients").WillReturnError(&pgconn.PgError{Code: "23505"})

	err = NewPostgres(db).Create(context.Background(), c)
	assert.ErrorIs(t, err, sentinel.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindByName(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	clientID := id.NewClientID()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM clients WHERE canonical_name = \\$1").
		WithArgs("Acme").
		WillReturnRows(sqlmock.NewRows([]string{"id", "canonical_name", "country", "current_segment", "status", "created_at", "updated_at"}).
			AddRow(uuid.UUID(clientID).String(), "Acme", "AU", "Gold", "active", ts, ts))

	c, err := NewPostgres(db).FindByName(context.Background(), "Acme")
	require.NoError(t, err)
	assert.Equal(t, clientID, c.ID)
	assert.True(t, c.IsActive())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM clients WHERE id = \\$1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = NewPostgres(db).FindByID(context.Background(), id.NewClientID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPostgresUpdateMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE clients").WillReturnResult(sqlmock.NewResult(0, 0))

	c, err := models.NewClient(id.NewClientID(), "Acme", "AU", "", time.Now())
	require.NoError(t, err)
	assert.ErrorIs(t, NewPostgres(db).Update(context.Background(), c), sentinel.ErrNotFound)
}
