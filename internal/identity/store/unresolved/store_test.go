package unresolved

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryQueue(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, "Acme Corp", "meetings", t0))
	require.NoError(t, s.Record(ctx, "Acme Corp", "meetings", t0.Add(time.Hour)))
	require.NoError(t, s.Record(ctx, "Acme Corp", "surveys", t0))
	require.NoError(t, s.Record(ctx, "Unknown", "aging", t0))

	open, err := s.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, open, 3)
	assert.Equal(t, "Acme Corp", open[0].RawName)
	assert.Equal(t, 2, open[0].Occurrences)
	assert.Equal(t, t0, open[0].FirstSeen)

	n, err := s.MarkResolved(ctx, []string{"Acme Corp"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	open, err = s.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "Unknown", open[0].RawName)

	all, err := s.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	t.Run("reopens on new occurrence", func(t *testing.T) {
		require.NoError(t, s.Record(ctx, "Acme Corp", "surveys", t0.Add(2*time.Hour)))
		open, err := s.List(ctx, false)
		require.NoError(t, err)
		assert.Len(t, open, 2)
	})
}

func TestPostgresMarkResolvedUsesArray(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE unresolved_names SET resolved = TRUE WHERE raw_name = ANY").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := NewPostgres(db).MarkResolved(context.Background(), []string{"Acme", "ACME Ltd"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMarkResolvedEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	n, err := NewPostgres(db).MarkResolved(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO unresolved_names .* ON CONFLICT").
		WithArgs("Acme", "meetings", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewPostgres(db).Record(context.Background(), "Acme", "meetings", now))
	require.NoError(t, mock.ExpectationsWereMet())
}
