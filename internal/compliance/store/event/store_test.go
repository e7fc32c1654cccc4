package event

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clientpulse/internal/compliance/models"
	id "clientpulse/pkg/domain"
	"clientpulse/pkg/platform/sentinel"
)

func newEvent(t *testing.T, ext string, clientID id.ClientID, code string, date time.Time, completed bool, now time.Time) *models.EngagementEvent {
	t.Helper()
	e, err := models.NewEngagementEvent(ext, clientID, code, date, completed, now)
	require.NoError(t, err)
	return e
}

func TestInMemoryUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	clientID := id.NewClientID()
	t0 := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	first := newEvent(t, "mtg-1", clientID, "QBR", t0, true, t0)
	created, err := s.Upsert(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	again := newEvent(t, "mtg-1", clientID, "QBR", t0, true, t0.Add(time.Hour))
	created, err = s.Upsert(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, t0, *again.CompletedAt, "first completion time survives re-sync")

	counts, err := s.CountCompleted(ctx, 2024, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[clientID]["QBR"])
}

func TestInMemoryCountCompleted(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	a, b := id.NewClientID(), id.NewClientID()
	now := time.Now()

	for _, e := range []*models.EngagementEvent{
		newEvent(t, "1", a, "QBR", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), true, now),
		newEvent(t, "2", a, "QBR", time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC), true, now),
		newEvent(t, "3", a, "QBR", time.Date(2024, 7, 5, 0, 0, 0, 0, time.UTC), false, now),
		newEvent(t, "4", a, "QBR", time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), true, now),
		newEvent(t, "5", b, "HealthCheck", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true, now),
	} {
		_, err := s.Upsert(ctx, e)
		require.NoError(t, err)
	}

	counts, err := s.CountCompleted(ctx, 2024, []id.ClientID{a})
	require.NoError(t, err)
	assert.Equal(t, map[id.ClientID]map[string]int{a: {"QBR": 2}}, counts)

	list, err := s.ListByClient(ctx, a, 2024)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "1", list[0].ExternalID)

	require.NoError(t, s.Delete(ctx, "1"))
	assert.ErrorIs(t, s.Delete(ctx, "1"), sentinel.ErrNotFound)
	_, err = s.FindByExternalID(ctx, "1")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPostgresUpsertReportsInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	e := newEvent(t, "mtg-9", id.NewClientID(), "QBR", now, true, now)
	stored := id.NewEventID()

	mock.ExpectQuery("INSERT INTO engagement_events (.+) ON CONFLICT \\(external_id\\)").
		WillReturnRows(sqlmock.NewRows([]string{"id", "completed_at", "inserted"}).
			AddRow(stored.String(), now.Add(-time.Hour), false))

	created, err := NewPostgres(db).Upsert(context.Background(), e)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, stored, e.ID)
	assert.Equal(t, now.Add(-time.Hour), *e.CompletedAt)
}

func TestPostgresCountCompleted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	clientID := id.NewClientID()
	mock.ExpectQuery("SELECT client_id, event_type, COUNT").
		WithArgs(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), nil).
		WillReturnRows(sqlmock.NewRows([]string{"client_id", "event_type", "count"}).AddRow(clientID.String(), "QBR", 3))

	counts, err := NewPostgres(db).CountCompleted(context.Background(), 2024, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, counts[clientID]["QBR"])
}
