package snapshot

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clientpulse/internal/health/models"
	id "clientpulse/pkg/domain"
)

func snap(clientID id.ClientID, generation int64, at time.Time, total int) *models.Snapshot {
	return &models.Snapshot{
		ID:             id.NewSnapshotID(),
		ClientID:       clientID,
		Date:           time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC),
		TotalScore:     total,
		Status:         models.StatusHealthy,
		FormulaVersion: "v2",
		Generation:     generation,
		RefreshedAt:    at,
	}
}

func TestInMemoryHistoryIsAppendOnly(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	cid := id.NewClientID()
	jan := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 10, 8, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	require.NoError(t, s.AppendBatch(ctx, []*models.Snapshot{snap(cid, 1, jan, 70)}))
	require.NoError(t, s.AppendBatch(ctx, []*models.Snapshot{snap(cid, 2, feb, 72), snap(id.NewClientID(), 2, feb, 10)}))
	require.NoError(t, s.AppendBatch(ctx, []*models.Snapshot{snap(cid, 3, mar, 75)}))

	all, err := s.History(ctx, cid, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int{70, 72, 75}, []int{all[0].TotalScore, all[1].TotalScore, all[2].TotalScore})

	window, err := s.History(ctx, cid, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, int64(2), window[0].Generation)

	latest, err := s.LatestAll(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	for _, l := range latest {
		if l.ClientID == cid {
			assert.Equal(t, 75, l.TotalScore)
		}
	}
}

func TestPostgresAppendAndHistory(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cid := id.NewClientID()
	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	s := snap(cid, 4, at, 79)
	nps := 50.0
	s.Inputs = models.Inputs{NPSScore: &nps, NPSResponses: 4, NPSQuarter: "2024-Q2"}

	mock.ExpectExec("INSERT INTO health_snapshots").WillReturnResult(sqlmock.NewResult(0, 1))
	store := NewPostgres(db)
	require.NoError(t, store.AppendBatch(context.Background(), []*models.Snapshot{s}))

	inputs, err := json.Marshal(s.Inputs)
	require.NoError(t, err)
	mock.ExpectQuery("SELECT (.+) FROM health_snapshots WHERE client_id = \\$1").
		WithArgs(cid.String(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "client_id", "snapshot_date", "nps_component", "compliance_component",
			"aging_component", "total_score", "status", "formula_version", "inputs", "generation", "refreshed_at"}).
			AddRow(s.ID.String(), cid.String(), s.Date, 30.0, 40.0, 9.0, 79, "healthy", "v2", inputs, int64(4), at))

	history, err := store.History(context.Background(), cid, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusHealthy, history[0].Status)
	require.NotNil(t, history[0].Inputs.NPSScore)
	assert.Equal(t, 50.0, *history[0].Inputs.NPSScore)
	require.NoError(t, mock.ExpectationsWereMet())
}
