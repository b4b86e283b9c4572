package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/TrashMob-eco/trashmob-api/internal/models"
)

func newEventMetricsRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var eventMetricsRowColumns = []string{
	"id", "event_id", "user_id", "bags_collected", "picked_weight", "picked_weight_unit", "duration_minutes", "notes", "status",
	"adjusted_bags_collected", "adjusted_picked_weight", "adjusted_picked_weight_unit", "adjusted_duration_minutes", "adjustment_reason", "rejection_reason",
	"reviewed_by", "reviewed_at", "created_by", "created_at", "last_updated_by", "updated_at",
}

func pendingMetricsRow(id, eventID, userID string) []driver.Value {
	now := time.Now().UTC()
	return []driver.Value{
		id, eventID, userID, 4, 10.0, string(models.WeightUnitPounds), 30, nil, string(models.MetricsStatusPending),
		nil, nil, nil, nil, nil, nil,
		nil, nil, userID, now, userID, now,
	}
}

func TestEventMetricsRepositoryFindByEventAndUser(t *testing.T) {
	db, mock, cleanup := newEventMetricsRepoMock(t)
	defer cleanup()
	repo := NewEventMetricsRepository(db)

	rows := sqlmock.NewRows(eventMetricsRowColumns).
		AddRow(pendingMetricsRow("sub-1", "evt-1", "usr-1")...)
	mock.ExpectQuery("(?s)SELECT (.+) FROM event_attendee_metrics WHERE event_id = \\$1 AND user_id = \\$2 LIMIT 1").
		WithArgs("evt-1", "usr-1").
		WillReturnRows(rows)

	m, err := repo.FindByEventAndUser(context.Background(), "evt-1", "usr-1")
	require.NoError(t, err)
	require.Equal(t, "sub-1", m.ID)
	require.Equal(t, models.MetricsStatusPending, m.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventMetricsRepositoryFindByEventAndUserMissing(t *testing.T) {
	db, mock, cleanup := newEventMetricsRepoMock(t)
	defer cleanup()
	repo := NewEventMetricsRepository(db)

	mock.ExpectQuery("(?s)SELECT (.+) FROM event_attendee_metrics WHERE event_id = \\$1 AND user_id = \\$2 LIMIT 1").
		WithArgs("evt-1", "usr-404").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEventAndUser(context.Background(), "evt-1", "usr-404")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventMetricsRepositoryExists(t *testing.T) {
	db, mock, cleanup := newEventMetricsRepoMock(t)
	defer cleanup()
	repo := NewEventMetricsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM event_attendee_metrics WHERE event_id = $1 AND user_id = $2)")).
		WithArgs("evt-1", "usr-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.Exists(context.Background(), "evt-1", "usr-1")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventMetricsRepositoryListPendingByEvent(t *testing.T) {
	db, mock, cleanup := newEventMetricsRepoMock(t)
	defer cleanup()
	repo := NewEventMetricsRepository(db)

	rows := sqlmock.NewRows(eventMetricsRowColumns).
		AddRow(pendingMetricsRow("sub-1", "evt-1", "usr-1")...).
		AddRow(pendingMetricsRow("sub-2", "evt-1", "usr-2")...)
	mock.ExpectQuery("(?s)SELECT (.+) FROM event_attendee_metrics\\s+WHERE event_id = \\$1 AND status = \\$2\\s+ORDER BY created_at ASC").
		WithArgs("evt-1", models.MetricsStatusPending).
		WillReturnRows(rows)

	pending, err := repo.ListPendingByEvent(context.Background(), "evt-1")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, "sub-1", pending[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventMetricsRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newEventMetricsRepoMock(t)
	defer cleanup()
	repo := NewEventMetricsRepository(db)

	mock.ExpectExec("INSERT INTO event_attendee_metrics").
		WillReturnResult(sqlmock.NewResult(0, 1))

	bags := 4
	m := &models.EventAttendeeMetrics{
		EventID:          "evt-1",
		UserID:           "usr-1",
		BagsCollected:    &bags,
		PickedWeightUnit: models.WeightUnitPounds,
		Status:           models.MetricsStatusPending,
		CreatedBy:        "usr-1",
		LastUpdatedBy:    "usr-1",
	}
	err := repo.Create(context.Background(), m)
	require.NoError(t, err)
	require.NotEmpty(t, m.ID)
	require.False(t, m.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventMetricsRepositoryUpdateStampsTimestamp(t *testing.T) {
	db, mock, cleanup := newEventMetricsRepoMock(t)
	defer cleanup()
	repo := NewEventMetricsRepository(db)

	mock.ExpectExec("UPDATE event_attendee_metrics SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	before := time.Now().UTC().Add(-time.Hour)
	m := &models.EventAttendeeMetrics{
		ID:               "sub-1",
		EventID:          "evt-1",
		UserID:           "usr-1",
		PickedWeightUnit: models.WeightUnitPounds,
		Status:           models.MetricsStatusApproved,
		UpdatedAt:        before,
	}
	err := repo.Update(context.Background(), m)
	require.NoError(t, err)
	require.True(t, m.UpdatedAt.After(before))
	require.NoError(t, mock.ExpectationsWereMet())
}
