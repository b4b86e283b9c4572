package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestStatsRepositorySiteTotals(t *testing.T) {
	db, mock, cleanup := newEventMetricsRepoMock(t)
	defer cleanup()
	repo := NewStatsRepository(db)

	rows := sqlmock.NewRows([]string{"bags", "weight", "duration"}).AddRow(42, 181.5, 960)
	mock.ExpectQuery("(?s)SELECT COALESCE\\(SUM\\((.+)FROM event_attendee_metrics m\\s+WHERE m.status IN \\('approved', 'adjusted'\\)").
		WillReturnRows(rows)

	bags, weight, duration, err := repo.SiteTotals(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42, bags)
	require.Equal(t, 181.5, weight)
	require.Equal(t, 960, duration)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepositoryTopContributors(t *testing.T) {
	db, mock, cleanup := newEventMetricsRepoMock(t)
	defer cleanup()
	repo := NewStatsRepository(db)

	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"user_id", "user_name", "events_attended", "total_bags", "total_weight_pounds"}).
		AddRow("usr-2", "Jess", 3, 12, 50.0).
		AddRow("usr-1", "Sam", 2, 9, 80.0)
	mock.ExpectQuery("(?s)SELECT m.user_id, u.user_name,(.+)ORDER BY total_bags DESC, total_weight_pounds DESC\\s+LIMIT 10").
		WithArgs(since).
		WillReturnRows(rows)

	entries, err := repo.TopContributors(context.Background(), since, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "usr-2", entries[0].UserID)
	require.Equal(t, 12, entries[0].TotalBags)
	require.NoError(t, mock.ExpectationsWereMet())
}
