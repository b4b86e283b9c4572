package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TrashMob-eco/trashmob-api/internal/models"
	appErrors "github.com/TrashMob-eco/trashmob-api/pkg/errors"
)

func newExportFixture() (*ExportService, *mockMetricsStore) {
	store := newMockMetricsStore()
	events := &mockMetricsEventReader{events: map[string]*models.Event{
		"evt-1": {ID: "evt-1", Name: "Beach Cleanup 2026", Status: models.EventStatusCompleted},
	}}
	return NewExportService(store, events, nil, nil, nil), store
}

func TestEventMetricsReportCSV(t *testing.T) {
	svc, store := newExportFixture()
	bags := 4
	weight := 10.0
	store.byID["sub-1"] = &models.EventAttendeeMetrics{
		ID:               "sub-1",
		EventID:          "evt-1",
		UserID:           "usr-1",
		BagsCollected:    &bags,
		PickedWeight:     &weight,
		PickedWeightUnit: models.WeightUnitPounds,
		Status:           models.MetricsStatusApproved,
	}

	result, err := svc.EventMetricsReport(context.Background(), "evt-1", ReportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasPrefix(result.Filename, "beach_cleanup_2026_metrics_"))
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))

	body := string(result.Payload)
	assert.Contains(t, body, "Attendee")
	assert.Contains(t, body, "user-usr-1")
	assert.Contains(t, body, "Totals (counted)")
}

func TestEventMetricsReportPDF(t *testing.T) {
	svc, _ := newExportFixture()

	result, err := svc.EventMetricsReport(context.Background(), "evt-1", ReportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.NotEmpty(t, result.Payload)
}

func TestEventMetricsReportUnknownEvent(t *testing.T) {
	svc, _ := newExportFixture()

	_, err := svc.EventMetricsReport(context.Background(), "evt-missing", ReportFormatCSV)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestEventMetricsReportUnsupportedFormat(t *testing.T) {
	svc, _ := newExportFixture()

	_, err := svc.EventMetricsReport(context.Background(), "evt-1", ReportFormat("xlsx"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
