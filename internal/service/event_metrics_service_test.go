package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TrashMob-eco/trashmob-api/internal/models"
	appErrors "github.com/TrashMob-eco/trashmob-api/pkg/errors"
)

type mockMetricsStore struct {
	byID       map[string]*models.EventAttendeeMetrics
	nextID     int
	updateErr  error
	failAfterN int // when > 0, Update fails once n successful updates have run
	updates    int
}

func newMockMetricsStore() *mockMetricsStore {
	return &mockMetricsStore{byID: make(map[string]*models.EventAttendeeMetrics)}
}

func (m *mockMetricsStore) FindByID(ctx context.Context, id string) (*models.EventAttendeeMetrics, error) {
	if stored, ok := m.byID[id]; ok {
		clone := *stored
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockMetricsStore) FindByEventAndUser(ctx context.Context, eventID, userID string) (*models.EventAttendeeMetrics, error) {
	for _, stored := range m.byID {
		if stored.EventID == eventID && stored.UserID == userID {
			clone := *stored
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockMetricsStore) Exists(ctx context.Context, eventID, userID string) (bool, error) {
	_, err := m.FindByEventAndUser(ctx, eventID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (m *mockMetricsStore) ListByEvent(ctx context.Context, eventID string) ([]models.EventAttendeeMetricsRecord, error) {
	var records []models.EventAttendeeMetricsRecord
	for _, stored := range m.byID {
		if stored.EventID != eventID {
			continue
		}
		records = append(records, models.EventAttendeeMetricsRecord{
			EventAttendeeMetrics: *stored,
			UserName:             "user-" + stored.UserID,
		})
	}
	return records, nil
}

func (m *mockMetricsStore) ListPendingByEvent(ctx context.Context, eventID string) ([]models.EventAttendeeMetrics, error) {
	var pending []models.EventAttendeeMetrics
	for _, stored := range m.byID {
		if stored.EventID == eventID && stored.Status == models.MetricsStatusPending {
			pending = append(pending, *stored)
		}
	}
	return pending, nil
}

func (m *mockMetricsStore) ListCountedByUser(ctx context.Context, userID string) ([]models.EventAttendeeMetricsRecord, error) {
	var records []models.EventAttendeeMetricsRecord
	for _, stored := range m.byID {
		if stored.UserID != userID || !stored.Counted() {
			continue
		}
		records = append(records, models.EventAttendeeMetricsRecord{
			EventAttendeeMetrics: *stored,
			UserName:             "user-" + stored.UserID,
			EventName:            "event-" + stored.EventID,
		})
	}
	return records, nil
}

func (m *mockMetricsStore) Create(ctx context.Context, sub *models.EventAttendeeMetrics) error {
	m.nextID++
	sub.ID = fmt.Sprintf("sub-%d", m.nextID)
	clone := *sub
	m.byID[sub.ID] = &clone
	return nil
}

func (m *mockMetricsStore) Update(ctx context.Context, sub *models.EventAttendeeMetrics) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if m.failAfterN > 0 && m.updates >= m.failAfterN {
		return errors.New("connection reset")
	}
	m.updates++
	clone := *sub
	m.byID[sub.ID] = &clone
	return nil
}

type mockMetricsEventReader struct {
	events map[string]*models.Event
}

func (m *mockMetricsEventReader) FindByID(ctx context.Context, id string) (*models.Event, error) {
	if event, ok := m.events[id]; ok {
		return event, nil
	}
	return nil, sql.ErrNoRows
}

type mockMetricsAttendeeReader struct {
	attending map[string]bool // key eventID:userID
}

func (m *mockMetricsAttendeeReader) IsAttending(ctx context.Context, eventID, userID string) (bool, error) {
	return m.attending[eventID+":"+userID], nil
}

type captureNotifier struct {
	submitted []string
	reviewed  []string
}

func (n *captureNotifier) MetricsSubmitted(m *models.EventAttendeeMetrics) {
	n.submitted = append(n.submitted, m.ID)
}

func (n *captureNotifier) MetricsReviewed(m *models.EventAttendeeMetrics) {
	n.reviewed = append(n.reviewed, m.ID)
}

type captureInvalidator struct {
	calls int
}

func (i *captureInvalidator) InvalidateStats(ctx context.Context) {
	i.calls++
}

func newMetricsFixture() (*EventMetricsService, *mockMetricsStore, *captureNotifier, *captureInvalidator) {
	store := newMockMetricsStore()
	events := &mockMetricsEventReader{events: map[string]*models.Event{
		"evt-1": {ID: "evt-1", Name: "Beach Cleanup", Status: models.EventStatusActive},
	}}
	attendees := &mockMetricsAttendeeReader{attending: map[string]bool{
		"evt-1:usr-1": true,
		"evt-1:usr-2": true,
		"evt-1:usr-3": true,
		"evt-1:usr-4": true,
	}}
	notifier := &captureNotifier{}
	invalidator := &captureInvalidator{}
	svc := NewEventMetricsService(store, events, attendees, notifier, invalidator, nil, nil)
	return svc, store, notifier, invalidator
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestSubmitCreatesPendingSubmission(t *testing.T) {
	svc, store, notifier, _ := newMetricsFixture()

	sub, err := svc.Submit(context.Background(), "evt-1", "usr-1", SubmitMetricsRequest{
		BagsCollected:    intPtr(4),
		PickedWeight:     floatPtr(10),
		PickedWeightUnit: "pounds",
		DurationMinutes:  intPtr(30),
	})
	require.NoError(t, err)
	assert.Equal(t, models.MetricsStatusPending, sub.Status)
	assert.Equal(t, "usr-1", sub.CreatedBy)
	assert.Len(t, store.byID, 1)
	assert.Equal(t, []string{sub.ID}, notifier.submitted)
}

func TestSubmitRejectsNonAttendee(t *testing.T) {
	svc, _, _, _ := newMetricsFixture()

	_, err := svc.Submit(context.Background(), "evt-1", "usr-99", SubmitMetricsRequest{BagsCollected: intPtr(1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrNotAttendee)
}

func TestSubmitRejectsUnknownEvent(t *testing.T) {
	svc, _, _, _ := newMetricsFixture()

	_, err := svc.Submit(context.Background(), "evt-missing", "usr-1", SubmitMetricsRequest{BagsCollected: intPtr(1)})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestSubmitRequiresUnitWhenWeightSet(t *testing.T) {
	svc, _, _, _ := newMetricsFixture()

	_, err := svc.Submit(context.Background(), "evt-1", "usr-1", SubmitMetricsRequest{PickedWeight: floatPtr(5)})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

// A second submit for the same pair updates the pending record in place.
func TestSubmitOverwritesPendingRecord(t *testing.T) {
	svc, store, _, _ := newMetricsFixture()

	first, err := svc.Submit(context.Background(), "evt-1", "usr-1", SubmitMetricsRequest{BagsCollected: intPtr(2)})
	require.NoError(t, err)

	second, err := svc.Submit(context.Background(), "evt-1", "usr-1", SubmitMetricsRequest{BagsCollected: intPtr(7)})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, store.byID, 1)
	assert.Equal(t, 7, *store.byID[first.ID].BagsCollected)
}

// Once reviewed, submit for the same pair fails and the record is unchanged.
func TestSubmitAfterReviewFails(t *testing.T) {
	svc, store, _, _ := newMetricsFixture()

	sub, err := svc.Submit(context.Background(), "evt-1", "usr-1", SubmitMetricsRequest{BagsCollected: intPtr(3)})
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), sub.ID, "rev-1")
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), "evt-1", "usr-1", SubmitMetricsRequest{BagsCollected: intPtr(9)})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrAlreadyReviewed)
	assert.Equal(t, 3, *store.byID[sub.ID].BagsCollected)
	assert.Equal(t, models.MetricsStatusApproved, store.byID[sub.ID].Status)
}

// Approve, reject and adjust each require the pending status.
func TestReviewTransitionsRequirePending(t *testing.T) {
	svc, _, _, _ := newMetricsFixture()

	sub, err := svc.Submit(context.Background(), "evt-1", "usr-1", SubmitMetricsRequest{BagsCollected: intPtr(3)})
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), sub.ID, "rev-1")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), sub.ID, "rev-1")
	assert.ErrorIs(t, err, appErrors.ErrNotPending)
	_, err = svc.Reject(context.Background(), sub.ID, "bad data", "rev-1")
	assert.ErrorIs(t, err, appErrors.ErrNotPending)
	_, err = svc.Adjust(context.Background(), sub.ID, AdjustMetricsRequest{BagsCollected: intPtr(1)}, "recount", "rev-1")
	assert.ErrorIs(t, err, appErrors.ErrNotPending)
}

func TestRejectRequiresReason(t *testing.T) {
	svc, _, _, _ := newMetricsFixture()

	sub, err := svc.Submit(context.Background(), "evt-1", "usr-1", SubmitMetricsRequest{BagsCollected: intPtr(3)})
	require.NoError(t, err)

	_, err = svc.Reject(context.Background(), sub.ID, "", "rev-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	rejected, err := svc.Reject(context.Background(), sub.ID, "duplicate report", "rev-1")
	require.NoError(t, err)
	assert.Equal(t, models.MetricsStatusRejected, rejected.Status)
	assert.Equal(t, "duplicate report", *rejected.RejectionReason)
	assert.Equal(t, "rev-1", *rejected.ReviewedBy)
}

// A plain-slot value lands in the adjusted column when no adjusted slot is set.
func TestAdjustPlainSlotFallback(t *testing.T) {
	svc, _, _, _ := newMetricsFixture()

	sub, err := svc.Submit(context.Background(), "evt-1", "usr-1", SubmitMetricsRequest{BagsCollected: intPtr(3)})
	require.NoError(t, err)

	adjusted, err := svc.Adjust(context.Background(), sub.ID, AdjustMetricsRequest{BagsCollected: intPtr(5)}, "recount", "rev-1")
	require.NoError(t, err)
	require.NotNil(t, adjusted.AdjustedBagsCollected)
	assert.Equal(t, 5, *adjusted.AdjustedBagsCollected)
	assert.Equal(t, models.MetricsStatusAdjusted, adjusted.Status)
}

func TestAdjustAdjustedSlotWins(t *testing.T) {
	svc, _, _, _ := newMetricsFixture()

	sub, err := svc.Submit(context.Background(), "evt-1", "usr-1", SubmitMetricsRequest{BagsCollected: intPtr(3)})
	require.NoError(t, err)

	adjusted, err := svc.Adjust(context.Background(), sub.ID, AdjustMetricsRequest{
		BagsCollected:         intPtr(4),
		AdjustedBagsCollected: intPtr(6),
	}, "recount", "rev-1")
	require.NoError(t, err)
	assert.Equal(t, 6, *adjusted.AdjustedBagsCollected)
}

// Fixed-constant conversion.
func TestToPounds(t *testing.T) {
	assert.InDelta(t, 22.0462, models.ToPounds(10, models.WeightUnitKilograms), 1e-9)
	assert.Equal(t, 10.0, models.ToPounds(10, models.WeightUnitPounds))
}

// Totals use effective values over counted submissions only.
func TestCalculateTotalsUsesEffectiveValues(t *testing.T) {
	svc, _, _, _ := newMetricsFixture()
	ctx := context.Background()

	approved, err := svc.Submit(ctx, "evt-1", "usr-1", SubmitMetricsRequest{BagsCollected: intPtr(3)})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, approved.ID, "rev-1")
	require.NoError(t, err)

	adjusted, err := svc.Submit(ctx, "evt-1", "usr-2", SubmitMetricsRequest{BagsCollected: intPtr(2)})
	require.NoError(t, err)
	_, err = svc.Adjust(ctx, adjusted.ID, AdjustMetricsRequest{AdjustedBagsCollected: intPtr(5)}, "recount", "rev-1")
	require.NoError(t, err)

	// A still-pending submission stays out of the counted totals.
	_, err = svc.Submit(ctx, "evt-1", "usr-3", SubmitMetricsRequest{BagsCollected: intPtr(100)})
	require.NoError(t, err)

	totals, err := svc.CalculateTotals(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, 8, totals.TotalBagsCollected)
	assert.Equal(t, 2, totals.ApprovedSubmissions)
	assert.Equal(t, 1, totals.PendingSubmissions)
	assert.Equal(t, 3, totals.TotalSubmissions)
}

func TestCalculateTotalsConvertsKilograms(t *testing.T) {
	svc, _, _, _ := newMetricsFixture()
	ctx := context.Background()

	sub, err := svc.Submit(ctx, "evt-1", "usr-1", SubmitMetricsRequest{
		PickedWeight:     floatPtr(10),
		PickedWeightUnit: "kilograms",
	})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, sub.ID, "rev-1")
	require.NoError(t, err)

	totals, err := svc.CalculateTotals(ctx, "evt-1")
	require.NoError(t, err)
	assert.InDelta(t, 22.0462, totals.TotalWeightPounds, 1e-9)
}

func TestCalculateTotalsEmptyEvent(t *testing.T) {
	svc, _, _, _ := newMetricsFixture()

	totals, err := svc.CalculateTotals(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Equal(t, 0, totals.TotalSubmissions)
	assert.Equal(t, 0, totals.TotalBagsCollected)
	assert.Equal(t, 0.0, totals.TotalWeightPounds)
}

// Contributor ordering is bags desc, weight desc as tiebreak.
func TestPublicSummaryOrdering(t *testing.T) {
	svc, _, _, _ := newMetricsFixture()
	ctx := context.Background()

	submit := func(user string, bags int, pounds float64) {
		sub, err := svc.Submit(ctx, "evt-1", user, SubmitMetricsRequest{
			BagsCollected:    intPtr(bags),
			PickedWeight:     floatPtr(pounds),
			PickedWeightUnit: "pounds",
		})
		require.NoError(t, err)
		_, err = svc.Approve(ctx, sub.ID, "rev-1")
		require.NoError(t, err)
	}
	submit("usr-1", 5, 10)
	submit("usr-2", 5, 20)
	submit("usr-3", 3, 30)

	summary, err := svc.PublicSummary(ctx, "evt-1")
	require.NoError(t, err)
	require.Len(t, summary.Contributors, 3)
	assert.Equal(t, "usr-2", summary.Contributors[0].UserID)
	assert.Equal(t, "usr-1", summary.Contributors[1].UserID)
	assert.Equal(t, "usr-3", summary.Contributors[2].UserID)
}

func TestPublicSummaryExcludesUncounted(t *testing.T) {
	svc, _, _, _ := newMetricsFixture()
	ctx := context.Background()

	pending, err := svc.Submit(ctx, "evt-1", "usr-1", SubmitMetricsRequest{BagsCollected: intPtr(4)})
	require.NoError(t, err)
	_ = pending

	rejected, err := svc.Submit(ctx, "evt-1", "usr-2", SubmitMetricsRequest{BagsCollected: intPtr(4)})
	require.NoError(t, err)
	_, err = svc.Reject(ctx, rejected.ID, "implausible", "rev-1")
	require.NoError(t, err)

	counted, err := svc.Submit(ctx, "evt-1", "usr-3", SubmitMetricsRequest{BagsCollected: intPtr(2)})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, counted.ID, "rev-1")
	require.NoError(t, err)

	summary, err := svc.PublicSummary(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ContributorCount)
	assert.Equal(t, 2, summary.TotalBagsCollected)
	require.Len(t, summary.Contributors, 1)
	assert.Equal(t, "usr-3", summary.Contributors[0].UserID)
}

// ApproveAllPending approves pending rows only and reports the count.
func TestApproveAllPendingCount(t *testing.T) {
	svc, store, _, invalidator := newMetricsFixture()
	ctx := context.Background()

	already, err := svc.Submit(ctx, "evt-1", "usr-4", SubmitMetricsRequest{BagsCollected: intPtr(1)})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, already.ID, "rev-1")
	require.NoError(t, err)
	reviewedAt := *store.byID[already.ID].ReviewedAt

	for _, user := range []string{"usr-1", "usr-2", "usr-3"} {
		_, err := svc.Submit(ctx, "evt-1", user, SubmitMetricsRequest{BagsCollected: intPtr(1)})
		require.NoError(t, err)
	}

	approved, err := svc.ApproveAllPending(ctx, "evt-1", "rev-2")
	require.NoError(t, err)
	assert.Equal(t, 3, approved)
	// The previously approved record keeps its original review stamp.
	assert.Equal(t, reviewedAt, *store.byID[already.ID].ReviewedAt)
	assert.Equal(t, "rev-1", *store.byID[already.ID].ReviewedBy)
	// One invalidation for the single approve, one for the whole batch.
	assert.Equal(t, 2, invalidator.calls)
}

func TestApproveAllPendingEmptyQueue(t *testing.T) {
	svc, _, _, invalidator := newMetricsFixture()

	approved, err := svc.ApproveAllPending(context.Background(), "evt-1", "rev-1")
	require.NoError(t, err)
	assert.Equal(t, 0, approved)
	assert.Equal(t, 0, invalidator.calls)
}

// A mid-batch failure leaves earlier approvals applied and reports their count.
func TestApproveAllPendingMidBatchFailure(t *testing.T) {
	svc, store, _, invalidator := newMetricsFixture()
	ctx := context.Background()

	for _, user := range []string{"usr-1", "usr-2", "usr-3"} {
		_, err := svc.Submit(ctx, "evt-1", user, SubmitMetricsRequest{BagsCollected: intPtr(1)})
		require.NoError(t, err)
	}
	store.failAfterN = store.updates + 2

	approved, err := svc.ApproveAllPending(ctx, "evt-1", "rev-1")
	require.Error(t, err)
	assert.Equal(t, 2, approved)

	applied := 0
	for _, sub := range store.byID {
		if sub.Status == models.MetricsStatusApproved {
			applied++
		}
	}
	assert.Equal(t, 2, applied)
	// The partial batch still dropped the cached stats, exactly once.
	assert.Equal(t, 1, invalidator.calls)
}

func TestUserImpactDerivesKilograms(t *testing.T) {
	svc, _, _, _ := newMetricsFixture()
	ctx := context.Background()

	sub, err := svc.Submit(ctx, "evt-1", "usr-1", SubmitMetricsRequest{
		BagsCollected:    intPtr(4),
		PickedWeight:     floatPtr(22.0462),
		PickedWeightUnit: "pounds",
		DurationMinutes:  intPtr(30),
	})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, sub.ID, "rev-1")
	require.NoError(t, err)

	stats, err := svc.UserImpact(ctx, "usr-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalEvents)
	assert.Equal(t, 4, stats.TotalBagsCollected)
	assert.InDelta(t, 22.0462, stats.TotalWeightPounds, 1e-9)
	assert.InDelta(t, 10, stats.TotalWeightKilograms, 1e-9)
}

func TestUserImpactEmptyHistory(t *testing.T) {
	svc, _, _, _ := newMetricsFixture()

	stats, err := svc.UserImpact(context.Background(), "usr-1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalEvents)
	assert.NotNil(t, stats.Events)
	assert.Empty(t, stats.Events)
}

// Full workflow: submit, adjust with a single corrected field, aggregate.
func TestSubmitAdjustAggregateScenario(t *testing.T) {
	svc, _, notifier, invalidator := newMetricsFixture()
	ctx := context.Background()

	sub, err := svc.Submit(ctx, "evt-1", "usr-1", SubmitMetricsRequest{
		BagsCollected:    intPtr(4),
		PickedWeight:     floatPtr(10),
		PickedWeightUnit: "pounds",
		DurationMinutes:  intPtr(30),
	})
	require.NoError(t, err)
	require.Equal(t, models.MetricsStatusPending, sub.Status)

	adjusted, err := svc.Adjust(ctx, sub.ID, AdjustMetricsRequest{
		AdjustedBagsCollected: intPtr(5),
	}, "recount", "rev-1")
	require.NoError(t, err)
	assert.Equal(t, models.MetricsStatusAdjusted, adjusted.Status)
	assert.Equal(t, 5, *adjusted.AdjustedBagsCollected)
	assert.Nil(t, adjusted.AdjustedPickedWeight)
	assert.Nil(t, adjusted.AdjustedDurationMinutes)

	totals, err := svc.CalculateTotals(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, 5, totals.TotalBagsCollected)
	assert.InDelta(t, 10, totals.TotalWeightPounds, 1e-9)
	assert.Equal(t, 30, totals.TotalDurationMinutes)
	assert.Equal(t, 1, totals.ApprovedSubmissions)
	assert.Equal(t, 0, totals.PendingSubmissions)

	assert.Equal(t, []string{sub.ID}, notifier.submitted)
	assert.Equal(t, []string{sub.ID}, notifier.reviewed)
	assert.Equal(t, 1, invalidator.calls)
}

func TestAdjustedWeightUnitFallsBackToOriginalUnit(t *testing.T) {
	svc, _, _, _ := newMetricsFixture()
	ctx := context.Background()

	sub, err := svc.Submit(ctx, "evt-1", "usr-1", SubmitMetricsRequest{
		PickedWeight:     floatPtr(4),
		PickedWeightUnit: "kilograms",
	})
	require.NoError(t, err)

	// Reviewer corrects the weight but not the unit; the original unit applies.
	adjusted, err := svc.Adjust(ctx, sub.ID, AdjustMetricsRequest{
		AdjustedPickedWeight: floatPtr(5),
	}, "scale misread", "rev-1")
	require.NoError(t, err)

	pounds := adjusted.EffectiveWeightPounds()
	require.NotNil(t, pounds)
	assert.InDelta(t, 5*models.PoundsPerKilogram, *pounds, 1e-9)
}

func TestGetMineReturnsNilWhenAbsent(t *testing.T) {
	svc, _, _, _ := newMetricsFixture()

	sub, err := svc.GetMine(context.Background(), "evt-1", "usr-1")
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestHasSubmitted(t *testing.T) {
	svc, _, _, _ := newMetricsFixture()
	ctx := context.Background()

	exists, err := svc.HasSubmitted(ctx, "evt-1", "usr-1")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = svc.Submit(ctx, "evt-1", "usr-1", SubmitMetricsRequest{BagsCollected: intPtr(1)})
	require.NoError(t, err)

	exists, err = svc.HasSubmitted(ctx, "evt-1", "usr-1")
	require.NoError(t, err)
	assert.True(t, exists)
}
