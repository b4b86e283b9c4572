package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/TrashMob-eco/trashmob-api/internal/models"
	appErrors "github.com/TrashMob-eco/trashmob-api/pkg/errors"
)

type metricsStore interface {
	FindByID(ctx context.Context, id string) (*models.EventAttendeeMetrics, error)
	FindByEventAndUser(ctx context.Context, eventID, userID string) (*models.EventAttendeeMetrics, error)
	Exists(ctx context.Context, eventID, userID string) (bool, error)
	ListByEvent(ctx context.Context, eventID string) ([]models.EventAttendeeMetricsRecord, error)
	ListPendingByEvent(ctx context.Context, eventID string) ([]models.EventAttendeeMetrics, error)
	ListCountedByUser(ctx context.Context, userID string) ([]models.EventAttendeeMetricsRecord, error)
	Create(ctx context.Context, m *models.EventAttendeeMetrics) error
	Update(ctx context.Context, m *models.EventAttendeeMetrics) error
}

type metricsEventReader interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
}

type metricsAttendeeReader interface {
	IsAttending(ctx context.Context, eventID, userID string) (bool, error)
}

// MetricsNotifier receives workflow events for asynchronous notification.
type MetricsNotifier interface {
	MetricsSubmitted(m *models.EventAttendeeMetrics)
	MetricsReviewed(m *models.EventAttendeeMetrics)
}

// StatsInvalidator drops cached aggregate views after a review transition.
type StatsInvalidator interface {
	InvalidateStats(ctx context.Context)
}

// SubmitMetricsRequest is the attendee-facing submission payload.
type SubmitMetricsRequest struct {
	BagsCollected    *int     `json:"bags_collected" validate:"omitempty,min=0"`
	PickedWeight     *float64 `json:"picked_weight" validate:"omitempty,min=0"`
	PickedWeightUnit string   `json:"picked_weight_unit" validate:"omitempty,oneof=pounds kilograms"`
	DurationMinutes  *int     `json:"duration_minutes" validate:"omitempty,min=0"`
	Notes            *string  `json:"notes"`
}

// AdjustMetricsRequest carries reviewer corrections. Each adjusted field may
// be supplied either in the adjusted slot or in the plain slot; the adjusted
// slot wins when both are present.
type AdjustMetricsRequest struct {
	BagsCollected            *int     `json:"bags_collected" validate:"omitempty,min=0"`
	PickedWeight             *float64 `json:"picked_weight" validate:"omitempty,min=0"`
	PickedWeightUnit         *string  `json:"picked_weight_unit" validate:"omitempty,oneof=pounds kilograms"`
	DurationMinutes          *int     `json:"duration_minutes" validate:"omitempty,min=0"`
	AdjustedBagsCollected    *int     `json:"adjusted_bags_collected" validate:"omitempty,min=0"`
	AdjustedPickedWeight     *float64 `json:"adjusted_picked_weight" validate:"omitempty,min=0"`
	AdjustedPickedWeightUnit *string  `json:"adjusted_picked_weight_unit" validate:"omitempty,oneof=pounds kilograms"`
	AdjustedDurationMinutes  *int     `json:"adjusted_duration_minutes" validate:"omitempty,min=0"`
}

// EventMetricsService owns the attendee metrics submission and review workflow.
type EventMetricsService struct {
	metrics   metricsStore
	events    metricsEventReader
	attendees metricsAttendeeReader
	notifier  MetricsNotifier
	stats     StatsInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEventMetricsService constructs the service. Notifier and stats may be nil.
func NewEventMetricsService(metrics metricsStore, events metricsEventReader, attendees metricsAttendeeReader, notifier MetricsNotifier, stats StatsInvalidator, validate *validator.Validate, logger *zap.Logger) *EventMetricsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventMetricsService{
		metrics:   metrics,
		events:    events,
		attendees: attendees,
		notifier:  notifier,
		stats:     stats,
		validator: validate,
		logger:    logger,
	}
}

// Submit creates or overwrites the caller's pending submission for an event.
// The event must exist and the caller must hold an active registration. A
// submission that has already been reviewed is immutable.
func (s *EventMetricsService) Submit(ctx context.Context, eventID, userID string, req SubmitMetricsRequest) (*models.EventAttendeeMetrics, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid metrics payload")
	}
	if req.PickedWeight != nil && req.PickedWeightUnit == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "picked_weight_unit is required when picked_weight is set")
	}

	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	attending, err := s.attendees.IsAttending(ctx, eventID, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check attendance")
	}
	if !attending {
		return nil, appErrors.ErrNotAttendee
	}

	unit := models.WeightUnit(req.PickedWeightUnit)
	if unit == "" {
		unit = models.WeightUnitPounds
	}

	existing, err := s.metrics.FindByEventAndUser(ctx, eventID, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}

	now := time.Now().UTC()
	if existing != nil {
		if existing.Status != models.MetricsStatusPending {
			return nil, appErrors.ErrAlreadyReviewed
		}
		existing.BagsCollected = req.BagsCollected
		existing.PickedWeight = req.PickedWeight
		existing.PickedWeightUnit = unit
		existing.DurationMinutes = req.DurationMinutes
		existing.Notes = req.Notes
		existing.LastUpdatedBy = userID
		existing.UpdatedAt = now
		if err := s.metrics.Update(ctx, existing); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update submission")
		}
		if s.notifier != nil {
			s.notifier.MetricsSubmitted(existing)
		}
		return existing, nil
	}

	submission := &models.EventAttendeeMetrics{
		EventID:          eventID,
		UserID:           userID,
		BagsCollected:    req.BagsCollected,
		PickedWeight:     req.PickedWeight,
		PickedWeightUnit: unit,
		DurationMinutes:  req.DurationMinutes,
		Notes:            req.Notes,
		Status:           models.MetricsStatusPending,
		CreatedBy:        userID,
		CreatedAt:        now,
		LastUpdatedBy:    userID,
		UpdatedAt:        now,
	}
	if err := s.metrics.Create(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create submission")
	}
	if s.notifier != nil {
		s.notifier.MetricsSubmitted(submission)
	}
	return submission, nil
}

// GetMine returns the caller's submission for an event, or nil when none exists.
func (s *EventMetricsService) GetMine(ctx context.Context, eventID, userID string) (*models.EventAttendeeMetrics, error) {
	submission, err := s.metrics.FindByEventAndUser(ctx, eventID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return submission, nil
}

// HasSubmitted reports whether any submission exists for the pair.
func (s *EventMetricsService) HasSubmitted(ctx context.Context, eventID, userID string) (bool, error) {
	exists, err := s.metrics.Exists(ctx, eventID, userID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check submission")
	}
	return exists, nil
}

// ListByEvent returns every submission for an event for reviewer dashboards.
func (s *EventMetricsService) ListByEvent(ctx context.Context, eventID string) ([]models.EventAttendeeMetricsRecord, error) {
	records, err := s.metrics.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return records, nil
}

// ListPending returns the review queue for an event, oldest submission first.
func (s *EventMetricsService) ListPending(ctx context.Context, eventID string) ([]models.EventAttendeeMetrics, error) {
	records, err := s.metrics.ListPendingByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending submissions")
	}
	return records, nil
}

// loadPending fetches a submission and verifies it is still reviewable.
func (s *EventMetricsService) loadPending(ctx context.Context, id string) (*models.EventAttendeeMetrics, error) {
	submission, err := s.metrics.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	if submission.Status != models.MetricsStatusPending {
		return nil, appErrors.ErrNotPending
	}
	return submission, nil
}

func (s *EventMetricsService) stampReview(m *models.EventAttendeeMetrics, reviewerID string) {
	now := time.Now().UTC()
	m.ReviewedBy = &reviewerID
	m.ReviewedAt = &now
	m.LastUpdatedBy = reviewerID
	m.UpdatedAt = now
}

func (s *EventMetricsService) afterReview(ctx context.Context, m *models.EventAttendeeMetrics) {
	if s.notifier != nil {
		s.notifier.MetricsReviewed(m)
	}
	if s.stats != nil {
		s.stats.InvalidateStats(ctx)
	}
}

// Approve transitions a pending submission to approved.
func (s *EventMetricsService) Approve(ctx context.Context, id, reviewerID string) (*models.EventAttendeeMetrics, error) {
	submission, err := s.loadPending(ctx, id)
	if err != nil {
		return nil, err
	}
	submission.Status = models.MetricsStatusApproved
	s.stampReview(submission, reviewerID)
	if err := s.metrics.Update(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve submission")
	}
	s.afterReview(ctx, submission)
	return submission, nil
}

// Reject transitions a pending submission to rejected, recording the reason.
func (s *EventMetricsService) Reject(ctx context.Context, id, reason, reviewerID string) (*models.EventAttendeeMetrics, error) {
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}
	submission, err := s.loadPending(ctx, id)
	if err != nil {
		return nil, err
	}
	submission.Status = models.MetricsStatusRejected
	submission.RejectionReason = &reason
	s.stampReview(submission, reviewerID)
	if err := s.metrics.Update(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject submission")
	}
	s.afterReview(ctx, submission)
	return submission, nil
}

// Adjust transitions a pending submission to adjusted with corrected values.
// For each field the adjusted slot of the request wins, falling back to the
// plain slot; fields absent from both stay unset and aggregation falls back to
// the originally submitted value.
func (s *EventMetricsService) Adjust(ctx context.Context, id string, req AdjustMetricsRequest, reason, reviewerID string) (*models.EventAttendeeMetrics, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid adjustment payload")
	}
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "adjustment reason is required")
	}
	submission, err := s.loadPending(ctx, id)
	if err != nil {
		return nil, err
	}

	submission.Status = models.MetricsStatusAdjusted
	submission.AdjustmentReason = &reason
	submission.AdjustedBagsCollected = coalesceInt(req.AdjustedBagsCollected, req.BagsCollected)
	submission.AdjustedPickedWeight = coalesceFloat(req.AdjustedPickedWeight, req.PickedWeight)
	if unit := coalesceString(req.AdjustedPickedWeightUnit, req.PickedWeightUnit); unit != nil {
		u := models.WeightUnit(*unit)
		submission.AdjustedPickedWeightUnit = &u
	}
	submission.AdjustedDurationMinutes = coalesceInt(req.AdjustedDurationMinutes, req.DurationMinutes)
	s.stampReview(submission, reviewerID)

	if err := s.metrics.Update(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to adjust submission")
	}
	s.afterReview(ctx, submission)
	return submission, nil
}

// ApproveAllPending approves every pending submission for an event and returns
// the number approved. Each row is an independent update: a failure partway
// leaves earlier approvals in place and the returned count reflects them.
func (s *EventMetricsService) ApproveAllPending(ctx context.Context, eventID, reviewerID string) (int, error) {
	pending, err := s.metrics.ListPendingByEvent(ctx, eventID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending submissions")
	}

	approved := 0
	for i := range pending {
		submission := &pending[i]
		submission.Status = models.MetricsStatusApproved
		s.stampReview(submission, reviewerID)
		if err := s.metrics.Update(ctx, submission); err != nil {
			s.logger.Error("bulk approve stopped mid-batch",
				zap.String("event_id", eventID),
				zap.String("submission_id", submission.ID),
				zap.Int("approved_so_far", approved),
				zap.Error(err))
			s.invalidateAfterBatch(ctx, approved)
			return approved, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve submission")
		}
		approved++
		if s.notifier != nil {
			s.notifier.MetricsReviewed(submission)
		}
	}
	s.invalidateAfterBatch(ctx, approved)
	return approved, nil
}

// invalidateAfterBatch drops the cached stats views once per batch rather than
// per row; the counted set changed at most once from a reader's perspective.
func (s *EventMetricsService) invalidateAfterBatch(ctx context.Context, approved int) {
	if approved > 0 && s.stats != nil {
		s.stats.InvalidateStats(ctx)
	}
}

// CalculateTotals computes the per-event rollup over reviewed submissions.
// Never fails on an event without submissions; returns zeroed totals instead.
func (s *EventMetricsService) CalculateTotals(ctx context.Context, eventID string) (*models.AttendeeMetricsTotals, error) {
	records, err := s.metrics.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submissions")
	}

	totals := &models.AttendeeMetricsTotals{EventID: eventID, TotalSubmissions: len(records)}
	for i := range records {
		m := &records[i].EventAttendeeMetrics
		if m.Status == models.MetricsStatusPending {
			totals.PendingSubmissions++
		}
		if !m.Counted() {
			continue
		}
		totals.ApprovedSubmissions++
		if bags := m.EffectiveBags(); bags != nil {
			totals.TotalBagsCollected += *bags
		}
		if pounds := m.EffectiveWeightPounds(); pounds != nil {
			totals.TotalWeightPounds += *pounds
		}
		if duration := m.EffectiveDuration(); duration != nil {
			totals.TotalDurationMinutes += *duration
		}
	}
	return totals, nil
}

// PublicSummary builds the privacy-safe contributor view of an event, ranked
// by bags collected then by weight.
func (s *EventMetricsService) PublicSummary(ctx context.Context, eventID string) (*models.EventMetricsPublicSummary, error) {
	records, err := s.metrics.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submissions")
	}

	summary := &models.EventMetricsPublicSummary{EventID: eventID, Contributors: []models.MetricsContributor{}}
	for i := range records {
		record := &records[i]
		if !record.Counted() {
			continue
		}
		summary.ContributorCount++

		contributor := models.MetricsContributor{
			UserID:   record.UserID,
			UserName: record.UserName,
			Status:   record.Status,
		}
		if bags := record.EffectiveBags(); bags != nil {
			contributor.BagsCollected = *bags
			summary.TotalBagsCollected += *bags
		}
		if pounds := record.EffectiveWeightPounds(); pounds != nil && *pounds > 0 {
			contributor.WeightPounds = pounds
			summary.TotalWeightPounds += *pounds
		}
		if duration := record.EffectiveDuration(); duration != nil {
			contributor.DurationMinutes = *duration
			summary.TotalDurationMinutes += *duration
		}
		summary.Contributors = append(summary.Contributors, contributor)
	}

	sort.SliceStable(summary.Contributors, func(i, j int) bool {
		a, b := summary.Contributors[i], summary.Contributors[j]
		if a.BagsCollected != b.BagsCollected {
			return a.BagsCollected > b.BagsCollected
		}
		return weightOrZero(a.WeightPounds) > weightOrZero(b.WeightPounds)
	})
	return summary, nil
}

// UserImpact computes a user's lifetime impact across all events. The kilogram
// total is derived from the pound total with the fixed constant rather than by
// summing kilogram-native values, which is equivalent for a linear conversion.
func (s *EventMetricsService) UserImpact(ctx context.Context, userID string) (*models.UserImpactStats, error) {
	records, err := s.metrics.ListCountedByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submissions")
	}

	stats := &models.UserImpactStats{UserID: userID, Events: []models.UserEventImpact{}}
	for i := range records {
		record := &records[i]

		impact := models.UserEventImpact{
			EventID:   record.EventID,
			EventName: record.EventName,
			EventDate: record.EventDate,
			Status:    record.Status,
		}
		if bags := record.EffectiveBags(); bags != nil {
			impact.BagsCollected = *bags
			stats.TotalBagsCollected += *bags
		}
		if pounds := record.EffectiveWeightPounds(); pounds != nil {
			impact.WeightPounds = *pounds
			stats.TotalWeightPounds += *pounds
		}
		if duration := record.EffectiveDuration(); duration != nil {
			impact.DurationMinutes = *duration
			stats.TotalDurationMinutes += *duration
		}
		stats.Events = append(stats.Events, impact)
	}
	stats.TotalEvents = len(stats.Events)
	stats.TotalWeightKilograms = stats.TotalWeightPounds / models.PoundsPerKilogram
	return stats, nil
}

func weightOrZero(w *float64) float64 {
	if w == nil {
		return 0
	}
	return *w
}

func coalesceInt(values ...*int) *int {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func coalesceFloat(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func coalesceString(values ...*string) *string {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
