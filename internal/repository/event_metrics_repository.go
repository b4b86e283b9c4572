package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/TrashMob-eco/trashmob-api/internal/models"
)

const eventMetricsColumns = `id, event_id, user_id, bags_collected, picked_weight, picked_weight_unit, duration_minutes, notes, status,
adjusted_bags_collected, adjusted_picked_weight, adjusted_picked_weight_unit, adjusted_duration_minutes, adjustment_reason, rejection_reason,
reviewed_by, reviewed_at, created_by, created_at, last_updated_by, updated_at`

// EventMetricsRepository is the record store for attendee metrics submissions.
type EventMetricsRepository struct {
	db *sqlx.DB
}

// NewEventMetricsRepository constructs the repository.
func NewEventMetricsRepository(db *sqlx.DB) *EventMetricsRepository {
	return &EventMetricsRepository{db: db}
}

// FindByID loads a submission by its surrogate id.
func (r *EventMetricsRepository) FindByID(ctx context.Context, id string) (*models.EventAttendeeMetrics, error) {
	query := fmt.Sprintf("SELECT %s FROM event_attendee_metrics WHERE id = $1 LIMIT 1", eventMetricsColumns)
	var m models.EventAttendeeMetrics
	if err := r.db.GetContext(ctx, &m, query, id); err != nil {
		return nil, err
	}
	return &m, nil
}

// FindByEventAndUser loads the single submission for an (event, user) pair.
func (r *EventMetricsRepository) FindByEventAndUser(ctx context.Context, eventID, userID string) (*models.EventAttendeeMetrics, error) {
	query := fmt.Sprintf("SELECT %s FROM event_attendee_metrics WHERE event_id = $1 AND user_id = $2 LIMIT 1", eventMetricsColumns)
	var m models.EventAttendeeMetrics
	if err := r.db.GetContext(ctx, &m, query, eventID, userID); err != nil {
		return nil, err
	}
	return &m, nil
}

// Exists reports whether any submission exists for the pair, regardless of status.
func (r *EventMetricsRepository) Exists(ctx context.Context, eventID, userID string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM event_attendee_metrics WHERE event_id = $1 AND user_id = $2)"
	if err := r.db.GetContext(ctx, &exists, query, eventID, userID); err != nil {
		return false, fmt.Errorf("check metrics existence: %w", err)
	}
	return exists, nil
}

// ListByEvent returns every submission for an event with submitter metadata,
// ordered by submitter display name for reviewer dashboards.
func (r *EventMetricsRepository) ListByEvent(ctx context.Context, eventID string) ([]models.EventAttendeeMetricsRecord, error) {
	query := `SELECT m.id, m.event_id, m.user_id, m.bags_collected, m.picked_weight, m.picked_weight_unit, m.duration_minutes, m.notes, m.status,
m.adjusted_bags_collected, m.adjusted_picked_weight, m.adjusted_picked_weight_unit, m.adjusted_duration_minutes, m.adjustment_reason, m.rejection_reason,
m.reviewed_by, m.reviewed_at, m.created_by, m.created_at, m.last_updated_by, m.updated_at,
u.user_name AS user_name, e.name AS event_name, e.event_date AS event_date
FROM event_attendee_metrics m
JOIN users u ON u.id = m.user_id
JOIN events e ON e.id = m.event_id
WHERE m.event_id = $1
ORDER BY u.user_name ASC`
	var records []models.EventAttendeeMetricsRecord
	if err := r.db.SelectContext(ctx, &records, query, eventID); err != nil {
		return nil, fmt.Errorf("list metrics by event: %w", err)
	}
	return records, nil
}

// ListPendingByEvent returns the review queue for an event, oldest first.
func (r *EventMetricsRepository) ListPendingByEvent(ctx context.Context, eventID string) ([]models.EventAttendeeMetrics, error) {
	query := fmt.Sprintf(`SELECT %s FROM event_attendee_metrics
WHERE event_id = $1 AND status = $2
ORDER BY created_at ASC`, eventMetricsColumns)
	var records []models.EventAttendeeMetrics
	if err := r.db.SelectContext(ctx, &records, query, eventID, models.MetricsStatusPending); err != nil {
		return nil, fmt.Errorf("list pending metrics: %w", err)
	}
	return records, nil
}

// ListCountedByUser returns a user's approved and adjusted submissions across
// all events, most recent event first.
func (r *EventMetricsRepository) ListCountedByUser(ctx context.Context, userID string) ([]models.EventAttendeeMetricsRecord, error) {
	query := `SELECT m.id, m.event_id, m.user_id, m.bags_collected, m.picked_weight, m.picked_weight_unit, m.duration_minutes, m.notes, m.status,
m.adjusted_bags_collected, m.adjusted_picked_weight, m.adjusted_picked_weight_unit, m.adjusted_duration_minutes, m.adjustment_reason, m.rejection_reason,
m.reviewed_by, m.reviewed_at, m.created_by, m.created_at, m.last_updated_by, m.updated_at,
u.user_name AS user_name, e.name AS event_name, e.event_date AS event_date
FROM event_attendee_metrics m
JOIN users u ON u.id = m.user_id
JOIN events e ON e.id = m.event_id
WHERE m.user_id = $1 AND m.status IN ($2, $3)
ORDER BY e.event_date DESC`
	var records []models.EventAttendeeMetricsRecord
	if err := r.db.SelectContext(ctx, &records, query, userID, models.MetricsStatusApproved, models.MetricsStatusAdjusted); err != nil {
		return nil, fmt.Errorf("list counted metrics by user: %w", err)
	}
	return records, nil
}

// Create inserts a fresh submission.
func (r *EventMetricsRepository) Create(ctx context.Context, m *models.EventAttendeeMetrics) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	query := `INSERT INTO event_attendee_metrics (id, event_id, user_id, bags_collected, picked_weight, picked_weight_unit, duration_minutes, notes, status,
adjusted_bags_collected, adjusted_picked_weight, adjusted_picked_weight_unit, adjusted_duration_minutes, adjustment_reason, rejection_reason,
reviewed_by, reviewed_at, created_by, created_at, last_updated_by, updated_at)
VALUES (:id, :event_id, :user_id, :bags_collected, :picked_weight, :picked_weight_unit, :duration_minutes, :notes, :status,
:adjusted_bags_collected, :adjusted_picked_weight, :adjusted_picked_weight_unit, :adjusted_duration_minutes, :adjustment_reason, :rejection_reason,
:reviewed_by, :reviewed_at, :created_by, :created_at, :last_updated_by, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, m); err != nil {
		return fmt.Errorf("create metrics submission: %w", err)
	}
	return nil
}

// Update persists the full current state of a submission.
func (r *EventMetricsRepository) Update(ctx context.Context, m *models.EventAttendeeMetrics) error {
	m.UpdatedAt = time.Now().UTC()
	query := `UPDATE event_attendee_metrics SET bags_collected = :bags_collected, picked_weight = :picked_weight, picked_weight_unit = :picked_weight_unit,
duration_minutes = :duration_minutes, notes = :notes, status = :status,
adjusted_bags_collected = :adjusted_bags_collected, adjusted_picked_weight = :adjusted_picked_weight, adjusted_picked_weight_unit = :adjusted_picked_weight_unit,
adjusted_duration_minutes = :adjusted_duration_minutes, adjustment_reason = :adjustment_reason, rejection_reason = :rejection_reason,
reviewed_by = :reviewed_by, reviewed_at = :reviewed_at, last_updated_by = :last_updated_by, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, m); err != nil {
		return fmt.Errorf("update metrics submission: %w", err)
	}
	return nil
}
