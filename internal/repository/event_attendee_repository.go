package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/TrashMob-eco/trashmob-api/internal/models"
)

const attendeeColumns = `id, event_id, user_id, sign_up_date, canceled_at, created_at, updated_at`

// EventAttendeeRepository manages event registrations.
type EventAttendeeRepository struct {
	db *sqlx.DB
}

// NewEventAttendeeRepository constructs the repository.
func NewEventAttendeeRepository(db *sqlx.DB) *EventAttendeeRepository {
	return &EventAttendeeRepository{db: db}
}

// FindByEventAndUser loads a registration row regardless of cancellation state.
func (r *EventAttendeeRepository) FindByEventAndUser(ctx context.Context, eventID, userID string) (*models.EventAttendee, error) {
	query := fmt.Sprintf("SELECT %s FROM event_attendees WHERE event_id = $1 AND user_id = $2 LIMIT 1", attendeeColumns)
	var attendee models.EventAttendee
	if err := r.db.GetContext(ctx, &attendee, query, eventID, userID); err != nil {
		return nil, err
	}
	return &attendee, nil
}

// IsAttending reports whether the user holds an active, non-canceled registration.
func (r *EventAttendeeRepository) IsAttending(ctx context.Context, eventID, userID string) (bool, error) {
	var attending bool
	query := "SELECT EXISTS(SELECT 1 FROM event_attendees WHERE event_id = $1 AND user_id = $2 AND canceled_at IS NULL)"
	if err := r.db.GetContext(ctx, &attending, query, eventID, userID); err != nil {
		return false, fmt.Errorf("check attendance: %w", err)
	}
	return attending, nil
}

// CountActive returns the number of active registrations for an event.
func (r *EventAttendeeRepository) CountActive(ctx context.Context, eventID string) (int, error) {
	var total int
	query := "SELECT COUNT(*) FROM event_attendees WHERE event_id = $1 AND canceled_at IS NULL"
	if err := r.db.GetContext(ctx, &total, query, eventID); err != nil {
		return 0, fmt.Errorf("count attendees: %w", err)
	}
	return total, nil
}

// ListByEvent returns active registrations with user metadata, ordered by name.
func (r *EventAttendeeRepository) ListByEvent(ctx context.Context, eventID string) ([]models.EventAttendeeRecord, error) {
	query := `SELECT a.id, a.event_id, a.user_id, a.sign_up_date, a.canceled_at, a.created_at, a.updated_at,
u.user_name AS user_name, u.city AS city
FROM event_attendees a
JOIN users u ON u.id = a.user_id
WHERE a.event_id = $1 AND a.canceled_at IS NULL
ORDER BY u.user_name ASC`
	var records []models.EventAttendeeRecord
	if err := r.db.SelectContext(ctx, &records, query, eventID); err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	return records, nil
}

// ListByUser returns a user's registrations with event metadata, newest event first.
func (r *EventAttendeeRepository) ListByUser(ctx context.Context, userID string) ([]models.AttendeeEventRecord, error) {
	query := `SELECT a.id, a.event_id, a.user_id, a.sign_up_date, a.canceled_at, a.created_at, a.updated_at,
e.name AS event_name, e.event_date AS event_date, e.status AS event_status
FROM event_attendees a
JOIN events e ON e.id = a.event_id
WHERE a.user_id = $1 AND a.canceled_at IS NULL
ORDER BY e.event_date DESC`
	var records []models.AttendeeEventRecord
	if err := r.db.SelectContext(ctx, &records, query, userID); err != nil {
		return nil, fmt.Errorf("list events for user: %w", err)
	}
	return records, nil
}

// Create inserts a new registration.
func (r *EventAttendeeRepository) Create(ctx context.Context, attendee *models.EventAttendee) error {
	if attendee.ID == "" {
		attendee.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if attendee.CreatedAt.IsZero() {
		attendee.CreatedAt = now
	}
	if attendee.SignUpDate.IsZero() {
		attendee.SignUpDate = now
	}
	attendee.UpdatedAt = now
	query := `INSERT INTO event_attendees (id, event_id, user_id, sign_up_date, canceled_at, created_at, updated_at)
VALUES (:id, :event_id, :user_id, :sign_up_date, :canceled_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, attendee); err != nil {
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

// Update persists cancellation or reactivation of a registration.
func (r *EventAttendeeRepository) Update(ctx context.Context, attendee *models.EventAttendee) error {
	attendee.UpdatedAt = time.Now().UTC()
	query := `UPDATE event_attendees SET sign_up_date = :sign_up_date, canceled_at = :canceled_at, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, attendee); err != nil {
		return fmt.Errorf("update registration: %w", err)
	}
	return nil
}

// CountDistinctAttendees returns the number of unique users with at least one
// active registration, for site stats.
func (r *EventAttendeeRepository) CountDistinctAttendees(ctx context.Context) (int, error) {
	var total int
	query := "SELECT COUNT(DISTINCT user_id) FROM event_attendees WHERE canceled_at IS NULL"
	if err := r.db.GetContext(ctx, &total, query); err != nil {
		return 0, fmt.Errorf("count distinct attendees: %w", err)
	}
	return total, nil
}
