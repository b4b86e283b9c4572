package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/TrashMob-eco/trashmob-api/internal/models"
)

const eventColumns = `id, name, description, event_date, duration_hours, status, street_address, city, region, postal_code,
latitude, longitude, max_participants, cancellation_reason, created_by, created_at, last_updated_by, updated_at`

// EventRepository manages persistence for cleanup events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs the repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// FindByID loads an event by id.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE id = $1 LIMIT 1", eventColumns)
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// List returns events matching the filter along with the total count.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error) {
	base := "FROM events"
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.City != "" {
		where = append(where, fmt.Sprintf("city = $%d", len(args)+1))
		args = append(args, filter.City)
	}
	if filter.Region != "" {
		where = append(where, fmt.Sprintf("region = $%d", len(args)+1))
		args = append(args, filter.Region)
	}
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("event_date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("event_date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	if filter.CreatedBy != "" {
		where = append(where, fmt.Sprintf("created_by = $%d", len(args)+1))
		args = append(args, filter.CreatedBy)
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 20
	}
	offset := (page - 1) * size

	orderBy := "event_date DESC"
	if filter.SortBy == "created_at" {
		orderBy = "created_at DESC"
	}

	query := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY %s LIMIT %d OFFSET %d", eventColumns, base, whereClause, orderBy, size, offset)
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}
	return events, total, nil
}

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	query := `INSERT INTO events (id, name, description, event_date, duration_hours, status, street_address, city, region, postal_code,
latitude, longitude, max_participants, cancellation_reason, created_by, created_at, last_updated_by, updated_at)
VALUES (:id, :name, :description, :event_date, :duration_hours, :status, :street_address, :city, :region, :postal_code,
:latitude, :longitude, :max_participants, :cancellation_reason, :created_by, :created_at, :last_updated_by, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Update modifies an existing event.
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	event.UpdatedAt = time.Now().UTC()
	query := `UPDATE events SET name = :name, description = :description, event_date = :event_date, duration_hours = :duration_hours,
status = :status, street_address = :street_address, city = :city, region = :region, postal_code = :postal_code,
latitude = :latitude, longitude = :longitude, max_participants = :max_participants, cancellation_reason = :cancellation_reason,
last_updated_by = :last_updated_by, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// CountCompleted returns the number of completed events site-wide.
func (r *EventRepository) CountCompleted(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM events WHERE status = $1", models.EventStatusCompleted); err != nil {
		return 0, fmt.Errorf("count completed events: %w", err)
	}
	return total, nil
}
