package models

import "time"

// EventStatus represents the lifecycle state of a cleanup event.
type EventStatus string

const (
	EventStatusActive    EventStatus = "active"
	EventStatusFull      EventStatus = "full"
	EventStatusCanceled  EventStatus = "canceled"
	EventStatusCompleted EventStatus = "completed"
)

// Valid returns true when the status is a supported value.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusActive, EventStatusFull, EventStatusCanceled, EventStatusCompleted:
		return true
	default:
		return false
	}
}

// Event represents a community cleanup event.
type Event struct {
	ID                   string      `db:"id" json:"id"`
	Name                 string      `db:"name" json:"name"`
	Description          string      `db:"description" json:"description"`
	EventDate            time.Time   `db:"event_date" json:"event_date"`
	DurationHours        int         `db:"duration_hours" json:"duration_hours"`
	Status               EventStatus `db:"status" json:"status"`
	StreetAddress        *string     `db:"street_address" json:"street_address,omitempty"`
	City                 string      `db:"city" json:"city"`
	Region               string      `db:"region" json:"region"`
	PostalCode           *string     `db:"postal_code" json:"postal_code,omitempty"`
	Latitude             *float64    `db:"latitude" json:"latitude,omitempty"`
	Longitude            *float64    `db:"longitude" json:"longitude,omitempty"`
	MaxParticipants      int         `db:"max_participants" json:"max_participants"`
	CancellationReason   *string     `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CreatedBy            string      `db:"created_by" json:"created_by"`
	CreatedAt            time.Time   `db:"created_at" json:"created_at"`
	LastUpdatedBy        string      `db:"last_updated_by" json:"last_updated_by"`
	UpdatedAt            time.Time   `db:"updated_at" json:"updated_at"`
}

// EventFilter scopes event listing queries.
type EventFilter struct {
	City      string
	Region    string
	Status    *EventStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	CreatedBy string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
