package models

import "time"

// EventAttendee represents a user's registration for an event. A canceled
// registration keeps its row with CanceledAt set.
type EventAttendee struct {
	ID           string     `db:"id" json:"id"`
	EventID      string     `db:"event_id" json:"event_id"`
	UserID       string     `db:"user_id" json:"user_id"`
	SignUpDate   time.Time  `db:"sign_up_date" json:"sign_up_date"`
	CanceledAt   *time.Time `db:"canceled_at" json:"canceled_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Active reports whether the registration still counts toward attendance.
func (a *EventAttendee) Active() bool {
	return a.CanceledAt == nil
}

// EventAttendeeRecord extends the registration with user metadata.
type EventAttendeeRecord struct {
	EventAttendee
	UserName string  `db:"user_name" json:"user_name"`
	City     *string `db:"city" json:"city,omitempty"`
}

// AttendeeEventRecord extends the registration with event metadata for
// per-user listings.
type AttendeeEventRecord struct {
	EventAttendee
	EventName   string      `db:"event_name" json:"event_name"`
	EventDate   time.Time   `db:"event_date" json:"event_date"`
	EventStatus EventStatus `db:"event_status" json:"event_status"`
}
