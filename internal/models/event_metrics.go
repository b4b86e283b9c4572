package models

import "time"

// WeightUnit is the unit a collected weight was reported in.
type WeightUnit string

const (
	WeightUnitPounds    WeightUnit = "pounds"
	WeightUnitKilograms WeightUnit = "kilograms"
)

// Valid returns true when the unit is a supported value.
func (u WeightUnit) Valid() bool {
	return u == WeightUnitPounds || u == WeightUnitKilograms
}

// PoundsPerKilogram is the fixed conversion constant used for all weight math.
const PoundsPerKilogram = 2.20462

// ToPounds converts a weight into pounds. Pound values pass through unchanged.
func ToPounds(weight float64, unit WeightUnit) float64 {
	if unit == WeightUnitKilograms {
		return weight * PoundsPerKilogram
	}
	return weight
}

// MetricsStatus is the review state of a metrics submission.
type MetricsStatus string

const (
	MetricsStatusPending  MetricsStatus = "pending"
	MetricsStatusApproved MetricsStatus = "approved"
	MetricsStatusRejected MetricsStatus = "rejected"
	MetricsStatusAdjusted MetricsStatus = "adjusted"
)

// Valid returns true when the status is a supported value.
func (s MetricsStatus) Valid() bool {
	switch s {
	case MetricsStatusPending, MetricsStatusApproved, MetricsStatusRejected, MetricsStatusAdjusted:
		return true
	default:
		return false
	}
}

// EventAttendeeMetrics is one attendee's post-event litter report. At most one
// row exists per (event, user) pair. The originally submitted numeric fields
// are frozen once the status leaves pending; reviewer corrections live in the
// adjusted fields.
type EventAttendeeMetrics struct {
	ID               string        `db:"id" json:"id"`
	EventID          string        `db:"event_id" json:"event_id"`
	UserID           string        `db:"user_id" json:"user_id"`
	BagsCollected    *int          `db:"bags_collected" json:"bags_collected,omitempty"`
	PickedWeight     *float64      `db:"picked_weight" json:"picked_weight,omitempty"`
	PickedWeightUnit WeightUnit    `db:"picked_weight_unit" json:"picked_weight_unit"`
	DurationMinutes  *int          `db:"duration_minutes" json:"duration_minutes,omitempty"`
	Notes            *string       `db:"notes" json:"notes,omitempty"`
	Status           MetricsStatus `db:"status" json:"status"`

	AdjustedBagsCollected    *int        `db:"adjusted_bags_collected" json:"adjusted_bags_collected,omitempty"`
	AdjustedPickedWeight     *float64    `db:"adjusted_picked_weight" json:"adjusted_picked_weight,omitempty"`
	AdjustedPickedWeightUnit *WeightUnit `db:"adjusted_picked_weight_unit" json:"adjusted_picked_weight_unit,omitempty"`
	AdjustedDurationMinutes  *int        `db:"adjusted_duration_minutes" json:"adjusted_duration_minutes,omitempty"`
	AdjustmentReason         *string     `db:"adjustment_reason" json:"adjustment_reason,omitempty"`
	RejectionReason          *string     `db:"rejection_reason" json:"rejection_reason,omitempty"`

	ReviewedBy *string    `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`

	CreatedBy     string    `db:"created_by" json:"created_by"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	LastUpdatedBy string    `db:"last_updated_by" json:"last_updated_by"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Counted reports whether the submission participates in aggregate totals.
func (m *EventAttendeeMetrics) Counted() bool {
	return m.Status == MetricsStatusApproved || m.Status == MetricsStatusAdjusted
}

// EffectiveBags returns the bag count used for aggregation: the adjusted value
// when the submission was adjusted and one was recorded, the original otherwise.
func (m *EventAttendeeMetrics) EffectiveBags() *int {
	if m.Status == MetricsStatusAdjusted && m.AdjustedBagsCollected != nil {
		return m.AdjustedBagsCollected
	}
	return m.BagsCollected
}

// EffectiveWeightPounds returns the collected weight used for aggregation,
// converted to pounds. Nil when no weight was reported at all.
func (m *EventAttendeeMetrics) EffectiveWeightPounds() *float64 {
	weight := m.PickedWeight
	unit := m.PickedWeightUnit
	if m.Status == MetricsStatusAdjusted && m.AdjustedPickedWeight != nil {
		weight = m.AdjustedPickedWeight
		if m.AdjustedPickedWeightUnit != nil {
			unit = *m.AdjustedPickedWeightUnit
		}
	}
	if weight == nil {
		return nil
	}
	pounds := ToPounds(*weight, unit)
	return &pounds
}

// EffectiveDuration returns the duration in minutes used for aggregation.
func (m *EventAttendeeMetrics) EffectiveDuration() *int {
	if m.Status == MetricsStatusAdjusted && m.AdjustedDurationMinutes != nil {
		return m.AdjustedDurationMinutes
	}
	return m.DurationMinutes
}

// EventAttendeeMetricsRecord joins a submission with submitter and event
// metadata for listings and derived views.
type EventAttendeeMetricsRecord struct {
	EventAttendeeMetrics
	UserName  string    `db:"user_name" json:"user_name"`
	EventName string    `db:"event_name" json:"event_name"`
	EventDate time.Time `db:"event_date" json:"event_date"`
}

// AttendeeMetricsTotals is the per-event rollup of reviewed submissions.
// Recomputed on demand; never persisted.
type AttendeeMetricsTotals struct {
	EventID              string  `json:"event_id"`
	TotalBagsCollected   int     `json:"total_bags_collected"`
	TotalWeightPounds    float64 `json:"total_weight_pounds"`
	TotalDurationMinutes int     `json:"total_duration_minutes"`
	TotalSubmissions     int     `json:"total_submissions"`
	ApprovedSubmissions  int     `json:"approved_submissions"`
	PendingSubmissions   int     `json:"pending_submissions"`
}

// MetricsContributor is one ranked row of the public event summary.
type MetricsContributor struct {
	UserID          string        `json:"user_id"`
	UserName        string        `json:"user_name"`
	BagsCollected   int           `json:"bags_collected"`
	WeightPounds    *float64      `json:"weight_pounds,omitempty"`
	DurationMinutes int           `json:"duration_minutes"`
	Status          MetricsStatus `json:"status"`
}

// EventMetricsPublicSummary is the privacy-safe public view of an event's
// reviewed submissions.
type EventMetricsPublicSummary struct {
	EventID              string               `json:"event_id"`
	ContributorCount     int                  `json:"contributor_count"`
	TotalBagsCollected   int                  `json:"total_bags_collected"`
	TotalWeightPounds    float64              `json:"total_weight_pounds"`
	TotalDurationMinutes int                  `json:"total_duration_minutes"`
	Contributors         []MetricsContributor `json:"contributors"`
}

// UserEventImpact is one event's contribution within a user's impact history.
type UserEventImpact struct {
	EventID         string        `json:"event_id"`
	EventName       string        `json:"event_name"`
	EventDate       time.Time     `json:"event_date"`
	BagsCollected   int           `json:"bags_collected"`
	WeightPounds    float64       `json:"weight_pounds"`
	DurationMinutes int           `json:"duration_minutes"`
	Status          MetricsStatus `json:"status"`
}

// UserImpactStats is a user's lifetime impact across all events.
type UserImpactStats struct {
	UserID               string            `json:"user_id"`
	TotalBagsCollected   int               `json:"total_bags_collected"`
	TotalWeightPounds    float64           `json:"total_weight_pounds"`
	TotalWeightKilograms float64           `json:"total_weight_kilograms"`
	TotalDurationMinutes int               `json:"total_duration_minutes"`
	TotalEvents          int               `json:"total_events"`
	Events               []UserEventImpact `json:"events"`
}
