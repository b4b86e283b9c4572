package models

import "time"

// Partner is an organization offering hauling or disposal services.
type Partner struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	ContactEmail  string    `db:"contact_email" json:"contact_email"`
	City          *string   `db:"city" json:"city,omitempty"`
	Region        *string   `db:"region" json:"region,omitempty"`
	Active        bool      `db:"active" json:"active"`
	CreatedBy     string    `db:"created_by" json:"created_by"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	LastUpdatedBy string    `db:"last_updated_by" json:"last_updated_by"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// PartnerServiceType enumerates the services an event can request.
type PartnerServiceType string

const (
	PartnerServiceHauling  PartnerServiceType = "hauling"
	PartnerServiceDisposal PartnerServiceType = "disposal"
)

// Valid returns true when the service type is supported.
func (t PartnerServiceType) Valid() bool {
	return t == PartnerServiceHauling || t == PartnerServiceDisposal
}

// PartnerRequestStatus is the lifecycle state of a service request.
type PartnerRequestStatus string

const (
	PartnerRequestRequested PartnerRequestStatus = "requested"
	PartnerRequestAccepted  PartnerRequestStatus = "accepted"
	PartnerRequestDeclined  PartnerRequestStatus = "declined"
	PartnerRequestCompleted PartnerRequestStatus = "completed"
)

// Valid returns true when the status is a supported value.
func (s PartnerRequestStatus) Valid() bool {
	switch s {
	case PartnerRequestRequested, PartnerRequestAccepted, PartnerRequestDeclined, PartnerRequestCompleted:
		return true
	default:
		return false
	}
}

// PartnerServiceRequest asks a partner to provide a service for an event.
type PartnerServiceRequest struct {
	ID            string               `db:"id" json:"id"`
	EventID       string               `db:"event_id" json:"event_id"`
	PartnerID     string               `db:"partner_id" json:"partner_id"`
	ServiceType   PartnerServiceType   `db:"service_type" json:"service_type"`
	Status        PartnerRequestStatus `db:"status" json:"status"`
	Notes         *string              `db:"notes" json:"notes,omitempty"`
	DeclineReason *string              `db:"decline_reason" json:"decline_reason,omitempty"`
	RespondedBy   *string              `db:"responded_by" json:"responded_by,omitempty"`
	RespondedAt   *time.Time           `db:"responded_at" json:"responded_at,omitempty"`
	CreatedBy     string               `db:"created_by" json:"created_by"`
	CreatedAt     time.Time            `db:"created_at" json:"created_at"`
	LastUpdatedBy string               `db:"last_updated_by" json:"last_updated_by"`
	UpdatedAt     time.Time            `db:"updated_at" json:"updated_at"`
}
