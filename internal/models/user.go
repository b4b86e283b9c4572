package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSiteAdmin UserRole = "SITEADMIN"
	RoleEventLead UserRole = "EVENTLEAD"
	RoleUser      UserRole = "USER"
)

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	UserName     string     `db:"user_name" json:"user_name"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         UserRole   `db:"role" json:"role"`
	City         *string    `db:"city" json:"city,omitempty"`
	Region       *string    `db:"region" json:"region,omitempty"`
	TravelLimit  *int       `db:"travel_limit" json:"travel_limit,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
