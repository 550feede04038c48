package models

import "time"

// Provider represents a bookable provider owned by an organization.
// Provider CRUD lives in the platform API; this service reads providers
// to scope availability and queue operations.
type Provider struct {
	ID             string    `db:"id" json:"id"`
	OrganizationID string    `db:"organization_id" json:"organization_id"`
	BusinessName   string    `db:"business_name" json:"business_name"`
	Timezone       string    `db:"timezone" json:"timezone"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
