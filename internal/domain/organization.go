package domain

import (
	"time"

	"github.com/google/uuid"
)

// Organization owns buildings, invites and members.
type Organization struct {
	ID              uuid.UUID
	Name            string
	Slug            string
	CreatedByUserID uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrganizationWithRole combines an organization with the viewing user's membership role.
type OrganizationWithRole struct {
	Organization
	Role Role
}

// Membership attaches a user to an organization.
type Membership struct {
	OrganizationID uuid.UUID
	UserID         uuid.UUID
	Role           Role
	CreatedAt      time.Time
}

// Member is a membership joined with the user's email.
type Member struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
