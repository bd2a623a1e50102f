package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProfileStatusInactive is the status a freshly provisioned profile starts in.
const ProfileStatusInactive = "inactive"

// Profile is the role-specific row (tenant or staff) of a user. Operational
// fields beyond status are filled in elsewhere.
type Profile struct {
	ID             uuid.UUID
	Kind           Kind
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	Status         string
	CreatedAt      time.Time
}
