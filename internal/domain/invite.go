package domain

import (
	"time"

	"github.com/google/uuid"
)

// InviteStatus is the stored lifecycle state of an invite.
type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusRedeemed InviteStatus = "redeemed"
	InviteStatusExpired  InviteStatus = "expired"
	InviteStatusRevoked  InviteStatus = "revoked"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s InviteStatus) IsTerminal() bool {
	return s == InviteStatusRedeemed || s == InviteStatusExpired || s == InviteStatusRevoked
}

// Invite is a single-use, organization-scoped code granting the role of its kind.
type Invite struct {
	ID             uuid.UUID    `json:"id"`
	Kind           Kind         `json:"-"`
	Code           string       `json:"code"`
	OrganizationID uuid.UUID    `json:"organization_id"`
	Status         InviteStatus `json:"status"`
	ExpiresAt      *time.Time   `json:"expires_at,omitempty"`
	RedeemedAt     *time.Time   `json:"redeemed_at,omitempty"`
	RedeemedBy     *uuid.UUID   `json:"redeemed_by,omitempty"`
	CreatedBy      uuid.UUID    `json:"created_by"`
	CreatedAt      time.Time    `json:"created_at"`
}

// IsExpiredAt reports whether the invite deadline has passed at now.
// Invites without a deadline never expire.
func (i Invite) IsExpiredAt(now time.Time) bool {
	return i.ExpiresAt != nil && !i.ExpiresAt.After(now)
}

// EffectiveStatus folds a passed deadline into the reported status. The stored
// status of such an invite may still be pending until the sweeper runs.
func (i Invite) EffectiveStatus(now time.Time) InviteStatus {
	if i.Status == InviteStatusPending && i.IsExpiredAt(now) {
		return InviteStatusExpired
	}
	return i.Status
}
