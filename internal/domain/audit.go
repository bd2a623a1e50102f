package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditEvent is one append-only audit log entry.
type AuditEvent struct {
	ID             uuid.UUID      `json:"id"`
	OrganizationID *uuid.UUID     `json:"organization_id,omitempty"`
	ActorUserID    *uuid.UUID     `json:"actor_user_id,omitempty"`
	ActorEmail     string         `json:"actor_email,omitempty"`
	Action         string         `json:"action"`
	Meta           map[string]any `json:"meta"`
	CreatedAt      time.Time      `json:"created_at"`
}
