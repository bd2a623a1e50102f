// Package events publishes invite lifecycle notifications for downstream
// consumers (welcome mails, onboarding checklists). Publishing is best effort:
// the redemption result never depends on it.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Publisher delivers an encoded event to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Close() error
}

// InviteRedeemed is emitted once per successful redemption.
type InviteRedeemed struct {
	InviteID       uuid.UUID `json:"invite_id"`
	Kind           string    `json:"kind"`
	OrganizationID uuid.UUID `json:"organization_id"`
	UserID         uuid.UUID `json:"user_id"`
	ProfileID      uuid.UUID `json:"profile_id"`
	Role           string    `json:"role"`
	RedeemedAt     time.Time `json:"redeemed_at"`
}

// InviteRedeemedSubject returns the subject redemptions of kind are published on.
func InviteRedeemedSubject(kind string) string {
	return "invites." + kind + ".redeemed"
}

// PublishInviteRedeemed encodes ev and hands it to p.
func PublishInviteRedeemed(ctx context.Context, p Publisher, ev InviteRedeemed) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal invite redeemed event: %w", err)
	}
	return p.Publish(ctx, InviteRedeemedSubject(ev.Kind), data)
}

// LogPublisher writes events to the application log. It is used when no
// broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, subject string, data []byte) error {
	log.Info().Str("subject", subject).RawJSON("event", data).Msg("Event published")
	return nil
}

func (LogPublisher) Close() error { return nil }
