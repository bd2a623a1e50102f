package audit

import (
	"context"
	"time"

	"github.com/aliuyar1234/propdesk/internal/domain"
	"github.com/aliuyar1234/propdesk/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	EventUserSignup     = "user.signup"
	EventLoginFailed    = "auth.login_failed"
	EventOrgCreated     = "org.created"
	EventInviteIssued   = "invite.issued"
	EventInviteRedeemed = "invite.redeemed"
	EventInviteRevoked  = "invite.revoked"
	EventInvitesExpired = "invite.expired"
	EventAuditLogPruned = "audit.pruned"
)

// Writer provides methods to write audit log entries.
type Writer struct {
	log store.AuditLog
	now func() time.Time
}

func NewWriter(l store.AuditLog) *Writer {
	return &Writer{log: l, now: time.Now}
}

// LogParams contains parameters for logging an audit event.
type LogParams struct {
	OrgID       *uuid.UUID
	ActorUserID *uuid.UUID
	Action      string
	Meta        map[string]interface{}
}

func (w *Writer) Log(ctx context.Context, params LogParams) error {
	ev := domain.AuditEvent{
		ID:             uuid.New(),
		OrganizationID: params.OrgID,
		ActorUserID:    params.ActorUserID,
		Action:         params.Action,
		Meta:           params.Meta,
		CreatedAt:      w.now().UTC(),
	}

	if err := w.log.Append(ctx, ev); err != nil {
		log.Error().Err(err).Str("action", params.Action).Msg("Failed to write audit log")
		return err
	}

	log.Info().
		Str("action", params.Action).
		Interface("org_id", params.OrgID).
		Interface("actor_user_id", params.ActorUserID).
		Msg("Audit event logged")

	return nil
}

func (w *Writer) LogUserSignup(ctx context.Context, userID uuid.UUID, email string) error {
	return w.Log(ctx, LogParams{
		ActorUserID: &userID,
		Action:      EventUserSignup,
		Meta: map[string]interface{}{
			"email": email,
		},
	})
}

func (w *Writer) LogLoginFailed(ctx context.Context, email, ip string) error {
	return w.Log(ctx, LogParams{
		Action: EventLoginFailed,
		Meta: map[string]interface{}{
			"email": email,
			"ip":    ip,
		},
	})
}

func (w *Writer) LogOrgCreated(ctx context.Context, orgID, userID uuid.UUID, slug string) error {
	return w.Log(ctx, LogParams{
		OrgID:       &orgID,
		ActorUserID: &userID,
		Action:      EventOrgCreated,
		Meta: map[string]interface{}{
			"slug": slug,
		},
	})
}

func (w *Writer) LogInviteIssued(ctx context.Context, inv domain.Invite) error {
	meta := map[string]interface{}{
		"invite_id": inv.ID.String(),
		"kind":      inv.Kind.Name,
	}
	if inv.ExpiresAt != nil {
		meta["expires_at"] = inv.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return w.Log(ctx, LogParams{
		OrgID:       &inv.OrganizationID,
		ActorUserID: &inv.CreatedBy,
		Action:      EventInviteIssued,
		Meta:        meta,
	})
}

func (w *Writer) LogInviteRedeemed(ctx context.Context, kind domain.Kind, orgID, userID, inviteID, profileID uuid.UUID) error {
	return w.Log(ctx, LogParams{
		OrgID:       &orgID,
		ActorUserID: &userID,
		Action:      EventInviteRedeemed,
		Meta: map[string]interface{}{
			"invite_id":         inviteID.String(),
			"kind":              kind.Name,
			kind.ProfileIDField: profileID.String(),
		},
	})
}

func (w *Writer) LogInviteRevoked(ctx context.Context, kind domain.Kind, orgID, actorUserID, inviteID uuid.UUID) error {
	return w.Log(ctx, LogParams{
		OrgID:       &orgID,
		ActorUserID: &actorUserID,
		Action:      EventInviteRevoked,
		Meta: map[string]interface{}{
			"invite_id": inviteID.String(),
			"kind":      kind.Name,
		},
	})
}

// LogInvitesExpired records a sweeper pass. It carries no organization since
// a single pass spans all of them.
func (w *Writer) LogInvitesExpired(ctx context.Context, counts map[string]int64) error {
	meta := make(map[string]interface{}, len(counts))
	for kind, n := range counts {
		meta[kind] = n
	}
	return w.Log(ctx, LogParams{
		Action: EventInvitesExpired,
		Meta:   meta,
	})
}

func (w *Writer) LogAuditPruned(ctx context.Context, deleted int64, cutoff time.Time) error {
	return w.Log(ctx, LogParams{
		Action: EventAuditLogPruned,
		Meta: map[string]interface{}{
			"deleted": deleted,
			"cutoff":  cutoff.UTC().Format(time.RFC3339),
		},
	})
}
