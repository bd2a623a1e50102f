// Package invites implements issuance and redemption of tenant and staff
// invites. Both kinds share one state machine, parameterized by domain.Kind:
//
//	pending -> redeemed | expired | revoked
//
// Redemption provisions the role profile, the platform role and the
// organization membership in the same transaction that consumes the invite.
package invites

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aliuyar1234/propdesk/internal/audit"
	"github.com/aliuyar1234/propdesk/internal/domain"
	"github.com/aliuyar1234/propdesk/internal/events"
	"github.com/aliuyar1234/propdesk/internal/orgs"
	"github.com/aliuyar1234/propdesk/internal/store"
	"github.com/aliuyar1234/propdesk/internal/telemetry"
	"github.com/aliuyar1234/propdesk/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/codes"
)

const issueAttempts = 3

// Options configures a Service. Zero values fall back to defaults; nil
// collaborators are skipped.
type Options struct {
	CodeLength int
	TTL        time.Duration
	Auditor    *audit.Writer
	Publisher  events.Publisher
	Metrics    *telemetry.Metrics
	Now        func() time.Time
}

type Service struct {
	store      store.Store
	orgs       *orgs.Service
	codeLength int
	ttl        time.Duration
	auditor    *audit.Writer
	publisher  events.Publisher
	metrics    *telemetry.Metrics
	now        func() time.Time
	newCode    func(length int) (string, error)
}

// Outcome describes a successful redemption.
type Outcome struct {
	InviteID       uuid.UUID
	OrganizationID uuid.UUID
	Kind           domain.Kind
	Role           domain.Role
	ProfileID      uuid.UUID
	UserID         uuid.UUID
	RedeemedAt     time.Time
}

func NewService(st store.Store, opts Options) *Service {
	s := &Service{
		store:      st,
		codeLength: opts.CodeLength,
		ttl:        opts.TTL,
		auditor:    opts.Auditor,
		publisher:  opts.Publisher,
		metrics:    opts.Metrics,
		now:        opts.Now,
		newCode:    GenerateCode,
	}
	if st != nil {
		s.orgs = orgs.NewService(st)
	}
	if s.codeLength == 0 {
		s.codeLength = DefaultCodeLength
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Configured reports whether the service has storage to work with.
func (s *Service) Configured() bool {
	return s != nil && s.store != nil
}

// Redeem consumes the invite of kind identified by code on behalf of userID.
// Checks run in a fixed order and stop at the first failure: malformed input,
// unknown code, non-pending invite, passed deadline, conflicting role.
func (s *Service) Redeem(ctx context.Context, kind domain.Kind, code, userID string) (*Outcome, error) {
	if !s.Configured() {
		return nil, ErrMissingConfiguration
	}

	start := s.now()
	ctx, span := telemetry.StartRedeemSpan(ctx, kind.Name, userID)
	defer span.End()

	out, err := s.redeem(ctx, kind, code, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorCode(err))
		s.metrics.RedemptionFailed(ctx, kind.Name, ErrorCode(err))
		return nil, err
	}

	s.metrics.RedemptionSucceeded(ctx, kind.Name, s.now().Sub(start).Seconds())
	s.afterRedeem(ctx, out)
	return out, nil
}

func (s *Service) redeem(ctx context.Context, kind domain.Kind, code, userID string) (*Outcome, error) {
	code = strings.TrimSpace(code)
	userID = strings.TrimSpace(userID)
	if code == "" || userID == "" {
		return nil, ErrMalformedRequest
	}
	uid, err := uuid.Parse(userID)
	if err != nil || uid == uuid.Nil {
		return nil, ErrMalformedRequest
	}

	code = validation.NormalizeInviteCode(code)
	if err := validation.ValidateInviteCode(code); err != nil {
		return nil, ErrInvalidCode
	}

	inv, err := s.store.Invites().GetByCode(ctx, kind, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("failed to look up invite: %w", err)
	}

	now := s.now().UTC()
	if err := checkRedeemable(inv, now); err != nil {
		return nil, err
	}

	current, err := s.store.Roles().Get(ctx, uid)
	switch {
	case err == nil && current != kind.Role:
		return nil, ErrRoleConflict
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("failed to look up role: %w", err)
	}

	out := &Outcome{
		InviteID:       inv.ID,
		OrganizationID: inv.OrganizationID,
		Kind:           kind,
		Role:           kind.Role,
		UserID:         uid,
		RedeemedAt:     now,
	}

	err = s.store.WithTx(ctx, func(tx store.Store) error {
		// Consuming the invite first makes concurrent redeemers queue on the
		// invite row; everyone after the winner matches zero rows.
		ok, err := tx.Invites().MarkRedeemed(ctx, kind, inv.ID, uid, now)
		if err != nil {
			return err
		}
		if !ok {
			latest, err := tx.Invites().GetByID(ctx, kind, inv.ID)
			if err != nil {
				return err
			}
			if err := checkRedeemable(latest, now); err != nil {
				return err
			}
			return ErrNotPending
		}

		profile, err := tx.Profiles().Ensure(ctx, kind, uid, inv.OrganizationID, now)
		if err != nil {
			return err
		}
		out.ProfileID = profile.ID

		role, err := tx.Roles().Assign(ctx, uid, kind.Role, now)
		if err != nil {
			return err
		}
		if role != kind.Role {
			return ErrRoleConflict
		}

		return tx.Organizations().AddMember(ctx, domain.Membership{
			OrganizationID: inv.OrganizationID,
			UserID:         uid,
			Role:           kind.Role,
			CreatedAt:      now,
		})
	})
	if err != nil {
		if errors.Is(err, ErrNotPending) || errors.Is(err, ErrExpired) || errors.Is(err, ErrRoleConflict) {
			return nil, err
		}
		log.Error().
			Err(err).
			Str("kind", kind.Name).
			Str("invite_id", inv.ID.String()).
			Str("user_id", uid.String()).
			Msg("Invite provisioning rolled back")
		return nil, fmt.Errorf("%w: %w", ErrProvisioningFailure, err)
	}

	return out, nil
}

// checkRedeemable reports why inv cannot be redeemed at now. A stored expired
// status and a passed deadline on a pending invite both answer ErrExpired, so
// the result does not depend on whether the sweeper has run.
func checkRedeemable(inv domain.Invite, now time.Time) error {
	switch inv.Status {
	case domain.InviteStatusPending:
		if inv.IsExpiredAt(now) {
			return ErrExpired
		}
		return nil
	case domain.InviteStatusExpired:
		return ErrExpired
	default:
		return ErrNotPending
	}
}

// afterRedeem runs the best-effort side effects of a committed redemption.
func (s *Service) afterRedeem(ctx context.Context, out *Outcome) {
	log.Info().
		Str("kind", out.Kind.Name).
		Str("invite_id", out.InviteID.String()).
		Str("org_id", out.OrganizationID.String()).
		Str("user_id", out.UserID.String()).
		Msg("Invite redeemed")

	if s.auditor != nil {
		if err := s.auditor.LogInviteRedeemed(ctx, out.Kind, out.OrganizationID, out.UserID, out.InviteID, out.ProfileID); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}
	}

	if s.publisher != nil {
		err := events.PublishInviteRedeemed(ctx, s.publisher, events.InviteRedeemed{
			InviteID:       out.InviteID,
			Kind:           out.Kind.Name,
			OrganizationID: out.OrganizationID,
			UserID:         out.UserID,
			ProfileID:      out.ProfileID,
			Role:           string(out.Role),
			RedeemedAt:     out.RedeemedAt,
		})
		if err != nil {
			log.Warn().Err(err).Str("invite_id", out.InviteID.String()).Msg("Failed to publish redemption event")
		}
	}
}

// Issue creates a pending invite of kind for orgID. issuerID must be an owner
// or admin of the organization. A nil expiresAt applies the configured TTL; a
// zero TTL issues invites that never expire.
func (s *Service) Issue(ctx context.Context, kind domain.Kind, orgID, issuerID uuid.UUID, expiresAt *time.Time) (*domain.Invite, error) {
	if !s.Configured() {
		return nil, ErrMissingConfiguration
	}

	ctx, span := telemetry.StartIssueSpan(ctx, kind.Name, orgID.String())
	defer span.End()

	if _, err := s.orgs.RequireOrgAdmin(ctx, issuerID, orgID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	switch {
	case expiresAt != nil && !expiresAt.After(now):
		return nil, ErrInvalidExpiry
	case expiresAt != nil:
		t := expiresAt.UTC()
		expiresAt = &t
	case s.ttl > 0:
		t := now.Add(s.ttl)
		expiresAt = &t
	}

	inv := domain.Invite{
		ID:             uuid.New(),
		Kind:           kind,
		OrganizationID: orgID,
		Status:         domain.InviteStatusPending,
		ExpiresAt:      expiresAt,
		CreatedBy:      issuerID,
		CreatedAt:      now,
	}

	for attempt := 0; attempt < issueAttempts; attempt++ {
		code, err := s.newCode(s.codeLength)
		if err != nil {
			return nil, err
		}
		inv.Code = code

		err = s.store.Invites().Create(ctx, inv)
		if err == nil {
			s.metrics.InviteIssued(ctx, kind.Name)
			if s.auditor != nil {
				if err := s.auditor.LogInviteIssued(ctx, inv); err != nil {
					log.Error().Err(err).Msg("Failed to log audit event")
				}
			}
			return &inv, nil
		}
		if !errors.Is(err, store.ErrAlreadyExists) {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to create invite: %w", err)
		}
		log.Debug().Int("attempt", attempt+1).Str("kind", kind.Name).Msg("Invite code collision, retrying")
	}

	return nil, ErrCodeSpaceExhausted
}

// List returns the invites of an organization, newest first. Status is the
// effective status: pending invites past their deadline are reported expired.
func (s *Service) List(ctx context.Context, kind domain.Kind, orgID, actorID uuid.UUID) ([]domain.Invite, error) {
	if !s.Configured() {
		return nil, ErrMissingConfiguration
	}
	if _, err := s.orgs.RequireOrgAdmin(ctx, actorID, orgID); err != nil {
		return nil, err
	}

	invites, err := s.store.Invites().ListByOrg(ctx, kind, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}

	now := s.now()
	for i := range invites {
		invites[i].Status = invites[i].EffectiveStatus(now)
	}
	return invites, nil
}

// Revoke withdraws a pending invite. Invites that are unknown, belong to
// another organization or already left pending yield ErrInviteNotFound.
func (s *Service) Revoke(ctx context.Context, kind domain.Kind, orgID, inviteID, actorID uuid.UUID) error {
	if !s.Configured() {
		return ErrMissingConfiguration
	}
	if _, err := s.orgs.RequireOrgAdmin(ctx, actorID, orgID); err != nil {
		return err
	}

	ok, err := s.store.Invites().Revoke(ctx, kind, orgID, inviteID)
	if err != nil {
		return fmt.Errorf("failed to revoke invite: %w", err)
	}
	if !ok {
		return ErrInviteNotFound
	}

	s.metrics.InviteRevoked(ctx, kind.Name)
	if s.auditor != nil {
		if err := s.auditor.LogInviteRevoked(ctx, kind, orgID, actorID, inviteID); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}
	}
	return nil
}

// ExpireStale moves pending invites of every kind whose deadline has passed
// to expired and returns the number of changed invites per kind name.
// Redemption does not depend on it; it keeps stored statuses tidy.
func (s *Service) ExpireStale(ctx context.Context) (map[string]int64, error) {
	if !s.Configured() {
		return nil, ErrMissingConfiguration
	}

	now := s.now().UTC()
	counts := make(map[string]int64, len(domain.Kinds()))
	var total int64
	for _, kind := range domain.Kinds() {
		n, err := s.store.Invites().ExpireStale(ctx, kind, now)
		if err != nil {
			return counts, fmt.Errorf("failed to expire %s invites: %w", kind.Name, err)
		}
		counts[kind.Name] = n
		total += n
		s.metrics.InvitesExpiredBy(ctx, kind.Name, n)
	}

	if total > 0 && s.auditor != nil {
		if err := s.auditor.LogInvitesExpired(ctx, counts); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}
	}
	return counts, nil
}
