package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/aliuyar1234/propdesk/internal/domain"
	"github.com/aliuyar1234/propdesk/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const inviteColumns = `id, code, organization_id, status, expires_at, redeemed_at, redeemed_by, created_by, created_at`

type invitesRepo struct {
	q querier
}

func scanInvite(row pgx.Row, kind domain.Kind) (domain.Invite, error) {
	var inv domain.Invite
	var status string
	err := row.Scan(
		&inv.ID,
		&inv.Code,
		&inv.OrganizationID,
		&status,
		&inv.ExpiresAt,
		&inv.RedeemedAt,
		&inv.RedeemedBy,
		&inv.CreatedBy,
		&inv.CreatedAt,
	)
	if err != nil {
		return domain.Invite{}, err
	}
	inv.Status = domain.InviteStatus(status)
	inv.Kind = kind
	return inv, nil
}

func (r *invitesRepo) Create(ctx context.Context, inv domain.Invite) error {
	table, err := inviteTable(inv.Kind)
	if err != nil {
		return err
	}

	_, err = r.q.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, code, organization_id, status, expires_at, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, table), inv.ID, inv.Code, inv.OrganizationID, string(inv.Status), inv.ExpiresAt, inv.CreatedBy, inv.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert invite: %w", err)
	}
	return nil
}

func (r *invitesRepo) GetByCode(ctx context.Context, kind domain.Kind, code string) (domain.Invite, error) {
	table, err := inviteTable(kind)
	if err != nil {
		return domain.Invite{}, err
	}

	row := r.q.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE code = $1
		ORDER BY (status = 'pending') DESC, created_at DESC
		LIMIT 1
	`, inviteColumns, table), code)
	inv, err := scanInvite(row, kind)
	if err != nil {
		return domain.Invite{}, mapNotFound(err)
	}
	return inv, nil
}

func (r *invitesRepo) GetByID(ctx context.Context, kind domain.Kind, id uuid.UUID) (domain.Invite, error) {
	table, err := inviteTable(kind)
	if err != nil {
		return domain.Invite{}, err
	}

	row := r.q.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, inviteColumns, table), id)
	inv, err := scanInvite(row, kind)
	if err != nil {
		return domain.Invite{}, mapNotFound(err)
	}
	return inv, nil
}

func (r *invitesRepo) ListByOrg(ctx context.Context, kind domain.Kind, orgID uuid.UUID) ([]domain.Invite, error) {
	table, err := inviteTable(kind)
	if err != nil {
		return nil, err
	}

	rows, err := r.q.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE organization_id = $1
		ORDER BY created_at DESC, id
	`, inviteColumns, table), orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	defer rows.Close()

	invites := []domain.Invite{}
	for rows.Next() {
		inv, err := scanInvite(rows, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invite: %w", err)
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}

func (r *invitesRepo) MarkRedeemed(ctx context.Context, kind domain.Kind, id, userID uuid.UUID, at time.Time) (bool, error) {
	table, err := inviteTable(kind)
	if err != nil {
		return false, err
	}

	tag, err := r.q.Exec(ctx, fmt.Sprintf(`
		UPDATE %s
		SET status = 'redeemed', redeemed_at = $3, redeemed_by = $2
		WHERE id = $1
		  AND status = 'pending'
		  AND (expires_at IS NULL OR expires_at > $3)
	`, table), id, userID, at)
	if err != nil {
		return false, fmt.Errorf("failed to mark invite redeemed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *invitesRepo) Revoke(ctx context.Context, kind domain.Kind, orgID, id uuid.UUID) (bool, error) {
	table, err := inviteTable(kind)
	if err != nil {
		return false, err
	}

	tag, err := r.q.Exec(ctx, fmt.Sprintf(`
		UPDATE %s SET status = 'revoked'
		WHERE id = $1 AND organization_id = $2 AND status = 'pending'
	`, table), id, orgID)
	if err != nil {
		return false, fmt.Errorf("failed to revoke invite: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *invitesRepo) ExpireStale(ctx context.Context, kind domain.Kind, now time.Time) (int64, error) {
	table, err := inviteTable(kind)
	if err != nil {
		return 0, err
	}

	tag, err := r.q.Exec(ctx, fmt.Sprintf(`
		UPDATE %s SET status = 'expired'
		WHERE status = 'pending' AND expires_at IS NOT NULL AND expires_at <= $1
	`, table), now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire invites: %w", err)
	}
	return tag.RowsAffected(), nil
}
