package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aliuyar1234/propdesk/internal/domain"
	"github.com/aliuyar1234/propdesk/internal/store"
	"github.com/google/uuid"
)

const inviteColumns = `id, code, organization_id, status, expires_at, redeemed_at, redeemed_by, created_by, created_at`

type invitesRepo struct {
	q querier
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvite(row rowScanner, kind domain.Kind) (domain.Invite, error) {
	var (
		inv        domain.Invite
		status     string
		expiresAt  sql.NullString
		redeemedAt sql.NullString
		redeemedBy uuid.NullUUID
		createdAt  string
		err        error
	)
	if err = row.Scan(
		&inv.ID,
		&inv.Code,
		&inv.OrganizationID,
		&status,
		&expiresAt,
		&redeemedAt,
		&redeemedBy,
		&inv.CreatedBy,
		&createdAt,
	); err != nil {
		return domain.Invite{}, err
	}

	inv.Kind = kind
	inv.Status = domain.InviteStatus(status)
	if redeemedBy.Valid {
		inv.RedeemedBy = &redeemedBy.UUID
	}
	if inv.ExpiresAt, err = parseNullTime(expiresAt); err != nil {
		return domain.Invite{}, err
	}
	if inv.RedeemedAt, err = parseNullTime(redeemedAt); err != nil {
		return domain.Invite{}, err
	}
	if inv.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Invite{}, err
	}
	return inv, nil
}

func (r *invitesRepo) Create(ctx context.Context, inv domain.Invite) error {
	table, err := inviteTable(inv.Kind)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, code, organization_id, status, expires_at, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, table),
		inv.ID.String(),
		inv.Code,
		inv.OrganizationID.String(),
		string(inv.Status),
		formatOptionalTime(inv.ExpiresAt),
		inv.CreatedBy.String(),
		formatTime(inv.CreatedAt),
	)
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

	row := r.q.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE code = ?
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

	row := r.q.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, inviteColumns, table), id.String())
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

	rows, err := r.q.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE organization_id = ?
		ORDER BY created_at DESC, id
	`, inviteColumns, table), orgID.String())
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

	now := formatTime(at)
	res, err := r.q.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s
		SET status = 'redeemed', redeemed_at = ?, redeemed_by = ?
		WHERE id = ?
		  AND status = 'pending'
		  AND (expires_at IS NULL OR expires_at > ?)
	`, table), now, userID.String(), id.String(), now)
	if err != nil {
		return false, fmt.Errorf("failed to mark invite redeemed: %w", err)
	}
	return rowsChanged(res)
}

func (r *invitesRepo) Revoke(ctx context.Context, kind domain.Kind, orgID, id uuid.UUID) (bool, error) {
	table, err := inviteTable(kind)
	if err != nil {
		return false, err
	}

	res, err := r.q.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET status = 'revoked'
		WHERE id = ? AND organization_id = ? AND status = 'pending'
	`, table), id.String(), orgID.String())
	if err != nil {
		return false, fmt.Errorf("failed to revoke invite: %w", err)
	}
	return rowsChanged(res)
}

func (r *invitesRepo) ExpireStale(ctx context.Context, kind domain.Kind, now time.Time) (int64, error) {
	table, err := inviteTable(kind)
	if err != nil {
		return 0, err
	}

	res, err := r.q.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET status = 'expired'
		WHERE status = 'pending' AND expires_at IS NOT NULL AND expires_at <= ?
	`, table), formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("failed to expire invites: %w", err)
	}
	return res.RowsAffected()
}

func rowsChanged(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
