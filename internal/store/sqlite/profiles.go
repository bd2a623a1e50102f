package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/aliuyar1234/propdesk/internal/domain"
	"github.com/google/uuid"
)

type profilesRepo struct {
	q querier
}

func (r *profilesRepo) Ensure(ctx context.Context, kind domain.Kind, userID, orgID uuid.UUID, at time.Time) (domain.Profile, error) {
	table, err := profileTable(kind)
	if err != nil {
		return domain.Profile{}, err
	}

	if _, err := r.q.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, user_id, organization_id, status, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING
	`, table), uuid.NewString(), userID.String(), orgID.String(), domain.ProfileStatusInactive, formatTime(at)); err != nil {
		return domain.Profile{}, fmt.Errorf("failed to create %s profile: %w", kind.Name, err)
	}

	return r.Get(ctx, kind, userID)
}

func (r *profilesRepo) Get(ctx context.Context, kind domain.Kind, userID uuid.UUID) (domain.Profile, error) {
	table, err := profileTable(kind)
	if err != nil {
		return domain.Profile{}, err
	}

	p := domain.Profile{Kind: kind}
	var createdAt string
	err = r.q.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, user_id, organization_id, status, created_at
		FROM %s WHERE user_id = ?
	`, table), userID.String()).Scan(&p.ID, &p.UserID, &p.OrganizationID, &p.Status, &createdAt)
	if err != nil {
		return domain.Profile{}, mapNotFound(err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Profile{}, err
	}
	return p, nil
}
