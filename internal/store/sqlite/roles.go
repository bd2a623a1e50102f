package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/aliuyar1234/propdesk/internal/domain"
	"github.com/google/uuid"
)

type rolesRepo struct {
	q querier
}

func (r *rolesRepo) Get(ctx context.Context, userID uuid.UUID) (domain.Role, error) {
	var role string
	err := r.q.QueryRowContext(ctx, `SELECT role FROM user_roles WHERE user_id = ?`, userID.String()).Scan(&role)
	if err != nil {
		return "", mapNotFound(err)
	}
	return domain.Role(role), nil
}

func (r *rolesRepo) Assign(ctx context.Context, userID uuid.UUID, role domain.Role, at time.Time) (domain.Role, error) {
	if _, err := r.q.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING
	`, userID.String(), string(role), formatTime(at)); err != nil {
		return "", fmt.Errorf("failed to assign role: %w", err)
	}

	stored, err := r.Get(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to read assigned role: %w", err)
	}
	return stored, nil
}
