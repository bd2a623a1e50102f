package sqlite

import (
	"context"
	"fmt"

	"github.com/aliuyar1234/propdesk/internal/domain"
	"github.com/aliuyar1234/propdesk/internal/store"
	"github.com/google/uuid"
)

type orgsRepo struct {
	q querier
}

func (r *orgsRepo) Create(ctx context.Context, org domain.Organization) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO organizations (id, name, slug, created_by_user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, org.ID.String(), org.Name, org.Slug, org.CreatedByUserID.String(), formatTime(org.CreatedAt), formatTime(org.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

func (r *orgsRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Organization, error) {
	var org domain.Organization
	var createdAt, updatedAt string
	err := r.q.QueryRowContext(ctx, `
		SELECT id, name, slug, created_by_user_id, created_at, updated_at
		FROM organizations WHERE id = ?
	`, id.String()).Scan(&org.ID, &org.Name, &org.Slug, &org.CreatedByUserID, &createdAt, &updatedAt)
	if err != nil {
		return domain.Organization{}, mapNotFound(err)
	}
	if org.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Organization{}, err
	}
	if org.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Organization{}, err
	}
	return org, nil
}

func (r *orgsRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.OrganizationWithRole, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT o.id, o.name, o.slug, o.created_by_user_id, o.created_at, o.updated_at, om.role
		FROM organizations o
		INNER JOIN organization_members om ON o.id = om.organization_id
		WHERE om.user_id = ?
		ORDER BY o.created_at DESC
	`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query organizations: %w", err)
	}
	defer rows.Close()

	orgs := []domain.OrganizationWithRole{}
	for rows.Next() {
		var org domain.OrganizationWithRole
		var createdAt, updatedAt, role string
		if err := rows.Scan(&org.ID, &org.Name, &org.Slug, &org.CreatedByUserID, &createdAt, &updatedAt, &role); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		if org.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if org.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		org.Role = domain.Role(role)
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

func (r *orgsRepo) AddMember(ctx context.Context, m domain.Membership) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO organization_members (organization_id, user_id, role, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (organization_id, user_id) DO NOTHING
	`, m.OrganizationID.String(), m.UserID.String(), string(m.Role), formatTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to add organization member: %w", err)
	}
	return nil
}

func (r *orgsRepo) GetMemberRole(ctx context.Context, orgID, userID uuid.UUID) (domain.Role, error) {
	var role string
	err := r.q.QueryRowContext(ctx, `
		SELECT role FROM organization_members
		WHERE organization_id = ? AND user_id = ?
	`, orgID.String(), userID.String()).Scan(&role)
	if err != nil {
		return "", mapNotFound(err)
	}
	return domain.Role(role), nil
}

func (r *orgsRepo) ListMembers(ctx context.Context, orgID uuid.UUID) ([]domain.Member, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT om.user_id, u.email, om.role, om.created_at
		FROM organization_members om
		INNER JOIN users u ON om.user_id = u.id
		WHERE om.organization_id = ?
		ORDER BY om.created_at ASC
	`, orgID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	members := []domain.Member{}
	for rows.Next() {
		var m domain.Member
		var role, createdAt string
		if err := rows.Scan(&m.UserID, &m.Email, &role, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		m.Role = domain.Role(role)
		members = append(members, m)
	}
	return members, rows.Err()
}
