package postgres

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
	_, err := r.q.Exec(ctx, `
		INSERT INTO organizations (id, name, slug, created_by_user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, org.ID, org.Name, org.Slug, org.CreatedByUserID, org.CreatedAt, org.UpdatedAt)
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
	err := r.q.QueryRow(ctx, `
		SELECT id, name, slug, created_by_user_id, created_at, updated_at
		FROM organizations WHERE id = $1
	`, id).Scan(&org.ID, &org.Name, &org.Slug, &org.CreatedByUserID, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return domain.Organization{}, mapNotFound(err)
	}
	return org, nil
}

func (r *orgsRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.OrganizationWithRole, error) {
	rows, err := r.q.Query(ctx, `
		SELECT o.id, o.name, o.slug, o.created_by_user_id, o.created_at, o.updated_at, om.role
		FROM organizations o
		INNER JOIN organization_members om ON o.id = om.organization_id
		WHERE om.user_id = $1
		ORDER BY o.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query organizations: %w", err)
	}
	defer rows.Close()

	orgs := []domain.OrganizationWithRole{}
	for rows.Next() {
		var org domain.OrganizationWithRole
		var role string
		if err := rows.Scan(&org.ID, &org.Name, &org.Slug, &org.CreatedByUserID, &org.CreatedAt, &org.UpdatedAt, &role); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		org.Role = domain.Role(role)
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

func (r *orgsRepo) AddMember(ctx context.Context, m domain.Membership) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO organization_members (organization_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (organization_id, user_id) DO NOTHING
	`, m.OrganizationID, m.UserID, string(m.Role), m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add organization member: %w", err)
	}
	return nil
}

func (r *orgsRepo) GetMemberRole(ctx context.Context, orgID, userID uuid.UUID) (domain.Role, error) {
	var role string
	err := r.q.QueryRow(ctx, `
		SELECT role FROM organization_members
		WHERE organization_id = $1 AND user_id = $2
	`, orgID, userID).Scan(&role)
	if err != nil {
		return "", mapNotFound(err)
	}
	return domain.Role(role), nil
}

func (r *orgsRepo) ListMembers(ctx context.Context, orgID uuid.UUID) ([]domain.Member, error) {
	rows, err := r.q.Query(ctx, `
		SELECT om.user_id, u.email, om.role, om.created_at
		FROM organization_members om
		INNER JOIN users u ON om.user_id = u.id
		WHERE om.organization_id = $1
		ORDER BY om.created_at ASC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	members := []domain.Member{}
	for rows.Next() {
		var m domain.Member
		var role string
		if err := rows.Scan(&m.UserID, &m.Email, &role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		m.Role = domain.Role(role)
		members = append(members, m)
	}
	return members, rows.Err()
}
