package orgs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aliuyar1234/propdesk/internal/domain"
	"github.com/aliuyar1234/propdesk/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	// ErrOrgNotFound is returned when an organization is not found
	ErrOrgNotFound = errors.New("organization not found")

	// ErrSlugConflict is returned when an organization slug already exists
	ErrSlugConflict = errors.New("organization slug already exists")

	// ErrNotMember is returned when a user is not a member of an organization
	ErrNotMember = errors.New("user is not a member of this organization")

	// ErrInsufficientPermissions is returned when a user lacks required permissions
	ErrInsufficientPermissions = errors.New("insufficient permissions")

	// ErrRoleConflict is returned when a tenant or staff user tries to found an organization
	ErrRoleConflict = errors.New("user already holds a role that cannot own organizations")
)

// Service provides organization-related operations
type Service struct {
	store store.Store
	now   func() time.Time
}

// NewService creates a new organization service
func NewService(st store.Store) *Service {
	return &Service{store: st, now: time.Now}
}

// GetByID retrieves an organization by ID
func (s *Service) GetByID(ctx context.Context, orgID uuid.UUID) (*domain.Organization, error) {
	org, err := s.store.Organizations().GetByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrgNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &org, nil
}

// ListUserOrgs retrieves all organizations for a user with their roles
func (s *Service) ListUserOrgs(ctx context.Context, userID uuid.UUID) ([]domain.OrganizationWithRole, error) {
	orgs, err := s.store.Organizations().ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user orgs: %w", err)
	}
	return orgs, nil
}

// CreateWithOwner creates a new organization and makes the user its owner.
// Users without a platform role become owners; tenants and staff are refused.
func (s *Service) CreateWithOwner(ctx context.Context, name, slug string, userID uuid.UUID) (*domain.Organization, error) {
	now := s.now().UTC()
	org := domain.Organization{
		ID:              uuid.New(),
		Name:            name,
		Slug:            slug,
		CreatedByUserID: userID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := s.store.WithTx(ctx, func(tx store.Store) error {
		role, err := tx.Roles().Assign(ctx, userID, domain.RoleOwner, now)
		if err != nil {
			return err
		}
		if !role.CanManageOrg() {
			return ErrRoleConflict
		}

		if err := tx.Organizations().Create(ctx, org); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrSlugConflict
			}
			return err
		}

		return tx.Organizations().AddMember(ctx, domain.Membership{
			OrganizationID: org.ID,
			UserID:         userID,
			Role:           domain.RoleOwner,
			CreatedAt:      now,
		})
	})
	if err != nil {
		if errors.Is(err, ErrSlugConflict) || errors.Is(err, ErrRoleConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	return &org, nil
}

// ListMembers retrieves all members of an organization
func (s *Service) ListMembers(ctx context.Context, orgID uuid.UUID) ([]domain.Member, error) {
	members, err := s.store.Organizations().ListMembers(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// GetUserOrgRole retrieves a user's role in an organization
// Returns ErrNotMember if the user is not a member
func (s *Service) GetUserOrgRole(ctx context.Context, userID, orgID uuid.UUID) (domain.Role, error) {
	role, err := s.store.Organizations().GetMemberRole(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Debug().
				Str("user_id", userID.String()).
				Str("org_id", orgID.String()).
				Msg("RBAC: User is not a member of organization")
			return "", ErrNotMember
		}
		return "", fmt.Errorf("failed to get org role: %w", err)
	}
	return role, nil
}

// RequireOrgMember checks if a user is a member of an organization
// Returns the user's role if they are a member
func (s *Service) RequireOrgMember(ctx context.Context, userID, orgID uuid.UUID) (domain.Role, error) {
	return s.GetUserOrgRole(ctx, userID, orgID)
}

// RequireOrgAdmin checks that a user may manage the organization (owner or admin).
func (s *Service) RequireOrgAdmin(ctx context.Context, userID, orgID uuid.UUID) (domain.Role, error) {
	role, err := s.GetUserOrgRole(ctx, userID, orgID)
	if err != nil {
		return "", err
	}

	if !role.CanManageOrg() {
		log.Warn().
			Str("user_id", userID.String()).
			Str("org_id", orgID.String()).
			Str("user_role", string(role)).
			Msg("RBAC: Insufficient permissions")
		return role, ErrInsufficientPermissions
	}
	return role, nil
}
