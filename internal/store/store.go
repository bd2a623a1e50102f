package store

import (
	"context"
	"errors"
	"time"

	"github.com/aliuyar1234/propdesk/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
	ErrNestedTx      = errors.New("store: nested transactions are not supported")
)

// Store is the root data access interface implemented by the postgres and
// sqlite drivers. Sub-repositories obtained from a transaction-scoped Store
// run inside that transaction.
type Store interface {
	Invites() Invites
	Roles() Roles
	Profiles() Profiles
	Organizations() Organizations
	Users() Users
	Audit() AuditLog

	// WithTx runs fn in a read/write transaction. The transaction commits when fn
	// returns nil and rolls back otherwise. Calling WithTx on the Store passed to
	// fn returns ErrNestedTx.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	Ping(ctx context.Context) error
	Close() error
}

type Invites interface {
	// Create inserts a pending invite. Returns ErrAlreadyExists when another
	// pending invite of the same kind uses the code.
	Create(ctx context.Context, inv domain.Invite) error

	// GetByCode returns the invite carrying code. A pending invite wins over
	// historical rows that reused the code.
	GetByCode(ctx context.Context, kind domain.Kind, code string) (domain.Invite, error)

	GetByID(ctx context.Context, kind domain.Kind, id uuid.UUID) (domain.Invite, error)

	// ListByOrg returns the organization's invites, newest first.
	ListByOrg(ctx context.Context, kind domain.Kind, orgID uuid.UUID) ([]domain.Invite, error)

	// MarkRedeemed moves a pending, unexpired invite to redeemed. It reports
	// false when no row matched, which means another caller won or the invite
	// is no longer redeemable.
	MarkRedeemed(ctx context.Context, kind domain.Kind, id, userID uuid.UUID, at time.Time) (bool, error)

	// Revoke moves a pending invite of orgID to revoked.
	Revoke(ctx context.Context, kind domain.Kind, orgID, id uuid.UUID) (bool, error)

	// ExpireStale moves every pending invite whose deadline is at or before now
	// to expired and returns how many rows changed.
	ExpireStale(ctx context.Context, kind domain.Kind, now time.Time) (int64, error)
}

type Roles interface {
	// Get returns the user's role or ErrNotFound.
	Get(ctx context.Context, userID uuid.UUID) (domain.Role, error)

	// Assign stores role for the user if the user holds none yet and returns
	// the role stored afterwards, which differs from role on conflict.
	Assign(ctx context.Context, userID uuid.UUID, role domain.Role, at time.Time) (domain.Role, error)
}

type Profiles interface {
	// Ensure creates an inactive profile for the user if none exists and
	// returns the stored profile.
	Ensure(ctx context.Context, kind domain.Kind, userID, orgID uuid.UUID, at time.Time) (domain.Profile, error)

	Get(ctx context.Context, kind domain.Kind, userID uuid.UUID) (domain.Profile, error)
}

type Organizations interface {
	// Create inserts an organization. Returns ErrAlreadyExists on slug conflict.
	Create(ctx context.Context, org domain.Organization) error

	GetByID(ctx context.Context, id uuid.UUID) (domain.Organization, error)

	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.OrganizationWithRole, error)

	// AddMember attaches a user to an organization; existing memberships are left untouched.
	AddMember(ctx context.Context, m domain.Membership) error

	// GetMemberRole returns the membership role or ErrNotFound.
	GetMemberRole(ctx context.Context, orgID, userID uuid.UUID) (domain.Role, error)

	ListMembers(ctx context.Context, orgID uuid.UUID) ([]domain.Member, error)
}

type Users interface {
	// Create inserts a user. Returns ErrAlreadyExists when the email is taken.
	Create(ctx context.Context, u domain.User) error

	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.User, error)

	// UpdatePassword replaces the password hash of the user with email.
	// Returns ErrNotFound when no such user exists.
	UpdatePassword(ctx context.Context, email, passwordHash string, at time.Time) error
}

type AuditLog interface {
	Append(ctx context.Context, ev domain.AuditEvent) error

	// ListByOrg returns the newest events of an organization, with actor emails.
	ListByOrg(ctx context.Context, orgID uuid.UUID, limit int) ([]domain.AuditEvent, error)

	// DeleteOlderThan removes events created before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
