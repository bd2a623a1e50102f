package domain

// Role is the single platform role a user holds.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
	RoleTenant Role = "tenant"
	RoleStaff  Role = "staff"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleOwner, RoleTenant, RoleStaff:
		return true
	}
	return false
}

// CanManageOrg returns true if the role may issue and revoke invites for an organization.
func (r Role) CanManageOrg() bool {
	return r == RoleOwner || r == RoleAdmin
}
