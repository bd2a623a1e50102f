package domain

import "strings"

// Kind describes one invite flavour. Redemption, issuance and storage are
// parameterized by it so tenant and staff invites share a single state machine.
type Kind struct {
	Name           string
	Role           Role
	InviteTable    string
	ProfileTable   string
	ProfileIDField string
}

var (
	KindTenant = Kind{
		Name:           "tenant",
		Role:           RoleTenant,
		InviteTable:    "tenant_invites",
		ProfileTable:   "tenants",
		ProfileIDField: "tenant_id",
	}

	KindStaff = Kind{
		Name:           "staff",
		Role:           RoleStaff,
		InviteTable:    "staff_invites",
		ProfileTable:   "staff",
		ProfileIDField: "staff_id",
	}
)

// Kinds lists every invite kind.
func Kinds() []Kind {
	return []Kind{KindTenant, KindStaff}
}

// KindByName resolves a kind from its URL/CLI name.
func KindByName(name string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case KindTenant.Name:
		return KindTenant, true
	case KindStaff.Name:
		return KindStaff, true
	}
	return Kind{}, false
}
