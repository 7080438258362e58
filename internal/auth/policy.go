package auth

import "context"

// Capability names seeded into the permission catalog.
const (
	CapCreateNote    = "create_note"
	CapEditOwnNote   = "edit_own_note"
	CapEditAnyNote   = "edit_any_note"
	CapDeleteOwnNote = "delete_own_note"
	CapDeleteAnyNote = "delete_any_note"
	CapReadNote      = "read_note"
	CapAssignRoles   = "assign_roles"
)

// Policy answers whether an identity holds a required capability, backed by
// the role-permission mapping. Routes opt into it explicitly; nothing in the
// auth surface attaches a capability requirement, which keeps role an
// informational claim there.
type Policy struct {
	store Store
}

func NewPolicy(store Store) *Policy {
	return &Policy{store: store}
}

// Allow reports whether the identity's role grants the capability.
func (p *Policy) Allow(ctx context.Context, identity Identity, capability string) (bool, error) {
	if capability == "" {
		return false, nil
	}
	perms, err := p.store.PermissionsForRole(ctx, identity.RoleID)
	if err != nil {
		return false, err
	}
	for _, perm := range perms {
		if perm.Name == capability {
			return true, nil
		}
	}
	return false, nil
}
