package auth

import (
	"context"
	"testing"
)

func TestPolicyAllow(t *testing.T) {
	policy := NewPolicy(newFakeStore())
	ctx := context.Background()

	cases := []struct {
		name       string
		identity   Identity
		capability string
		want       bool
	}{
		{"admin may assign roles", Identity{RoleID: 1}, CapAssignRoles, true},
		{"user may create notes", Identity{RoleID: 2}, CapCreateNote, true},
		{"user may not assign roles", Identity{RoleID: 2}, CapAssignRoles, false},
		{"guest is read-only", Identity{RoleID: 3}, CapCreateNote, false},
		{"unknown role has nothing", Identity{RoleID: 99}, CapReadNote, false},
		{"empty capability denied", Identity{RoleID: 1}, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := policy.Allow(ctx, tc.identity, tc.capability)
			if err != nil {
				t.Fatalf("Allow: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Allow(%d, %q) = %v, want %v", tc.identity.RoleID, tc.capability, got, tc.want)
			}
		})
	}
}
