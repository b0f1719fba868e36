package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankTotalOrderNoTies(t *testing.T) {
	seen := make(map[int]Role)
	for role, rank := range ranks {
		prev, dup := seen[rank]
		require.False(t, dup, "roles %s and %s share rank %d", prev, role, rank)
		seen[rank] = role
	}
}

func TestRankUnknownRole(t *testing.T) {
	_, ok := Rank(Role("intern"))
	assert.False(t, ok)
	assert.False(t, Known(Role("intern")))
}

func TestPermitsIsPure(t *testing.T) {
	// Repeated calls with identical inputs return identical results for the
	// whole role x permission space.
	perms := []Permission{
		PermUseModules, PermSubmitRequest, PermViewOwnRequests,
		PermApproveRequests, PermViewAllRequests, PermInvalidateCache, PermManageOrg,
	}
	for role := range ranks {
		for _, p := range perms {
			first := Permits(role, p)
			for i := 0; i < 3; i++ {
				assert.Equal(t, first, Permits(role, p), "role %s perm %s", role, p)
			}
		}
	}
}

func TestPermitsTable(t *testing.T) {
	tests := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleUser, PermSubmitRequest, true},
		{RoleUser, PermApproveRequests, false},
		{RoleUser, PermInvalidateCache, false},
		{RoleClientHead, PermApproveRequests, true},
		{RoleProjectSponsor, PermApproveRequests, true},
		{RoleOrgAdmin, PermApproveRequests, false},
		{RoleOrgAdmin, PermInvalidateCache, true},
		{RoleSuperAdmin, PermInvalidateCache, true},
		{Role("unknown"), PermUseModules, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Permits(tt.role, tt.perm), "role %s perm %s", tt.role, tt.perm)
	}
}

func TestApproverRoles(t *testing.T) {
	approvers := ApproverRoles()
	require.Len(t, approvers, 2)
	assert.ElementsMatch(t, []Role{RoleClientHead, RoleProjectSponsor}, approvers)

	assert.True(t, IsApprover(RoleClientHead))
	assert.True(t, IsApprover(RoleProjectSponsor))
	assert.False(t, IsApprover(RoleOrgAdmin))
	assert.False(t, IsApprover(RoleUser))

	// Returned slice is a copy; mutating it must not corrupt the table.
	approvers[0] = RoleUser
	assert.True(t, IsApprover(RoleClientHead))
}

func TestOutranks(t *testing.T) {
	assert.True(t, Outranks(RoleSuperAdmin, RoleUser))
	assert.True(t, Outranks(RoleOrgAdmin, RoleClientHead))
	assert.False(t, Outranks(RoleUser, RoleUser))
	assert.False(t, Outranks(Role("unknown"), RoleUser))
	assert.False(t, Outranks(RoleSuperAdmin, Role("unknown")))
}

func TestEveryRoleHasPermissionEntry(t *testing.T) {
	for role := range ranks {
		_, ok := permissions[role]
		assert.True(t, ok, "role %s missing from permission table", role)
	}
	for role := range permissions {
		_, ok := ranks[role]
		assert.True(t, ok, "role %s in permission table but not ranked", role)
	}
}
