// Package rbac is the single source of truth for role ranking and
// permissions. Every call site checks against this table; no handler or
// service keeps a local copy of role logic.
package rbac

// Role is a named position in the organization hierarchy.
type Role string

const (
	RoleUser           Role = "user"
	RoleCoordinator    Role = "bcm_coordinator"
	RoleClientHead     Role = "client_head"
	RoleProjectSponsor Role = "project_sponsor"
	RoleOrgAdmin       Role = "org_admin"
	RoleSuperAdmin     Role = "super_admin"
)

// Permission names an action a role may perform.
type Permission string

const (
	PermUseModules       Permission = "use licensed modules"
	PermSubmitRequest    Permission = "submit module access requests"
	PermViewOwnRequests  Permission = "view own module access requests"
	PermApproveRequests  Permission = "approve module access requests"
	PermViewAllRequests  Permission = "view all module access requests"
	PermInvalidateCache  Permission = "invalidate license caches"
	PermManageOrg        Permission = "manage organization settings"
)

// ranks is a total order: higher rank means broader reach. Ties are not
// allowed. Rank is never consulted for approval sign-off; the two approver
// roles are mutually independent there.
var ranks = map[Role]int{
	RoleUser:           10,
	RoleCoordinator:    20,
	RoleClientHead:     30,
	RoleProjectSponsor: 40,
	RoleOrgAdmin:       50,
	RoleSuperAdmin:     60,
}

// permissions is the single role-to-permission table. A higher rank does not
// implicitly inherit a lower rank's permissions; every grant is explicit so
// the table reads as the complete policy.
var permissions = map[Role]map[Permission]bool{
	RoleUser: {
		PermUseModules:      true,
		PermSubmitRequest:   true,
		PermViewOwnRequests: true,
	},
	RoleCoordinator: {
		PermUseModules:      true,
		PermSubmitRequest:   true,
		PermViewOwnRequests: true,
	},
	RoleClientHead: {
		PermUseModules:      true,
		PermSubmitRequest:   true,
		PermViewOwnRequests: true,
		PermApproveRequests: true,
		PermViewAllRequests: true,
	},
	RoleProjectSponsor: {
		PermUseModules:      true,
		PermSubmitRequest:   true,
		PermViewOwnRequests: true,
		PermApproveRequests: true,
		PermViewAllRequests: true,
	},
	RoleOrgAdmin: {
		PermUseModules:      true,
		PermSubmitRequest:   true,
		PermViewOwnRequests: true,
		PermViewAllRequests: true,
		PermInvalidateCache: true,
		PermManageOrg:       true,
	},
	RoleSuperAdmin: {
		PermUseModules:      true,
		PermSubmitRequest:   true,
		PermViewOwnRequests: true,
		PermViewAllRequests: true,
		PermInvalidateCache: true,
		PermManageOrg:       true,
	},
}

// approverRoles are the two designated sign-off roles for module access
// requests. Both must approve; neither outranks the other for approval.
var approverRoles = []Role{RoleClientHead, RoleProjectSponsor}

// Rank returns the role's position in the hierarchy. The second return is
// false for unknown roles.
func Rank(role Role) (int, bool) {
	r, ok := ranks[role]
	return r, ok
}

// Known reports whether the role exists in the hierarchy.
func Known(role Role) bool {
	_, ok := ranks[role]
	return ok
}

// Permits reports whether the role holds the permission. It is a pure
// function of the static table: no per-module or per-call overrides exist.
func Permits(role Role, perm Permission) bool {
	return permissions[role][perm]
}

// Outranks reports whether a sits strictly above b in the hierarchy. Unknown
// roles never outrank anything.
func Outranks(a, b Role) bool {
	ra, okA := ranks[a]
	rb, okB := ranks[b]
	return okA && okB && ra > rb
}

// ApproverRoles returns the designated approver roles in a stable order.
func ApproverRoles() []Role {
	out := make([]Role, len(approverRoles))
	copy(out, approverRoles)
	return out
}

// IsApprover reports whether the role is one of the designated approver
// roles.
func IsApprover(role Role) bool {
	for _, r := range approverRoles {
		if r == role {
			return true
		}
	}
	return false
}
