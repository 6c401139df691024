// Package rbac centralizes every role and permission decision for the
// gateway. UI-facing handlers call into this package instead of comparing
// role strings inline.
package rbac

import "strings"

// Role is the coarse permission grouping assigned to every account.
type Role string

// The four roles are mutually exclusive.
const (
	RoleSuperAdmin Role = "super_admin"
	RoleCompany    Role = "company"
	RoleAdmin      Role = "admin"
	RoleUser       Role = "user"
)

// ParseRole normalizes a wire-level role string. Unknown values map to
// RoleUser, the least privileged role.
func ParseRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleSuperAdmin:
		return RoleSuperAdmin
	case RoleCompany:
		return RoleCompany
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleUser
	}
}

// Valid reports whether the role is one of the four known variants.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleCompany, RoleAdmin, RoleUser:
		return true
	}
	return false
}

// Principal describes the authenticated actor for the current session.
// It is created by the auth flow, persisted alongside the bearer token and
// destroyed with it.
type Principal struct {
	ID             int64  `json:"id"`
	Role           Role   `json:"role"`
	Name           string `json:"name,omitempty"`
	Email          string `json:"email,omitempty"`
	Mobile         string `json:"mobile,omitempty"`
	CompanyID      int64  `json:"company_id,omitempty"`
	CanAssignTasks bool   `json:"can_assign_tasks"`
	IsActive       bool   `json:"is_active"`
}

// SameCompany reports whether the principal belongs to the given company.
// Super admins are not scoped to a company.
func (p *Principal) SameCompany(companyID int64) bool {
	if p == nil {
		return false
	}
	if p.Role == RoleSuperAdmin {
		return true
	}
	return p.CompanyID != 0 && p.CompanyID == companyID
}
