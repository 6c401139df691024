package rbac

// rolePermissions is the flat fallback table consulted for permission names
// the decision table below does not special-case.
var rolePermissions = map[Role][]string{
	RoleSuperAdmin: {PermManageCompanies, PermManageUsers, PermManageTasks, PermViewAnalytics, PermViewTasks, PermViewProfile},
	RoleCompany:    {PermManageUsers, PermManageTasks, PermViewAnalytics, PermViewTasks, PermViewProfile},
	RoleAdmin:      {PermManageUsers, PermManageTasks, PermViewAnalytics, PermViewTasks, PermViewProfile},
	RoleUser:       {PermViewAnalytics, PermViewTasks, PermViewProfile},
}

// routeRoles restricts a handful of dashboard routes to specific roles.
// Routes missing from this table are accessible to any authenticated
// principal; most routes are not security boundaries, the handlers behind
// them enforce permissions on every action anyway.
var routeRoles = map[string][]Role{
	"/companies": {RoleSuperAdmin},
	"/users":     {RoleSuperAdmin, RoleCompany, RoleAdmin},
	"/reports":   {RoleSuperAdmin, RoleCompany, RoleAdmin},
}

// HasPermission resolves a named permission for the principal. It is a pure
// function of the principal and never errors; missing data resolves to the
// most restrictive answer. Permissions with role-dependent special cases are
// decided here, everything else falls through to the flat table.
func HasPermission(p *Principal, perm string) bool {
	if p == nil {
		return false
	}
	switch perm {
	case PermAssignTasks:
		// company and admin accounts delegate work as part of their role;
		// plain users need the explicit per-user grant.
		switch p.Role {
		case RoleSuperAdmin, RoleCompany, RoleAdmin:
			return true
		default:
			return p.CanAssignTasks
		}
	case PermManageUsers:
		switch p.Role {
		case RoleSuperAdmin, RoleCompany, RoleAdmin:
			return true
		default:
			return false
		}
	case PermManageCompanies:
		return p.Role == RoleSuperAdmin
	default:
		for _, granted := range rolePermissions[p.Role] {
			if granted == perm {
				return true
			}
		}
		return false
	}
}

// CanAccessRoute reports whether the principal may open the given dashboard
// route. Unlisted routes default to accessible.
func CanAccessRoute(p *Principal, route string) bool {
	if p == nil {
		return false
	}
	allowed, ok := routeRoles[route]
	if !ok {
		return true
	}
	for _, role := range allowed {
		if p.Role == role {
			return true
		}
	}
	return false
}
