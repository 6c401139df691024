package rbac

// Named permissions consumed by handlers and the dashboard UI.
const (
	PermAssignTasks     = "assign_tasks"
	PermManageTasks     = "manage_tasks"
	PermManageUsers     = "manage_users"
	PermManageCompanies = "manage_companies"
	PermViewAnalytics   = "view_analytics"
	PermViewTasks       = "view_tasks"
	PermViewProfile     = "view_profile"
)

// Scopes lists every permission the resolver knows about.
func Scopes() []string {
	return []string{
		PermAssignTasks,
		PermManageTasks,
		PermManageUsers,
		PermManageCompanies,
		PermViewAnalytics,
		PermViewTasks,
		PermViewProfile,
	}
}
