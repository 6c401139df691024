// Package dashboard aggregates the landing-view statistics. Whichever data
// path produced them, callers always receive the same canonical summary.
package dashboard

// TaskStats are task totals by status plus the two derived date buckets.
type TaskStats struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
	Overdue    int64 `json:"overdue"`
	DueSoon    int64 `json:"due_soon"`
}

// UserStats are account totals by active state.
type UserStats struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
}

// CompanyStats are tenant totals, populated for super admins only.
type CompanyStats struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
}

// Summary is the canonical dashboard shape. Role-conditional sections are
// nil when they do not apply.
type Summary struct {
	Tasks          TaskStats     `json:"tasks"`
	Users          *UserStats    `json:"users,omitempty"`
	Companies      *CompanyStats `json:"companies,omitempty"`
	AssignedToMe   *int64        `json:"assigned_to_me,omitempty"`
	AssignedByMe   *int64        `json:"assigned_by_me,omitempty"`
	RecentActivity []string      `json:"recent_activity"`
}
