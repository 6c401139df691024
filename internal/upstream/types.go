package upstream

import (
	"encoding/json"
	"time"

	"github.com/taskdeck/taskdeck/internal/rbac"
)

// Task is the wire representation of a task.
type Task struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Priority     string    `json:"priority"`
	Status       string    `json:"status"`
	DueDate      time.Time `json:"due_date"`
	AssignedToID int64     `json:"assigned_to_id"`
	AssignedByID int64     `json:"assigned_by_id,omitempty"`
	CompanyID    int64     `json:"company_id,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// Task statuses as reported by the backend.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// User is the wire representation of a managed account.
type User struct {
	ID             int64  `json:"id"`
	FullName       string `json:"full_name"`
	Email          string `json:"email"`
	Mobile         string `json:"mobile,omitempty"`
	Role           string `json:"role"`
	CompanyID      int64  `json:"company_id,omitempty"`
	CanAssignTasks bool   `json:"can_assign_tasks"`
	IsActive       bool   `json:"is_active"`
}

// Company is the wire representation of a tenant.
type Company struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Notification is the wire representation of a user notification.
type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// UserCreate is the payload for creating a managed account.
type UserCreate struct {
	FullName       string `json:"full_name"`
	Email          string `json:"email"`
	Mobile         string `json:"mobile,omitempty"`
	Password       string `json:"password,omitempty"`
	Role           string `json:"role"`
	CompanyID      int64  `json:"company_id,omitempty"`
	CanAssignTasks bool   `json:"can_assign_tasks"`
}

// UserUpdate is the payload for updating a managed account. Nil fields are
// left untouched by the backend.
type UserUpdate struct {
	FullName       *string `json:"full_name,omitempty"`
	Email          *string `json:"email,omitempty"`
	Mobile         *string `json:"mobile,omitempty"`
	Role           *string `json:"role,omitempty"`
	CanAssignTasks *bool   `json:"can_assign_tasks,omitempty"`
	IsActive       *bool   `json:"is_active,omitempty"`
}

// CompanyCreate is the payload for registering a tenant.
type CompanyCreate struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// CompanyUpdate is the payload for updating a tenant.
type CompanyUpdate struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// TaskCreate is the payload for creating a single task.
type TaskCreate struct {
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Priority     string    `json:"priority"`
	DueDate      time.Time `json:"due_date"`
	AssignedToID int64     `json:"assigned_to_id"`
}

// BulkTaskCreate is the payload for the bulk-create endpoint.
type BulkTaskCreate struct {
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Priority      string    `json:"priority"`
	DueDate       time.Time `json:"due_date"`
	AssignedToIDs []int64   `json:"assigned_to_ids"`
}

// BulkFailure reports one recipient the backend could not create a task for.
type BulkFailure struct {
	UserID  int64  `json:"user_id"`
	Message string `json:"message"`
}

// BulkResult is the backend's partitioned outcome of a bulk creation.
type BulkResult struct {
	Successful []Task        `json:"successful"`
	Failed     []BulkFailure `json:"failed"`
}

// NotificationCreate is the payload for delivering a notification.
type NotificationCreate struct {
	UserID  int64  `json:"user_id"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// AnalyticsSummary is the role-shaped aggregate returned by the analytics
// endpoint. Fields absent for a role stay nil; the dashboard aggregator
// normalizes this into its canonical summary.
type AnalyticsSummary struct {
	TotalTasks      *int64 `json:"total_tasks,omitempty"`
	PendingTasks    *int64 `json:"pending_tasks,omitempty"`
	InProgressTasks *int64 `json:"in_progress_tasks,omitempty"`
	CompletedTasks  *int64 `json:"completed_tasks,omitempty"`
	OverdueTasks    *int64 `json:"overdue_tasks,omitempty"`
	TotalUsers      *int64 `json:"total_users,omitempty"`
	ActiveUsers     *int64 `json:"active_users,omitempty"`
	TotalCompanies  *int64 `json:"total_companies,omitempty"`
	ActiveCompanies *int64 `json:"active_companies,omitempty"`
	AssignedToMe    *int64 `json:"assigned_to_me,omitempty"`
	AssignedByMe    *int64 `json:"assigned_by_me,omitempty"`
}

// LoginOutcome is the unified result of either login endpoint. A response
// that carries a message but no access token means the backend issued an
// OTP instead of completing the login.
type LoginOutcome struct {
	Token     string
	Principal *rbac.Principal
	Message   string
}

// OTPIssued reports whether the backend asked for an OTP round trip.
func (o *LoginOutcome) OTPIssued() bool {
	return o != nil && o.Token == "" && o.Message != ""
}

type loginResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type,omitempty"`
	Message     string          `json:"message,omitempty"`
	User        json.RawMessage `json:"user,omitempty"`
}

// individualUserPayload is the user shape returned by POST /login.
type individualUserPayload struct {
	ID             int64  `json:"id"`
	FullName       string `json:"full_name"`
	Email          string `json:"email"`
	Mobile         string `json:"mobile"`
	Role           string `json:"role"`
	CompanyID      int64  `json:"company_id"`
	CanAssignTasks bool   `json:"can_assign_tasks"`
	IsActive       bool   `json:"is_active"`
}

// companyAccountPayload is the differently shaped account returned by
// POST /company-login.
type companyAccountPayload struct {
	ID           int64  `json:"id"`
	CompanyName  string `json:"company_name"`
	ContactEmail string `json:"contact_email"`
	Mobile       string `json:"mobile"`
	IsActive     bool   `json:"is_active"`
}

// normalizeIndividualUser maps the individual-login user shape onto the
// canonical principal. Call sites never see the raw field names.
func normalizeIndividualUser(raw json.RawMessage) (*rbac.Principal, error) {
	var payload individualUserPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return &rbac.Principal{
		ID:             payload.ID,
		Role:           rbac.ParseRole(payload.Role),
		Name:           payload.FullName,
		Email:          payload.Email,
		Mobile:         payload.Mobile,
		CompanyID:      payload.CompanyID,
		CanAssignTasks: payload.CanAssignTasks,
		IsActive:       payload.IsActive,
	}, nil
}

// normalizeCompanyAccount maps the company-login account shape onto the
// canonical principal. Company accounts always act with the company role and
// are scoped to themselves.
func normalizeCompanyAccount(raw json.RawMessage) (*rbac.Principal, error) {
	var payload companyAccountPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return &rbac.Principal{
		ID:        payload.ID,
		Role:      rbac.RoleCompany,
		Name:      payload.CompanyName,
		Email:     payload.ContactEmail,
		Mobile:    payload.Mobile,
		CompanyID: payload.ID,
		IsActive:  payload.IsActive,
	}, nil
}

// normalizeCurrentUser handles GET /users/me, which serves both account
// kinds. The company shape is recognized by its company_name field.
func normalizeCurrentUser(raw json.RawMessage) (*rbac.Principal, error) {
	var probe struct {
		Role        string `json:"role"`
		CompanyName string `json:"company_name"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}
	if probe.Role == "" && probe.CompanyName != "" {
		return normalizeCompanyAccount(raw)
	}
	return normalizeIndividualUser(raw)
}
