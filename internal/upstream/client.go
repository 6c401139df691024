// Package upstream wraps the task-management REST backend. All wire shapes
// are normalized here; the rest of the gateway only sees canonical types.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/taskdeck/taskdeck/internal/rbac"
)

// Client wraps interactions with the backend API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Ping checks whether the backend is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}
	return nil
}

// Login authenticates an individual account. An empty password requests an
// OTP for the identifier; passing otp completes that round trip.
func (c *Client) Login(ctx context.Context, username, password, otp string) (*LoginOutcome, error) {
	form := url.Values{"username": {username}, "password": {password}}
	if otp != "" {
		form.Set("otp", otp)
	}
	return c.login(ctx, "/login", form, normalizeIndividualUser)
}

// CompanyLogin authenticates a company-level account with the same
// credential pair.
func (c *Client) CompanyLogin(ctx context.Context, username, password string) (*LoginOutcome, error) {
	form := url.Values{"username": {username}, "password": {password}}
	return c.login(ctx, "/company-login", form, normalizeCompanyAccount)
}

func (c *Client) login(ctx context.Context, path string, form url.Values, normalize func(json.RawMessage) (*rbac.Principal, error)) (*LoginOutcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return nil, errorFromResponse(resp)
	}

	var payload loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("upstream: decode login response: %w", err)
	}

	outcome := &LoginOutcome{Token: payload.AccessToken, Message: payload.Message}
	if payload.AccessToken != "" {
		if len(payload.User) == 0 {
			return nil, fmt.Errorf("upstream: login response missing user payload")
		}
		principal, err := normalize(payload.User)
		if err != nil {
			return nil, fmt.Errorf("upstream: normalize user payload: %w", err)
		}
		outcome.Principal = principal
	}
	return outcome, nil
}

// Me fetches and normalizes the current account for the token.
func (c *Client) Me(ctx context.Context, token string) (*rbac.Principal, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/users/me", token, nil, &raw); err != nil {
		return nil, err
	}
	return normalizeCurrentUser(raw)
}

// ListUsers returns accounts visible to the token's role.
func (c *Client) ListUsers(ctx context.Context, token string) ([]User, error) {
	var users []User
	if err := c.doJSON(ctx, http.MethodGet, "/users", token, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser creates a managed account.
func (c *Client) CreateUser(ctx context.Context, token string, in UserCreate) (User, error) {
	var user User
	err := c.doJSON(ctx, http.MethodPost, "/users", token, in, &user)
	return user, err
}

// UpdateUser updates a managed account.
func (c *Client) UpdateUser(ctx context.Context, token string, id int64, in UserUpdate) (User, error) {
	var user User
	err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/users/%d", id), token, in, &user)
	return user, err
}

// DeleteUser removes an account.
func (c *Client) DeleteUser(ctx context.Context, token string, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/users/%d", id), token, nil, nil)
}

// ActivateUser re-enables a deactivated account.
func (c *Client) ActivateUser(ctx context.Context, token string, id int64) error {
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/users/%d/activate", id), token, nil, nil)
}

// ListCompanies returns all tenants.
func (c *Client) ListCompanies(ctx context.Context, token string) ([]Company, error) {
	var companies []Company
	if err := c.doJSON(ctx, http.MethodGet, "/companies", token, nil, &companies); err != nil {
		return nil, err
	}
	return companies, nil
}

// GetCompany fetches one tenant.
func (c *Client) GetCompany(ctx context.Context, token string, id int64) (Company, error) {
	var company Company
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/companies/%d", id), token, nil, &company)
	return company, err
}

// CreateCompany registers a tenant.
func (c *Client) CreateCompany(ctx context.Context, token string, in CompanyCreate) (Company, error) {
	var company Company
	err := c.doJSON(ctx, http.MethodPost, "/companies", token, in, &company)
	return company, err
}

// UpdateCompany updates a tenant.
func (c *Client) UpdateCompany(ctx context.Context, token string, id int64, in CompanyUpdate) (Company, error) {
	var company Company
	err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/companies/%d", id), token, in, &company)
	return company, err
}

// CreateTask creates a single task for one recipient.
func (c *Client) CreateTask(ctx context.Context, token string, in TaskCreate) (Task, error) {
	var task Task
	err := c.doJSON(ctx, http.MethodPost, "/tasks", token, in, &task)
	return task, err
}

// CreateTasksBulk creates the same task content for every recipient in one
// call. The backend responds with a partitioned result; an error return
// means the bulk endpoint itself failed, not that some recipients did.
func (c *Client) CreateTasksBulk(ctx context.Context, token string, in BulkTaskCreate) (*BulkResult, error) {
	var result BulkResult
	if err := c.doJSON(ctx, http.MethodPost, "/tasks/bulk", token, in, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListTasks returns every task visible to the token's role.
func (c *Client) ListTasks(ctx context.Context, token string) ([]Task, error) {
	var tasks []Task
	if err := c.doJSON(ctx, http.MethodGet, "/tasks", token, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// MyTasks returns tasks assigned to the token's own account.
func (c *Client) MyTasks(ctx context.Context, token string) ([]Task, error) {
	var tasks []Task
	if err := c.doJSON(ctx, http.MethodGet, "/my-tasks", token, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateTask updates task content.
func (c *Client) UpdateTask(ctx context.Context, token string, id int64, in TaskCreate) (Task, error) {
	var task Task
	err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/tasks/%d", id), token, in, &task)
	return task, err
}

// UpdateTaskStatus transitions a task's status.
func (c *Client) UpdateTaskStatus(ctx context.Context, token string, id int64, status string) (Task, error) {
	var task Task
	path := fmt.Sprintf("/tasks/%d/status?status=%s", id, url.QueryEscape(status))
	err := c.doJSON(ctx, http.MethodPut, path, token, nil, &task)
	return task, err
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, token string, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/tasks/%d", id), token, nil, nil)
}

// ListNotifications returns the account's notifications.
func (c *Client) ListNotifications(ctx context.Context, token string) ([]Notification, error) {
	var notifications []Notification
	if err := c.doJSON(ctx, http.MethodGet, "/notifications", token, nil, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// CreateNotification delivers a notification to a user.
func (c *Client) CreateNotification(ctx context.Context, token string, in NotificationCreate) (Notification, error) {
	var notification Notification
	err := c.doJSON(ctx, http.MethodPost, "/notifications", token, in, &notification)
	return notification, err
}

// MarkNotificationRead flags one notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, token string, id int64) error {
	return c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/notifications/%d/read", id), token, nil, nil)
}

// DeleteNotification removes one notification.
func (c *Client) DeleteNotification(ctx context.Context, token string, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/notifications/%d", id), token, nil, nil)
}

// DashboardAnalytics fetches the role-shaped pre-aggregated totals.
func (c *Client) DashboardAnalytics(ctx context.Context, token string) (*AnalyticsSummary, error) {
	var summary AnalyticsSummary
	if err := c.doJSON(ctx, http.MethodGet, "/analytics/dashboard", token, nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return errorFromResponse(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
