package dashboard

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck/internal/rbac"
	"github.com/taskdeck/taskdeck/internal/upstream"
)

type mockBackend struct {
	analytics      *upstream.AnalyticsSummary
	analyticsErr   error
	analyticsCalls int
	allTasks       []upstream.Task
	myTasks        []upstream.Task
	users          []upstream.User
	listCalls      int
	myCalls        int
	userCalls      int
}

func (m *mockBackend) DashboardAnalytics(ctx context.Context, token string) (*upstream.AnalyticsSummary, error) {
	m.analyticsCalls++
	return m.analytics, m.analyticsErr
}

func (m *mockBackend) ListTasks(ctx context.Context, token string) ([]upstream.Task, error) {
	m.listCalls++
	return m.allTasks, nil
}

func (m *mockBackend) MyTasks(ctx context.Context, token string) ([]upstream.Task, error) {
	m.myCalls++
	return m.myTasks, nil
}

func (m *mockBackend) ListUsers(ctx context.Context, token string) ([]upstream.User, error) {
	m.userCalls++
	return m.users, nil
}

func ptr(v int64) *int64 { return &v }

func newService(t *testing.T, backend *mockBackend, withCache bool) *Service {
	t.Helper()
	var cache *Cache
	if withCache {
		mr := miniredis.RunT(t)
		cache = NewCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	}
	return NewService(backend, cache, nil)
}

func TestLoadPrefersAnalytics(t *testing.T) {
	backend := &mockBackend{analytics: &upstream.AnalyticsSummary{
		TotalTasks:     ptr(12),
		PendingTasks:   ptr(4),
		CompletedTasks: ptr(6),
		OverdueTasks:   ptr(2),
		TotalUsers:     ptr(9),
		ActiveUsers:    ptr(8),
		AssignedByMe:   ptr(3),
	}}
	svc := newService(t, backend, false)
	admin := &rbac.Principal{ID: 1, Role: rbac.RoleAdmin, IsActive: true}

	summary, err := svc.Load(context.Background(), "tok", admin)
	require.NoError(t, err)
	assert.Equal(t, int64(12), summary.Tasks.Total)
	assert.Equal(t, int64(2), summary.Tasks.Overdue)
	require.NotNil(t, summary.Users)
	assert.Equal(t, int64(8), summary.Users.Active)
	require.NotNil(t, summary.AssignedByMe)
	assert.Equal(t, int64(3), *summary.AssignedByMe)
	assert.Nil(t, summary.Companies)
	assert.NotEmpty(t, summary.RecentActivity)
	assert.Zero(t, backend.listCalls)
}

func TestLoadFallbackRecomputesForUser(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)
	nextWeekPlus := now.Add(10 * 24 * time.Hour)
	soon := now.Add(48 * time.Hour)

	backend := &mockBackend{
		analyticsErr: &upstream.APIError{Status: http.StatusInternalServerError},
		myTasks: []upstream.Task{
			{ID: 1, Title: "a", Status: upstream.StatusPending, DueDate: yesterday},
			{ID: 2, Title: "b", Status: upstream.StatusPending, DueDate: yesterday},
			{ID: 3, Title: "c", Status: upstream.StatusCompleted, DueDate: yesterday},
			{ID: 4, Title: "d", Status: upstream.StatusInProgress, DueDate: soon},
			{ID: 5, Title: "e", Status: upstream.StatusPending, DueDate: nextWeekPlus},
		},
	}
	svc := newService(t, backend, false)
	svc.WithNow(func() time.Time { return now })
	user := &rbac.Principal{ID: 7, Role: rbac.RoleUser, IsActive: true}

	summary, err := svc.Load(context.Background(), "tok", user)
	require.NoError(t, err)
	assert.Equal(t, int64(5), summary.Tasks.Total)
	assert.Equal(t, int64(2), summary.Tasks.Overdue)
	assert.Equal(t, int64(1), summary.Tasks.DueSoon)
	assert.Equal(t, int64(3), summary.Tasks.Pending)
	assert.Equal(t, int64(1), summary.Tasks.Completed)
	assert.Equal(t, 1, backend.myCalls)
	assert.Zero(t, backend.listCalls)
	assert.Nil(t, summary.Users)
	assert.NotEmpty(t, summary.RecentActivity)
}

func TestLoadFallbackAdminFetchesTasksAndUsers(t *testing.T) {
	backend := &mockBackend{
		analyticsErr: &upstream.APIError{Status: http.StatusServiceUnavailable},
		allTasks: []upstream.Task{
			{ID: 1, Status: upstream.StatusPending, DueDate: time.Now().Add(time.Hour), AssignedByID: 2},
		},
		users: []upstream.User{
			{ID: 1, IsActive: true},
			{ID: 2, IsActive: false},
		},
	}
	svc := newService(t, backend, false)
	admin := &rbac.Principal{ID: 2, Role: rbac.RoleAdmin, IsActive: true}

	summary, err := svc.Load(context.Background(), "tok", admin)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.listCalls)
	assert.Equal(t, 1, backend.userCalls)
	require.NotNil(t, summary.Users)
	assert.Equal(t, int64(2), summary.Users.Total)
	assert.Equal(t, int64(1), summary.Users.Active)
	require.NotNil(t, summary.AssignedByMe)
	assert.Equal(t, int64(1), *summary.AssignedByMe)
}

func TestLoadSuperAdminDegradesToPlaceholder(t *testing.T) {
	backend := &mockBackend{analyticsErr: &upstream.APIError{Status: http.StatusBadGateway}}
	svc := newService(t, backend, false)
	super := &rbac.Principal{ID: 1, Role: rbac.RoleSuperAdmin, IsActive: true}

	summary, err := svc.Load(context.Background(), "tok", super)
	require.NoError(t, err)
	assert.Zero(t, summary.Tasks.Total)
	require.NotNil(t, summary.Companies)
	assert.Zero(t, summary.Companies.Total)
	require.Len(t, summary.RecentActivity, 1)
	assert.Zero(t, backend.listCalls)
	assert.Zero(t, backend.myCalls)
}

func TestLoadUnauthorizedSkipsFallback(t *testing.T) {
	backend := &mockBackend{analyticsErr: &upstream.APIError{Status: http.StatusUnauthorized}}
	svc := newService(t, backend, false)
	user := &rbac.Principal{ID: 1, Role: rbac.RoleUser}

	_, err := svc.Load(context.Background(), "tok", user)
	require.Error(t, err)
	assert.True(t, upstream.IsUnauthorized(err))
	assert.Zero(t, backend.myCalls)
}

func TestLoadUsesCache(t *testing.T) {
	backend := &mockBackend{analytics: &upstream.AnalyticsSummary{TotalTasks: ptr(1)}}
	svc := newService(t, backend, true)
	user := &rbac.Principal{ID: 3, Role: rbac.RoleUser}

	first, err := svc.Load(context.Background(), "tok", user)
	require.NoError(t, err)
	second, err := svc.Load(context.Background(), "tok", user)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, backend.analyticsCalls)
}

func TestActivityNeverEmpty(t *testing.T) {
	for _, role := range []rbac.Role{rbac.RoleSuperAdmin, rbac.RoleCompany, rbac.RoleAdmin, rbac.RoleUser} {
		p := &rbac.Principal{ID: 1, Role: role}
		lines := ensureActivity(nil, p)
		assert.Len(t, lines, 1, role)
	}
}
