package tasks

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck/internal/platform/httpx"
	"github.com/taskdeck/taskdeck/internal/rbac"
	"github.com/taskdeck/taskdeck/internal/upstream"
)

type mockBackend struct {
	bulkResult  *upstream.BulkResult
	bulkErr     error
	bulkCalls   int
	createErrs  map[int64]error
	createCalls []int64
	users       []upstream.User
	nextTaskID  int64
}

func (m *mockBackend) CreateTask(ctx context.Context, token string, in upstream.TaskCreate) (upstream.Task, error) {
	m.createCalls = append(m.createCalls, in.AssignedToID)
	if err := m.createErrs[in.AssignedToID]; err != nil {
		return upstream.Task{}, err
	}
	m.nextTaskID++
	return upstream.Task{
		ID:           m.nextTaskID,
		Title:        in.Title,
		Priority:     in.Priority,
		DueDate:      in.DueDate,
		AssignedToID: in.AssignedToID,
		Status:       upstream.StatusPending,
	}, nil
}

func (m *mockBackend) CreateTasksBulk(ctx context.Context, token string, in upstream.BulkTaskCreate) (*upstream.BulkResult, error) {
	m.bulkCalls++
	if m.bulkErr != nil {
		return nil, m.bulkErr
	}
	return m.bulkResult, nil
}

func (m *mockBackend) ListUsers(ctx context.Context, token string) ([]upstream.User, error) {
	return m.users, nil
}

func (m *mockBackend) ListTasks(ctx context.Context, token string) ([]upstream.Task, error) {
	return nil, nil
}

func (m *mockBackend) MyTasks(ctx context.Context, token string) ([]upstream.Task, error) {
	return nil, nil
}

func (m *mockBackend) UpdateTask(ctx context.Context, token string, id int64, in upstream.TaskCreate) (upstream.Task, error) {
	return upstream.Task{ID: id, Title: in.Title}, nil
}

func (m *mockBackend) UpdateTaskStatus(ctx context.Context, token string, id int64, status string) (upstream.Task, error) {
	return upstream.Task{ID: id, Status: status}, nil
}

func (m *mockBackend) DeleteTask(ctx context.Context, token string, id int64) error {
	return nil
}

type recordingNotifier struct {
	notices []AssignmentNotice
	err     error
}

func (n *recordingNotifier) EnqueueAssignment(ctx context.Context, notice AssignmentNotice) error {
	n.notices = append(n.notices, notice)
	return n.err
}

func assigner() *rbac.Principal {
	return &rbac.Principal{ID: 50, Role: rbac.RoleAdmin, Name: "Alex", IsActive: true}
}

func validDraft() Draft {
	return Draft{
		Title:    "Quarterly audit",
		Priority: PriorityHigh,
		DueDate:  time.Now().Add(72 * time.Hour),
	}
}

func TestAssignBulkPreferred(t *testing.T) {
	backend := &mockBackend{
		bulkResult: &upstream.BulkResult{
			Successful: []upstream.Task{
				{ID: 10, AssignedToID: 1, Title: "Quarterly audit"},
				{ID: 11, AssignedToID: 2, Title: "Quarterly audit"},
			},
		},
	}
	notifier := &recordingNotifier{}
	svc := NewService(backend, notifier, nil)

	result, err := svc.Assign(context.Background(), "tok", assigner(), validDraft(), []int64{1, 2})
	require.NoError(t, err)
	assert.Len(t, result.Successful, 2)
	assert.Empty(t, result.Failed)
	assert.Equal(t, 1, backend.bulkCalls)
	assert.Empty(t, backend.createCalls)
	assert.Len(t, notifier.notices, 2)
	assert.Equal(t, int64(50), notifier.notices[0].AssignerID)
}

func TestAssignFallbackOnBulkFailure(t *testing.T) {
	backend := &mockBackend{
		bulkErr:    &upstream.APIError{Status: http.StatusServiceUnavailable},
		createErrs: map[int64]error{2: &upstream.APIError{Status: http.StatusBadRequest, Message: "user deactivated"}},
	}
	notifier := &recordingNotifier{}
	svc := NewService(backend, notifier, nil)

	result, err := svc.Assign(context.Background(), "tok", assigner(), validDraft(), []int64{1, 2, 3})
	require.NoError(t, err)

	// Sequential fallback, in recipient order.
	assert.Equal(t, []int64{1, 2, 3}, backend.createCalls)

	require.Len(t, result.Successful, 2)
	assert.Equal(t, int64(1), result.Successful[0].AssignedToID)
	assert.Equal(t, int64(3), result.Successful[1].AssignedToID)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, int64(2), result.Failed[0].UserID)
	assert.Equal(t, "user deactivated", result.Failed[0].Message)
	assert.True(t, result.Partial())

	// Notices only for the tasks that exist.
	require.Len(t, notifier.notices, 2)
	assert.Equal(t, int64(1), notifier.notices[0].RecipientID)
	assert.Equal(t, int64(3), notifier.notices[1].RecipientID)
}

func TestAssignFallbackOnBulkRejection(t *testing.T) {
	// A 422 from the bulk endpoint degrades to per-recipient creation just
	// like an outage does.
	backend := &mockBackend{
		bulkErr: &upstream.APIError{Status: http.StatusUnprocessableEntity, Message: "bulk disabled"},
	}
	svc := NewService(backend, &recordingNotifier{}, nil)

	result, err := svc.Assign(context.Background(), "tok", assigner(), validDraft(), []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, backend.createCalls)
	assert.Len(t, result.Successful, 2)
}

func TestAssignBulkUnauthorizedPropagates(t *testing.T) {
	backend := &mockBackend{
		bulkErr: &upstream.APIError{Status: http.StatusUnauthorized},
	}
	svc := NewService(backend, &recordingNotifier{}, nil)

	_, err := svc.Assign(context.Background(), "tok", assigner(), validDraft(), []int64{1, 2})
	require.Error(t, err)
	assert.True(t, upstream.IsUnauthorized(err))
	assert.Empty(t, backend.createCalls)
}

func TestAssignDoesNotMutateRecipients(t *testing.T) {
	backend := &mockBackend{bulkResult: &upstream.BulkResult{}}
	svc := NewService(backend, nil, nil)

	recipients := []int64{1, 1, 2, 2, 3}
	_, err := svc.Assign(context.Background(), "tok", assigner(), validDraft(), recipients)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1, 2, 2, 3}, recipients)
}

func TestAssignAccountsForEveryRecipient(t *testing.T) {
	// The backend partition forgot recipient 3.
	backend := &mockBackend{
		bulkResult: &upstream.BulkResult{
			Successful: []upstream.Task{{ID: 10, AssignedToID: 1}},
			Failed:     []upstream.BulkFailure{{UserID: 2, Message: "quota"}},
		},
	}
	svc := NewService(backend, &recordingNotifier{}, nil)

	result, err := svc.Assign(context.Background(), "tok", assigner(), validDraft(), []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, len(result.Successful)+len(result.Failed))
}

func TestAssignTotalFailure(t *testing.T) {
	backend := &mockBackend{
		bulkErr: errors.New("connection refused"),
		createErrs: map[int64]error{
			1: &upstream.APIError{Status: http.StatusBadRequest},
			2: &upstream.APIError{Status: http.StatusBadRequest},
		},
	}
	notifier := &recordingNotifier{}
	svc := NewService(backend, notifier, nil)

	result, err := svc.Assign(context.Background(), "tok", assigner(), validDraft(), []int64{1, 2})
	require.NoError(t, err)
	assert.True(t, result.AllFailed())
	assert.Empty(t, notifier.notices)
}

func TestAssignValidationBlocksNetwork(t *testing.T) {
	backend := &mockBackend{}
	svc := NewService(backend, nil, nil)

	cases := []struct {
		name       string
		draft      Draft
		recipients []int64
	}{
		{"empty title", Draft{Priority: PriorityLow, DueDate: time.Now().Add(time.Hour)}, []int64{1}},
		{"missing due date", Draft{Title: "x", Priority: PriorityLow}, []int64{1}},
		{"bad priority", Draft{Title: "x", Priority: "asap", DueDate: time.Now().Add(time.Hour)}, []int64{1}},
		{"no recipients", validDraft(), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Assign(context.Background(), "tok", assigner(), tc.draft, tc.recipients)
			require.Error(t, err)
			assert.True(t, errors.Is(err, httpx.ErrValidation))
		})
	}
	assert.Zero(t, backend.bulkCalls)
	assert.Empty(t, backend.createCalls)
}

func TestAssignRequiresPermission(t *testing.T) {
	backend := &mockBackend{}
	svc := NewService(backend, nil, nil)

	plain := &rbac.Principal{ID: 9, Role: rbac.RoleUser, CanAssignTasks: false}
	_, err := svc.Assign(context.Background(), "tok", plain, validDraft(), []int64{1})
	assert.True(t, errors.Is(err, httpx.ErrForbidden))
	assert.Zero(t, backend.bulkCalls)

	granted := &rbac.Principal{ID: 9, Role: rbac.RoleUser, CanAssignTasks: true}
	backend.bulkResult = &upstream.BulkResult{Successful: []upstream.Task{{ID: 1, AssignedToID: 1}}}
	_, err = svc.Assign(context.Background(), "tok", granted, validDraft(), []int64{1})
	assert.NoError(t, err)
}

func TestAssignNotifierFailureDoesNotAffectResult(t *testing.T) {
	backend := &mockBackend{
		bulkResult: &upstream.BulkResult{Successful: []upstream.Task{{ID: 1, AssignedToID: 1}}},
	}
	notifier := &recordingNotifier{err: errors.New("queue down")}
	svc := NewService(backend, notifier, nil)

	result, err := svc.Assign(context.Background(), "tok", assigner(), validDraft(), []int64{1})
	require.NoError(t, err)
	assert.Len(t, result.Successful, 1)
}

func TestResolveRecipientsMergesGroupsAndIndividuals(t *testing.T) {
	backend := &mockBackend{users: []upstream.User{
		{ID: 1, Role: "admin"},
		{ID: 2, Role: "admin"},
		{ID: 3, Role: "user"},
		{ID: 4, Role: "user"},
	}}
	svc := NewService(backend, nil, nil)

	ids, err := svc.ResolveRecipients(context.Background(), "tok", []int64{4, 9}, []Group{GroupAllAdmins})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 4, 9}, ids)

	_, err = svc.ResolveRecipients(context.Background(), "tok", nil, []Group{"allManagers"})
	assert.True(t, errors.Is(err, httpx.ErrValidation))
}

func TestUpdateStatusRejectsUnknown(t *testing.T) {
	svc := NewService(&mockBackend{}, nil, nil)
	_, err := svc.UpdateStatus(context.Background(), "tok", 1, "paused")
	assert.True(t, errors.Is(err, httpx.ErrValidation))

	task, err := svc.UpdateStatus(context.Background(), "tok", 1, upstream.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, upstream.StatusCompleted, task.Status)
}
