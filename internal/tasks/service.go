package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/taskdeck/taskdeck/internal/platform/httpx"
	"github.com/taskdeck/taskdeck/internal/rbac"
	"github.com/taskdeck/taskdeck/internal/upstream"
)

// Backend is the slice of the upstream client the engine needs.
type Backend interface {
	CreateTask(ctx context.Context, token string, in upstream.TaskCreate) (upstream.Task, error)
	CreateTasksBulk(ctx context.Context, token string, in upstream.BulkTaskCreate) (*upstream.BulkResult, error)
	ListUsers(ctx context.Context, token string) ([]upstream.User, error)
	ListTasks(ctx context.Context, token string) ([]upstream.Task, error)
	MyTasks(ctx context.Context, token string) ([]upstream.Task, error)
	UpdateTask(ctx context.Context, token string, id int64, in upstream.TaskCreate) (upstream.Task, error)
	UpdateTaskStatus(ctx context.Context, token string, id int64, status string) (upstream.Task, error)
	DeleteTask(ctx context.Context, token string, id int64) error
}

// AssignmentNotice describes the notification sent to a recipient after a
// task was created for them.
type AssignmentNotice struct {
	RecipientID  int64  `json:"recipient_id"`
	TaskID       int64  `json:"task_id"`
	TaskTitle    string `json:"task_title"`
	AssignerID   int64  `json:"assigner_id"`
	AssignerName string `json:"assigner_name"`
}

// Notifier delivers assignment notices. Enqueue failures never invalidate
// the task they refer to.
type Notifier interface {
	EnqueueAssignment(ctx context.Context, notice AssignmentNotice) error
}

// Service is the assignment engine.
type Service struct {
	backend  Backend
	notifier Notifier
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService constructs the engine.
func NewService(backend Backend, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		backend:  backend,
		notifier: notifier,
		validate: validator.New(),
		logger:   logger,
	}
}

// ResolveRecipients merges individually chosen recipients with named-group
// selections. Group membership is snapshotted from the current user listing
// at this moment; the returned set does not track later membership changes.
func (s *Service) ResolveRecipients(ctx context.Context, token string, userIDs []int64, groups []Group) ([]int64, error) {
	selection := NewSelection()
	if len(groups) > 0 {
		users, err := s.backend.ListUsers(ctx, token)
		if err != nil {
			return nil, err
		}
		for _, g := range groups {
			if !g.Known() {
				return nil, fmt.Errorf("%w: unknown recipient group %q", httpx.ErrValidation, g)
			}
			selection.SelectGroup(g, GroupMembers(g, users))
		}
	}
	for _, id := range userIDs {
		selection.SelectUser(id)
	}
	return selection.IDs(), nil
}

// Assign creates one task per recipient. The bulk endpoint is preferred; if
// that call itself fails the engine degrades to sequential per-recipient
// creation. Either way every recipient ends up in exactly one of the result
// partitions.
func (s *Service) Assign(ctx context.Context, token string, principal *rbac.Principal, draft Draft, recipients []int64) (*Result, error) {
	if !rbac.HasPermission(principal, rbac.PermAssignTasks) {
		return nil, httpx.ErrForbidden
	}
	if err := s.validate.Struct(draft); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	recipients = dedupe(recipients)
	if len(recipients) == 0 {
		return nil, fmt.Errorf("%w: at least one recipient is required", httpx.ErrValidation)
	}

	result, err := s.assignBulk(ctx, token, draft, recipients)
	if err != nil {
		// A 401 means the session itself is dead; repeating the call per
		// recipient would only repeat the rejection.
		if upstream.IsUnauthorized(err) {
			return nil, err
		}
		if s.logger != nil {
			s.logger.Warn("bulk create failed, falling back to per-recipient creation",
				slog.Int("recipients", len(recipients)), slog.Any("error", err))
		}
		result = s.assignSequential(ctx, token, draft, recipients)
	}

	s.notifyAll(ctx, principal, result.Successful)
	return result, nil
}

func (s *Service) assignBulk(ctx context.Context, token string, draft Draft, recipients []int64) (*Result, error) {
	bulk, err := s.backend.CreateTasksBulk(ctx, token, upstream.BulkTaskCreate{
		Title:         draft.Title,
		Description:   draft.Description,
		Priority:      draft.Priority,
		DueDate:       draft.DueDate,
		AssignedToIDs: recipients,
	})
	if err != nil {
		return nil, err
	}

	result := &Result{
		Successful: bulk.Successful,
		Failed:     make([]RecipientFailure, 0, len(bulk.Failed)),
	}
	seen := make(map[int64]struct{}, len(recipients))
	for _, task := range bulk.Successful {
		seen[task.AssignedToID] = struct{}{}
	}
	for _, failure := range bulk.Failed {
		seen[failure.UserID] = struct{}{}
		result.Failed = append(result.Failed, RecipientFailure{UserID: failure.UserID, Message: failure.Message})
	}
	// The backend partition is accepted as-is, but every recipient must be
	// accounted for exactly once.
	for _, id := range recipients {
		if _, ok := seen[id]; !ok {
			result.Failed = append(result.Failed, RecipientFailure{UserID: id, Message: "no outcome reported by bulk create"})
		}
	}
	return result, nil
}

// assignSequential issues one create per recipient in order, accumulating
// outcomes independently. Slower than bulk, but survives an unavailable
// bulk endpoint.
func (s *Service) assignSequential(ctx context.Context, token string, draft Draft, recipients []int64) *Result {
	result := &Result{}
	for _, id := range recipients {
		task, err := s.backend.CreateTask(ctx, token, upstream.TaskCreate{
			Title:        draft.Title,
			Description:  draft.Description,
			Priority:     draft.Priority,
			DueDate:      draft.DueDate,
			AssignedToID: id,
		})
		if err != nil {
			result.Failed = append(result.Failed, RecipientFailure{UserID: id, Message: failureMessage(err)})
			continue
		}
		result.Successful = append(result.Successful, task)
	}
	return result
}

// notifyAll enqueues one assignment notice per created task, strictly after
// creation. A failed enqueue is logged and dropped; the task stands.
func (s *Service) notifyAll(ctx context.Context, principal *rbac.Principal, created []upstream.Task) {
	if s.notifier == nil {
		return
	}
	for _, task := range created {
		notice := AssignmentNotice{
			RecipientID:  task.AssignedToID,
			TaskID:       task.ID,
			TaskTitle:    task.Title,
			AssignerID:   principal.ID,
			AssignerName: principal.Name,
		}
		if err := s.notifier.EnqueueAssignment(ctx, notice); err != nil && s.logger != nil {
			s.logger.Error("enqueue assignment notice",
				slog.Int64("recipient", task.AssignedToID),
				slog.Int64("task", task.ID),
				slog.Any("error", err))
		}
	}
}

// List returns every task visible to the principal's role.
func (s *Service) List(ctx context.Context, token string) ([]upstream.Task, error) {
	return s.backend.ListTasks(ctx, token)
}

// Mine returns tasks assigned to the principal.
func (s *Service) Mine(ctx context.Context, token string) ([]upstream.Task, error) {
	return s.backend.MyTasks(ctx, token)
}

// Update rewrites task content.
func (s *Service) Update(ctx context.Context, token string, id int64, draft Draft) (upstream.Task, error) {
	if err := s.validate.Struct(draft); err != nil {
		return upstream.Task{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return s.backend.UpdateTask(ctx, token, id, upstream.TaskCreate{
		Title:       draft.Title,
		Description: draft.Description,
		Priority:    draft.Priority,
		DueDate:     draft.DueDate,
	})
}

// UpdateStatus transitions a task.
func (s *Service) UpdateStatus(ctx context.Context, token string, id int64, status string) (upstream.Task, error) {
	switch status {
	case upstream.StatusPending, upstream.StatusInProgress, upstream.StatusCompleted, upstream.StatusCancelled:
	default:
		return upstream.Task{}, fmt.Errorf("%w: unknown status %q", httpx.ErrValidation, status)
	}
	return s.backend.UpdateTaskStatus(ctx, token, id, status)
}

// Delete removes a task.
func (s *Service) Delete(ctx context.Context, token string, id int64) error {
	return s.backend.DeleteTask(ctx, token, id)
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func failureMessage(err error) string {
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "task creation failed"
}
