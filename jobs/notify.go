// Package jobs carries the background work the gateway defers: delivering
// assignment notices without holding up the request that created the tasks.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/taskdeck/taskdeck/internal/tasks"
	"github.com/taskdeck/taskdeck/internal/upstream"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeAssignmentNotify is the task type for assignment notices.
	TaskTypeAssignmentNotify = "notify:assignment"
)

// NewAssignmentNotifyTask constructs an Asynq task for one notice.
func NewAssignmentNotifyTask(notice tasks.AssignmentNotice) (*asynq.Task, error) {
	data, err := json.Marshal(notice)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAssignmentNotify, data), nil
}

// Notifier adapts the Asynq client to the assignment engine's Notifier
// contract. Enqueue failures surface to the engine, which logs and moves
// on; the created task is never rolled back.
type Notifier struct {
	client *asynq.Client
}

// NewNotifier constructs a Notifier.
func NewNotifier(redisOpts asynq.RedisClientOpt) *Notifier {
	return &Notifier{client: asynq.NewClient(redisOpts)}
}

// EnqueueAssignment queues one notice for delivery.
func (n *Notifier) EnqueueAssignment(ctx context.Context, notice tasks.AssignmentNotice) error {
	task, err := NewAssignmentNotifyTask(notice)
	if err != nil {
		return err
	}
	_, err = n.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(5))
	return err
}

// Close releases the underlying client.
func (n *Notifier) Close() error {
	return n.client.Close()
}

// NotificationBackend is the slice of the upstream client the deliverer
// needs.
type NotificationBackend interface {
	CreateNotification(ctx context.Context, token string, in upstream.NotificationCreate) (upstream.Notification, error)
}

// Deliverer turns queued notices into backend notifications using a service
// token.
type Deliverer struct {
	backend NotificationBackend
	token   string
	logger  *slog.Logger
}

// NewDeliverer constructs a Deliverer.
func NewDeliverer(backend NotificationBackend, token string, logger *slog.Logger) *Deliverer {
	return &Deliverer{backend: backend, token: token, logger: logger}
}

// HandleAssignmentNotify processes TaskTypeAssignmentNotify tasks.
func (d *Deliverer) HandleAssignmentNotify(ctx context.Context, t *asynq.Task) error {
	var notice tasks.AssignmentNotice
	if err := json.Unmarshal(t.Payload(), &notice); err != nil {
		return asynq.SkipRetry
	}
	message := fmt.Sprintf("You have been assigned %q", notice.TaskTitle)
	if notice.AssignerName != "" {
		message = fmt.Sprintf("%s assigned you %q", notice.AssignerName, notice.TaskTitle)
	}
	_, err := d.backend.CreateNotification(ctx, d.token, upstream.NotificationCreate{
		UserID:  notice.RecipientID,
		Title:   "New task assigned",
		Message: message,
	})
	if err != nil {
		if d.logger != nil {
			d.logger.Error("deliver assignment notice",
				slog.Int64("recipient", notice.RecipientID),
				slog.Int64("task", notice.TaskID),
				slog.Any("error", err))
		}
		return err
	}
	return nil
}
