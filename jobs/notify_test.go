package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck/internal/tasks"
	"github.com/taskdeck/taskdeck/internal/upstream"
)

type stubBackend struct {
	created []upstream.NotificationCreate
	err     error
}

func (s *stubBackend) CreateNotification(ctx context.Context, token string, in upstream.NotificationCreate) (upstream.Notification, error) {
	s.created = append(s.created, in)
	return upstream.Notification{ID: 1, UserID: in.UserID}, s.err
}

func TestHandleAssignmentNotify(t *testing.T) {
	backend := &stubBackend{}
	deliverer := NewDeliverer(backend, "svc-token", nil)

	task, err := NewAssignmentNotifyTask(tasks.AssignmentNotice{
		RecipientID:  7,
		TaskID:       31,
		TaskTitle:    "Quarterly audit",
		AssignerName: "Alex",
	})
	require.NoError(t, err)

	require.NoError(t, deliverer.HandleAssignmentNotify(context.Background(), task))
	require.Len(t, backend.created, 1)
	assert.Equal(t, int64(7), backend.created[0].UserID)
	assert.Contains(t, backend.created[0].Message, "Alex")
	assert.Contains(t, backend.created[0].Message, "Quarterly audit")
}

func TestHandleAssignmentNotifyMalformedPayloadSkipsRetry(t *testing.T) {
	deliverer := NewDeliverer(&stubBackend{}, "svc-token", nil)
	task := asynq.NewTask(TaskTypeAssignmentNotify, []byte("not json"))

	err := deliverer.HandleAssignmentNotify(context.Background(), task)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleAssignmentNotifyDeliveryErrorRetries(t *testing.T) {
	backend := &stubBackend{err: errors.New("backend down")}
	deliverer := NewDeliverer(backend, "svc-token", nil)

	task, err := NewAssignmentNotifyTask(tasks.AssignmentNotice{RecipientID: 1, TaskID: 2, TaskTitle: "x"})
	require.NoError(t, err)

	err = deliverer.HandleAssignmentNotify(context.Background(), task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}
