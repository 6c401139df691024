// Package tasks implements the assignment engine: one draft fanned out to a
// set of recipients, with per-recipient outcomes and a sequential fallback
// when the bulk endpoint is unavailable.
package tasks

import (
	"time"

	"github.com/taskdeck/taskdeck/internal/upstream"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Draft is the task content before it is fanned out to recipients. Title and
// due date are required before any network call is made.
type Draft struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description,omitempty"`
	Priority    string    `json:"priority" validate:"required,oneof=low medium high urgent"`
	DueDate     time.Time `json:"due_date" validate:"required"`
}

// RecipientFailure reports one recipient no task could be created for.
type RecipientFailure struct {
	UserID  int64  `json:"user_id"`
	Message string `json:"message"`
}

// Result partitions the outcome of an assignment. Every requested recipient
// appears in exactly one of the two lists.
type Result struct {
	Successful []upstream.Task    `json:"successful"`
	Failed     []RecipientFailure `json:"failed"`
}

// AllFailed reports a total assignment failure: nothing was committed.
func (r *Result) AllFailed() bool {
	return len(r.Successful) == 0 && len(r.Failed) > 0
}

// Partial reports that some recipients failed while the successful subset
// still stands.
func (r *Result) Partial() bool {
	return len(r.Successful) > 0 && len(r.Failed) > 0
}
