package domain

import (
	"time"

	"github.com/google/uuid"
)

// GenerateID returns a random id for runs and tasks.
func GenerateID() string {
	return uuid.NewString()
}

// TaskType says what a worker does with a vendor.
type TaskType string

const (
	// TaskTypeRebuildVendor rebuilds regardless of TTL (forced rebuild).
	TaskTypeRebuildVendor TaskType = "rebuild_vendor"
	// TaskTypeRefreshVendor rebuilds only when the vendor is STALE.
	TaskTypeRefreshVendor TaskType = "refresh_vendor"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Retry policy for queued builds. A build that lost the lock race or hit a
// storage error is retried after 2s, 4s, 8s ... capped at TaskMaxBackoff.
const (
	DefaultTaskAttempts = 3
	TaskBaseBackoff     = 2 * time.Second
	TaskMaxBackoff      = 5 * time.Minute
)

// Task is a queued build request for one vendor.
type Task struct {
	ID     string     `json:"id"`
	Type   TaskType   `json:"type"`
	Vendor string     `json:"vendor"`
	Status TaskStatus `json:"status"`

	Attempts    int    `json:"attempts"`
	MaxAttempts int    `json:"max_attempts"`
	Error       string `json:"error,omitempty"` // last failure reason

	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ScheduledFor time.Time  `json:"scheduled_for"` // not dequeued before this
}

// NewTask creates a pending task for vendor, due now.
func NewTask(taskType TaskType, vendor string) *Task {
	now := time.Now()
	return &Task{
		ID:           GenerateID(),
		Type:         taskType,
		Vendor:       vendor,
		Status:       TaskStatusPending,
		MaxAttempts:  DefaultTaskAttempts,
		CreatedAt:    now,
		UpdatedAt:    now,
		ScheduledFor: now,
	}
}

func (t *Task) CanRetry() bool {
	return t.Attempts < t.MaxAttempts
}

// MarkProcessing records a dequeue. Each dequeue counts as an attempt.
func (t *Task) MarkProcessing() {
	now := time.Now()
	t.Status = TaskStatusProcessing
	t.Attempts++
	t.StartedAt = &now
	t.UpdatedAt = now
}

func (t *Task) MarkCompleted() {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.Error = ""
	t.CompletedAt = &now
	t.UpdatedAt = now
}

func (t *Task) MarkFailed(reason string) {
	t.Status = TaskStatusFailed
	t.Error = reason
	t.UpdatedAt = time.Now()
}

// Retry puts the task back to pending, due after RetryDelay.
func (t *Task) Retry(reason string) {
	now := time.Now()
	t.Status = TaskStatusPending
	t.Error = reason
	t.UpdatedAt = now
	t.ScheduledFor = now.Add(RetryDelay(t.Attempts))
}

// RetryDelay is the wait before the next try after attempts failures.
func RetryDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := TaskBaseBackoff
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= TaskMaxBackoff {
			return TaskMaxBackoff
		}
	}
	return delay
}
