package domain

import (
	"testing"
	"time"
)

func TestNewTask(t *testing.T) {
	task := NewTask(TaskTypeRebuildVendor, "fedora")

	if task.ID == "" {
		t.Error("expected generated id")
	}
	if task.Vendor != "fedora" {
		t.Errorf("expected vendor fedora, got %s", task.Vendor)
	}
	if task.Status != TaskStatusPending {
		t.Errorf("expected pending, got %s", task.Status)
	}
	if task.MaxAttempts != 3 {
		t.Errorf("expected 3 max attempts, got %d", task.MaxAttempts)
	}
}

func TestTaskLifecycle(t *testing.T) {
	task := NewTask(TaskTypeRefreshVendor, "ubuntu")

	task.MarkProcessing()
	if task.Status != TaskStatusProcessing || task.Attempts != 1 || task.StartedAt == nil {
		t.Errorf("unexpected processing state %+v", task)
	}

	before := time.Now()
	task.Retry("upstream down")
	if task.Status != TaskStatusPending || task.Error != "upstream down" {
		t.Errorf("unexpected retry state %+v", task)
	}
	if !task.ScheduledFor.After(before) {
		t.Error("retry should schedule in the future")
	}

	task.MarkProcessing()
	task.MarkCompleted()
	if task.Status != TaskStatusCompleted || task.CompletedAt == nil || task.Error != "" {
		t.Errorf("unexpected completed state %+v", task)
	}
}

func TestTaskCanRetry(t *testing.T) {
	task := NewTask(TaskTypeRebuildVendor, "arch")
	task.Attempts = 3
	if task.CanRetry() {
		t.Error("expected no retry after max attempts")
	}
	task.MarkFailed("boom")
	if task.Status != TaskStatusFailed {
		t.Errorf("expected failed, got %s", task.Status)
	}
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 2 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{20, TaskMaxBackoff},
	}
	for _, tt := range tests {
		if got := RetryDelay(tt.attempts); got != tt.want {
			t.Errorf("RetryDelay(%d) = %v, want %v", tt.attempts, got, tt.want)
		}
	}
}
