package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
)

func newTestQueue(t *testing.T) (*Queue, *redis.Client) {
	t.Helper()
	_, client := setupTestRedis(t)
	q, err := NewQueue(context.Background(), client, "worker-test")
	require.NoError(t, err)
	return q, client
}

func TestNewQueue(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	q, err := NewQueue(ctx, client, "")
	require.NoError(t, err)
	assert.Contains(t, q.ConsumerName(), consumerPrefix)

	// The group already exists the second time
	_, err = NewQueue(ctx, client, "worker-2")
	assert.NoError(t, err)

	_, err = NewQueue(ctx, nil, "")
	assert.Error(t, err)
}

func TestQueue_EnqueueDequeueAck(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	task := domain.NewTask(domain.TaskTypeRebuildVendor, "fedora")
	require.NoError(t, q.Enqueue(ctx, task))

	got, err := q.DequeueWithTimeout(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, "fedora", got.Vendor)
	assert.Equal(t, domain.TaskTypeRebuildVendor, got.Type)
	assert.Equal(t, domain.TaskStatusProcessing, got.Status)
	assert.Equal(t, 1, got.Attempts)

	require.NoError(t, q.Ack(ctx, task.ID))

	stored, err := q.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, stored.Status)

	empty, err := q.DequeueWithTimeout(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestQueue_DequeueEmpty(t *testing.T) {
	q, _ := newTestQueue(t)

	task, err := q.DequeueWithTimeout(context.Background(), 50*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestQueue_NackRetriesThenFails(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	task := domain.NewTask(domain.TaskTypeRefreshVendor, "debian")
	task.MaxAttempts = 2
	require.NoError(t, q.Enqueue(ctx, task))

	got, err := q.DequeueWithTimeout(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NoError(t, q.Nack(ctx, task.ID, "feed unavailable"))

	stored, err := q.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, stored.Status)
	assert.Equal(t, "feed unavailable", stored.Error)
	assert.True(t, stored.ScheduledFor.After(time.Now()))

	// Backoff has not elapsed
	none, err := q.DequeueWithTimeout(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, none)

	// Make the retry due
	require.NoError(t, q.client.ZAdd(ctx, scheduledTasks, redis.Z{Score: 0, Member: task.ID}).Err())

	retried, err := q.DequeueWithTimeout(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, retried)
	assert.Equal(t, 2, retried.Attempts)

	require.NoError(t, q.Nack(ctx, task.ID, "still down"))
	stored, err = q.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, stored.Status)
	assert.Equal(t, "still down", stored.Error)
}

func TestQueue_ScheduledTaskWaits(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	task := domain.NewTask(domain.TaskTypeRefreshVendor, "ubuntu")
	task.ScheduledFor = time.Now().Add(time.Hour)
	require.NoError(t, q.Enqueue(ctx, task))

	got, err := q.DequeueWithTimeout(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestQueue_MissingTaskRecordIsSkipped(t *testing.T) {
	q, client := newTestQueue(t)
	ctx := context.Background()

	task := domain.NewTask(domain.TaskTypeRebuildVendor, "openssl")
	require.NoError(t, q.Enqueue(ctx, task))
	require.NoError(t, client.Del(ctx, taskKeyPrefix+task.ID).Err())

	got, err := q.DequeueWithTimeout(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestQueue_GetTaskNotFound(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	_, err := q.GetTask(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, q.Nack(ctx, "missing", "x"), domain.ErrNotFound)
	assert.ErrorIs(t, q.Enqueue(ctx, nil), domain.ErrInvalidInput)
	assert.NoError(t, q.Ping(ctx))
}
