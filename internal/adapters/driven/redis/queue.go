package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driven"
)

const (
	taskStream     = "releasetrain:tasks"
	taskGroup      = "releasetrain:workers"
	scheduledTasks = "releasetrain:scheduled"
	taskKeyPrefix  = "releasetrain:task:"

	consumerPrefix = "worker-"

	// taskRetention bounds how long task records stay readable
	taskRetention = 24 * time.Hour

	// claimTimeout is how long a delivered task may sit unacked before
	// another worker takes it over
	claimTimeout = 15 * time.Minute
)

// Verify interface compliance
var _ driven.TaskQueue = (*Queue)(nil)

// Queue implements TaskQueue using a Redis Stream with one consumer group.
// Task records live under their own keys; the stream only carries IDs.
// Retries wait in a sorted set until they are due.
type Queue struct {
	client       *redis.Client
	consumerName string
}

// NewQueue creates a Redis-backed task queue.
// consumerName should be unique per worker; empty generates one.
func NewQueue(ctx context.Context, client *redis.Client, consumerName string) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if consumerName == "" {
		consumerName = consumerPrefix + uuid.NewString()
	}

	err := client.XGroupCreateMkStream(ctx, taskStream, taskGroup, "0").Err()
	if err != nil && !isGroupExistsError(err) {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &Queue{client: client, consumerName: consumerName}, nil
}

// ConsumerName returns the stream consumer this queue reads as
func (q *Queue) ConsumerName() string {
	return q.consumerName
}

// Enqueue stores the task and publishes it, or parks it until ScheduledFor.
func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return fmt.Errorf("%w: task is required", domain.ErrInvalidInput)
	}

	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, taskKeyPrefix+task.ID, data, taskRetention)
	if task.ScheduledFor.After(time.Now()) {
		pipe.ZAdd(ctx, scheduledTasks, redis.Z{Score: float64(task.ScheduledFor.Unix()), Member: task.ID})
	} else {
		pipe.XAdd(ctx, streamArgs(task))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// DequeueWithTimeout returns the next task, waiting up to timeout.
// A timeout of zero or less does not block.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout time.Duration) (*domain.Task, error) {
	// Best effort; a failure here only delays retries
	_ = q.promoteScheduledTasks(ctx)

	if task, err := q.claimAbandonedTask(ctx); err == nil && task != nil {
		return task, nil
	}

	block := timeout
	if block <= 0 {
		block = -1
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    taskGroup,
		Consumer: q.consumerName,
		Streams:  []string{taskStream, ">"},
		Count:    1,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}

	return q.deliver(ctx, streams[0].Messages[0])
}

// Ack marks the task completed and drops its stream entry.
func (q *Queue) Ack(ctx context.Context, taskID string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	msgID, err := q.client.Get(ctx, msgKey(taskID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to get message ID: %w", err)
	}

	task.MarkCompleted()
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	pipe := q.client.TxPipeline()
	if msgID != "" {
		pipe.XAck(ctx, taskStream, taskGroup, msgID)
		pipe.XDel(ctx, taskStream, msgID)
	}
	pipe.Set(ctx, taskKeyPrefix+taskID, data, taskRetention)
	pipe.Del(ctx, msgKey(taskID))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to ack task: %w", err)
	}
	return nil
}

// Nack schedules a retry with backoff, or fails the task once its
// attempts are spent.
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	msgID, _ := q.client.Get(ctx, msgKey(taskID)).Result()

	retry := task.CanRetry()
	if retry {
		task.Retry(reason)
	} else {
		task.MarkFailed(reason)
	}
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	pipe := q.client.TxPipeline()
	if msgID != "" {
		pipe.XAck(ctx, taskStream, taskGroup, msgID)
		pipe.XDel(ctx, taskStream, msgID)
	}
	pipe.Set(ctx, taskKeyPrefix+taskID, data, taskRetention)
	if retry {
		pipe.ZAdd(ctx, scheduledTasks, redis.Z{Score: float64(task.ScheduledFor.Unix()), Member: task.ID})
	}
	pipe.Del(ctx, msgKey(taskID))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to nack task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID.
// Returns domain.ErrNotFound when the record is missing or expired.
func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	data, err := q.client.Get(ctx, taskKeyPrefix+taskID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	var task domain.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	return &task, nil
}

// Ping checks if the queue backend is healthy.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close is a no-op; the client is shared with the lock.
func (q *Queue) Close() error {
	return nil
}

// deliver loads the task behind a stream message and marks it processing.
// Messages whose task record is gone are acked and skipped.
func (q *Queue) deliver(ctx context.Context, msg redis.XMessage) (*domain.Task, error) {
	taskID, ok := msg.Values["task_id"].(string)
	if !ok {
		q.drop(ctx, msg.ID)
		return nil, nil
	}

	task, err := q.GetTask(ctx, taskID)
	if errors.Is(err, domain.ErrNotFound) {
		q.drop(ctx, msg.ID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	task.MarkProcessing()
	data, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, taskKeyPrefix+task.ID, data, taskRetention)
	pipe.Set(ctx, msgKey(task.ID), msg.ID, taskRetention)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to mark task processing: %w", err)
	}
	return task, nil
}

func (q *Queue) drop(ctx context.Context, msgID string) {
	q.client.XAck(ctx, taskStream, taskGroup, msgID)
	q.client.XDel(ctx, taskStream, msgID)
}

// promoteScheduledTasks moves due retries onto the stream.
func (q *Queue) promoteScheduledTasks(ctx context.Context) error {
	ids, err := q.client.ZRangeByScore(ctx, scheduledTasks, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", time.Now().Unix()),
	}).Result()
	if err != nil || len(ids) == 0 {
		return err
	}

	pipe := q.client.TxPipeline()
	for _, id := range ids {
		pipe.ZRem(ctx, scheduledTasks, id)
		task, err := q.GetTask(ctx, id)
		if err != nil {
			continue
		}
		pipe.XAdd(ctx, streamArgs(task))
	}
	_, err = pipe.Exec(ctx)
	return err
}

// claimAbandonedTask takes over a message another worker read but never
// acked within claimTimeout.
func (q *Queue) claimAbandonedTask(ctx context.Context) (*domain.Task, error) {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: taskStream,
		Group:  taskGroup,
		Start:  "-",
		End:    "+",
		Count:  10,
		Idle:   claimTimeout,
	}).Result()
	if err != nil {
		return nil, err
	}

	for _, p := range pending {
		claimed, err := q.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   taskStream,
			Group:    taskGroup,
			Consumer: q.consumerName,
			MinIdle:  claimTimeout,
			Messages: []string{p.ID},
		}).Result()
		if err != nil || len(claimed) == 0 {
			continue
		}

		task, err := q.deliver(ctx, claimed[0])
		if err == nil && task != nil {
			return task, nil
		}
	}
	return nil, nil
}

func streamArgs(task *domain.Task) *redis.XAddArgs {
	return &redis.XAddArgs{
		Stream: taskStream,
		Values: map[string]any{
			"task_id": task.ID,
			"type":    string(task.Type),
			"vendor":  task.Vendor,
		},
	}
}

func msgKey(taskID string) string {
	return taskKeyPrefix + taskID + ":msg"
}

func isGroupExistsError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}
