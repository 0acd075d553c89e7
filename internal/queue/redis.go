package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	jobListKey       = "ytresolver:jobs"
	finalizeListKey  = "ytresolver:finalize"
	blockingPopDelay = 0 // block indefinitely, bounded by ctx
)

// RedisQueue implements Queue over Redis lists, the durable broker Jobs and
// finalize signals move through between the API process and the worker
// pool. Delivery is at-most-once: BLPOP removes a task before it is
// processed and there is no visibility timeout or redelivery, so a task
// whose consumer crashes mid-task is lost.
type RedisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

func (q *RedisQueue) EnqueueJob(ctx context.Context, task JobTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal job task: %w", err)
	}
	return q.client.RPush(ctx, jobListKey, data).Err()
}

func (q *RedisQueue) EnqueueFinalize(ctx context.Context, runID uint64) error {
	return q.client.RPush(ctx, finalizeListKey, runID).Err()
}

func (q *RedisQueue) DequeueJob(ctx context.Context) (JobTask, error) {
	res, err := q.client.BLPop(ctx, blockingPopDelay, jobListKey).Result()
	if err != nil {
		return JobTask{}, err
	}
	var task JobTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		return JobTask{}, fmt.Errorf("unmarshal job task: %w", err)
	}
	return task, nil
}

func (q *RedisQueue) DequeueFinalize(ctx context.Context) (uint64, error) {
	res, err := q.client.BLPop(ctx, blockingPopDelay, finalizeListKey).Result()
	if err != nil {
		return 0, err
	}
	var runID uint64
	if _, err := fmt.Sscanf(res[1], "%d", &runID); err != nil {
		return 0, fmt.Errorf("parse run id: %w", err)
	}
	return runID, nil
}
