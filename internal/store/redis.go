package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	runIDSeqKey = "ytresolver:run_id_seq"
	jobIDSeqKey = "ytresolver:job_id_seq"
)

func runKey(id uint64) string          { return fmt.Sprintf("ytresolver:run:%d", id) }
func jobKey(id uint64) string          { return fmt.Sprintf("ytresolver:job:%d", id) }
func jobsByRunKey(runID uint64) string { return fmt.Sprintf("ytresolver:jobs_by_run:%d", runID) }

// RedisState implements State against a shared Redis instance, so the
// orchestrator's writes (running in the API process) are visible to the
// worker pool's reads (running in its own process) without either needing
// to know about the other's existence. Runs and Jobs are stored as
// JSON-encoded strings; jobsByRunKey holds each Job's ID in arrival order
// so JobsForRun doesn't require a secondary index scan.
type RedisState struct {
	client *redis.Client
}

func NewRedisState(client *redis.Client) *RedisState {
	return &RedisState{client: client}
}

func (s *RedisState) NextRunID(ctx context.Context) (uint64, error) {
	n, err := s.client.Incr(ctx, runIDSeqKey).Result()
	if err != nil {
		return 0, fmt.Errorf("allocate run id: %w", err)
	}
	return uint64(n), nil
}

func (s *RedisState) NextJobID(ctx context.Context) (uint64, error) {
	n, err := s.client.Incr(ctx, jobIDSeqKey).Result()
	if err != nil {
		return 0, fmt.Errorf("allocate job id: %w", err)
	}
	return uint64(n), nil
}

func (s *RedisState) CreateRun(ctx context.Context, run *Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	ok, err := s.client.SetNX(ctx, runKey(run.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

func (s *RedisState) GetRun(ctx context.Context, runID uint64) (*Run, error) {
	data, err := s.client.Get(ctx, runKey(runID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("unmarshal run: %w", err)
	}
	return &run, nil
}

func (s *RedisState) UpdateRun(ctx context.Context, run *Run) error {
	exists, err := s.client.Exists(ctx, runKey(run.ID)).Result()
	if err != nil {
		return fmt.Errorf("check run exists: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	if err := s.client.Set(ctx, runKey(run.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

func (s *RedisState) CreateJob(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	ok, err := s.client.SetNX(ctx, jobKey(job.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	if !ok {
		return ErrConflict
	}
	if err := s.client.RPush(ctx, jobsByRunKey(job.RunID), job.ID).Err(); err != nil {
		return fmt.Errorf("index job by run: %w", err)
	}
	return nil
}

func (s *RedisState) GetJob(ctx context.Context, jobID uint64) (*Job, error) {
	data, err := s.client.Get(ctx, jobKey(jobID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}

func (s *RedisState) UpdateJob(ctx context.Context, job *Job) error {
	exists, err := s.client.Exists(ctx, jobKey(job.ID)).Result()
	if err != nil {
		return fmt.Errorf("check job exists: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := s.client.Set(ctx, jobKey(job.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

func (s *RedisState) JobsForRun(ctx context.Context, runID uint64) ([]*Job, error) {
	ids, err := s.client.LRange(ctx, jobsByRunKey(runID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list jobs for run: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = "ytresolver:job:" + id
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("batch get jobs: %w", err)
	}

	jobs := make([]*Job, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue // job key expired or was never written; skip rather than fail the whole query
		}
		var job Job
		if err := json.Unmarshal([]byte(str), &job); err != nil {
			return nil, fmt.Errorf("unmarshal job: %w", err)
		}
		jobs = append(jobs, &job)
	}
	return jobs, nil
}
