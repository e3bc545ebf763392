package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// JobQueue hands background jobs to out-of-process workers.
type JobQueue interface {
	Enqueue(ctx context.Context, job string, payload any) error
}

// Job is the envelope workers pop from the queue.
type Job struct {
	Name    string          `json:"job"`
	Payload json.RawMessage `json:"data"`
}

// RedisQueue pushes JSON jobs onto a redis list; workers BRPOP from the other end.
type RedisQueue struct {
	rc  *RedisClient
	key string
}

// NewRedisQueue creates a queue on the list at key (e.g. "jobs:send_sms")
func NewRedisQueue(rc *RedisClient, key string) *RedisQueue {
	return &RedisQueue{rc: rc, key: key}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job string, payload any) error {
	body, err := encodeJob(job, payload)
	if err != nil {
		return err
	}
	return q.rc.LPush(ctx, q.key, body)
}

func encodeJob(job string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", job, err)
	}
	return json.Marshal(Job{Name: job, Payload: data})
}

// MemoryQueue keeps jobs in memory. It stands in for redis in development and tests.
type MemoryQueue struct {
	mu   sync.Mutex
	jobs []Job
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Enqueue(_ context.Context, job string, payload any) error {
	body, err := encodeJob(job, payload)
	if err != nil {
		return err
	}
	var j Job
	if err := json.Unmarshal(body, &j); err != nil {
		return err
	}
	q.mu.Lock()
	q.jobs = append(q.jobs, j)
	q.mu.Unlock()
	return nil
}

// Jobs returns a copy of the queued jobs, oldest first.
func (q *MemoryQueue) Jobs() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Job(nil), q.jobs...)
}
