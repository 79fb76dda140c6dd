// Package jobs runs keyed background work on an in-process worker pool.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrNotStarted is returned when enqueueing before Start or after Stop.
	ErrNotStarted = errors.New("queue not started")
	// ErrQueueFull is returned when the buffer has no room; the caller never blocks.
	ErrQueueFull = errors.New("queue full")
)

// Job is a queued unit of work. Jobs sharing a Key coalesce while one is pending.
type Job[T any] struct {
	Key      string
	Payload  T
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler[T any] func(context.Context, Job[T]) error

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
	// OnDone is called once per job after its final attempt; err is nil on success.
	OnDone func(key string, err error)
}

// Queue is a lightweight in-memory job dispatcher backed by goroutines.
type Queue[T any] struct {
	name    string
	handler Handler[T]

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
	onDone     func(string, error)

	jobs    chan Job[T]
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	pending map[string]struct{}
}

// NewQueue builds a new queue with the provided handler.
func NewQueue[T any](name string, handler Handler[T], cfg QueueConfig) *Queue[T] {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue[T]{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger.With(zap.String("queue", name)),
		onDone:     cfg.OnDone,
		jobs:       make(chan Job[T], cfg.BufferSize),
		pending:    make(map[string]struct{}),
	}
}

// Start begins worker consumption. Safe to call once.
func (q *Queue[T]) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.workers))
}

// Stop cancels workers and waits for them to exit. Jobs still buffered are dropped.
func (q *Queue[T]) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.started = false
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Info("queue stopped")
}

// Enqueue schedules payload under key. It returns false without error when a job with the same key
// is already waiting.
func (q *Queue[T]) Enqueue(key string, payload T) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.started {
		return false, fmt.Errorf("queue %s: %w", q.name, ErrNotStarted)
	}
	if _, ok := q.pending[key]; ok {
		return false, nil
	}
	if err := q.push(Job[T]{Key: key, Payload: payload, Enqueued: time.Now().UTC()}); err != nil {
		return false, err
	}
	q.pending[key] = struct{}{}
	return true, nil
}

// Pending returns the number of distinct keys waiting or in retry.
func (q *Queue[T]) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// push must be called with q.mu held.
func (q *Queue[T]) push(job Job[T]) error {
	select {
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueFull)
	}
}

func (q *Queue[T]) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			// Released before running so a change arriving mid-run schedules a fresh pass.
			q.release(job.Key)
			err := q.handler(q.ctx, job)
			if err == nil {
				q.done(job.Key, nil)
				continue
			}
			q.handleFailure(job, err)
		}
	}
}

func (q *Queue[T]) release(key string) {
	q.mu.Lock()
	delete(q.pending, key)
	q.mu.Unlock()
}

func (q *Queue[T]) done(key string, err error) {
	if q.onDone != nil {
		q.onDone(key, err)
	}
}

func (q *Queue[T]) handleFailure(job Job[T], err error) {
	job.Attempt++
	if job.Attempt > q.maxRetries {
		q.logger.Error("job exceeded retries", zap.String("key", job.Key), zap.Int("attempts", job.Attempt), zap.Error(err))
		q.done(job.Key, err)
		return
	}
	q.logger.Warn("job failed, retrying", zap.String("key", job.Key), zap.Int("attempt", job.Attempt), zap.Error(err))

	go func(j Job[T]) {
		timer := time.NewTimer(q.retryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			return
		case <-timer.C:
		}

		q.mu.Lock()
		defer q.mu.Unlock()
		if !q.started {
			return
		}
		if _, ok := q.pending[j.Key]; ok {
			// A newer job for the key is queued and supersedes this retry.
			q.done(j.Key, nil)
			return
		}
		if err := q.push(j); err != nil {
			q.logger.Error("failed to requeue job", zap.String("key", j.Key), zap.Error(err))
			q.done(j.Key, err)
			return
		}
		q.pending[j.Key] = struct{}{}
	}(job)
}
