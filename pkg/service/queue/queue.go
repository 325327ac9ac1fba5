// Package queue runs fire-and-forget jobs on a worker pool with a retry
// policy. Failures are logged and retried; they never propagate back to the
// enqueuer.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/utils/logging"
)

// Job is a unit of asynchronous work
type Job interface {
	ID() string
	Name() string
	Run(ctx context.Context) error
}

// RetryPolicy governs re-execution of failed jobs
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy retries three times with exponential backoff
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
	}
}

// backoff returns the delay before the given retry attempt (1-based)
func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := p.InitialBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// Queue is an in-process worker pool
type Queue struct {
	jobs    chan Job
	retry   RetryPolicy
	workers int

	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	closed  bool
}

type Option func(*Queue)

// WithWorkers sets the worker count
func WithWorkers(n int) Option {
	return func(q *Queue) {
		q.workers = n
	}
}

// WithRetryPolicy overrides the retry policy
func WithRetryPolicy(p RetryPolicy) Option {
	return func(q *Queue) {
		q.retry = p
	}
}

// WithBuffer sets the pending-job buffer size
func WithBuffer(n int) Option {
	return func(q *Queue) {
		q.jobs = make(chan Job, n)
	}
}

// New creates a queue; call Start before enqueuing
func New(opts ...Option) *Queue {
	q := &Queue{
		jobs:    make(chan Job, 64),
		retry:   DefaultRetryPolicy(),
		workers: 2,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start launches the workers. The context bounds all job executions.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for job := range q.jobs {
				q.run(ctx, job)
			}
		}()
	}
}

// Enqueue hands a job to the pool without waiting for execution
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return goerr.New("queue is stopped", goerr.V("job", job.Name()))
	}
	if !q.started {
		return goerr.New("queue is not started", goerr.V("job", job.Name()))
	}

	q.jobs <- job
	return nil
}

// Stop drains pending jobs and waits for in-flight work to finish
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed || !q.started {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
}

func (q *Queue) run(ctx context.Context, job Job) {
	logger := logging.From(ctx).With("job", job.Name(), "job_id", job.ID())

	for attempt := 1; attempt <= q.retry.MaxAttempts; attempt++ {
		err := job.Run(ctx)
		if err == nil {
			logger.Debug("job completed", "attempt", attempt)
			return
		}

		if attempt == q.retry.MaxAttempts {
			logger.Error("job failed, giving up", "error", err, "attempt", attempt)
			return
		}

		delay := q.retry.backoff(attempt)
		logger.Warn("job failed, retrying", "error", err, "attempt", attempt, "backoff", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			logger.Warn("job abandoned, context canceled")
			return
		}
	}
}
