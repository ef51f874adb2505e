package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job represents a queued background task. Key groups jobs that must not run side by side
// (for grade transfers, the unit id); it is what Active reports on.
type Job struct {
	ID       string
	Type     string
	Key      string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// QueueConfig configures worker pool behaviour. MaxRetries of zero disables requeueing.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Queue is a lightweight in-memory job dispatcher backed by goroutines.
type Queue struct {
	name    string
	handler Handler

	workers    int
	bufferSize int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool

	keysMu   sync.Mutex
	pending  map[string]int
	inFlight map[string]int
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
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

	return &Queue{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		bufferSize: cfg.BufferSize,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		jobs:       make(chan Job, cfg.BufferSize),
		pending:    make(map[string]int),
		inFlight:   make(map[string]int),
	}
}

// Start begins worker consumption. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i + 1)
	}
	q.started = true
	q.logger.Sugar().Infow("queue started", "queue", q.name, "workers", q.workers)
}

// Stop cancels workers and waits for them to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Sugar().Infow("queue stopped", "queue", q.name)
}

// Enqueue pushes a job onto the queue.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	ctx := q.ctx
	started := q.started
	q.mu.Unlock()

	if !started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	q.track(q.pending, job.Key, 1)
	select {
	case <-ctx.Done():
		q.track(q.pending, job.Key, -1)
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.jobs <- job:
		return nil
	}
}

// Active reports whether a job with the given key is waiting in the buffer or being handled.
// Two callers may both observe false before either enqueues.
func (q *Queue) Active(key string) bool {
	if key == "" {
		return false
	}
	q.keysMu.Lock()
	defer q.keysMu.Unlock()
	return q.pending[key] > 0 || q.inFlight[key] > 0
}

// Pending returns the number of buffered jobs.
func (q *Queue) Pending() int {
	return len(q.jobs)
}

func (q *Queue) worker(workerID int) {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.keysMu.Lock()
			q.adjust(q.pending, job.Key, -1)
			q.adjust(q.inFlight, job.Key, 1)
			q.keysMu.Unlock()

			err := q.handler(q.ctx, job)
			q.track(q.inFlight, job.Key, -1)
			if err != nil {
				q.handleFailure(job, err)
			}
		}
	}
}

func (q *Queue) track(set map[string]int, key string, delta int) {
	if key == "" {
		return
	}
	q.keysMu.Lock()
	q.adjust(set, key, delta)
	q.keysMu.Unlock()
}

// adjust expects keysMu to be held.
func (q *Queue) adjust(set map[string]int, key string, delta int) {
	if key == "" {
		return
	}
	set[key] += delta
	if set[key] <= 0 {
		delete(set, key)
	}
}

func (q *Queue) handleFailure(job Job, err error) {
	job.Attempt++
	if job.Attempt > q.maxRetries {
		q.logger.Sugar().Errorw("job failed", "queue", q.name, "job_id", job.ID, "type", job.Type, "key", job.Key, "attempts", job.Attempt, "error", err)
		return
	}
	q.logger.Sugar().Warnw("job failed, retrying", "queue", q.name, "job_id", job.ID, "type", job.Type, "attempt", job.Attempt, "error", err)

	q.track(q.pending, job.Key, 1)
	go func(j Job) {
		timer := time.NewTimer(q.retryDelay)
		defer timer.Stop()
		defer q.track(q.pending, j.Key, -1)
		select {
		case <-q.ctx.Done():
			return
		case <-timer.C:
			if err := q.Enqueue(j); err != nil {
				q.logger.Sugar().Errorw("failed to requeue job", "queue", q.name, "job_id", j.ID, "error", err)
			}
		}
	}(job)
}
