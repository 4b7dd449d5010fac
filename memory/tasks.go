package memory

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// TaskResult reports the outcome of one background task.
type TaskResult struct {
	Name     string
	Err      error
	Duration time.Duration
}

type task struct {
	name string
	fn   func(context.Context) error
}

// TaskQueue runs background work (learning updates, archive writes) on a
// small worker pool. Every task produces a TaskResult on the Results
// channel, so failures are observable by the caller instead of
// disappearing into a log line. When nobody drains Results, failed
// outcomes are logged before being dropped.
type TaskQueue struct {
	mu      sync.Mutex
	closed  bool
	jobs    chan task
	results chan TaskResult
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  *log.Logger
}

// NewTaskQueue starts workers goroutines consuming a queue of queueSize
// pending tasks.
func NewTaskQueue(workers, queueSize int, logger *log.Logger) *TaskQueue {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if logger == nil {
		logger = log.Default().WithPrefix("memory.tasks")
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &TaskQueue{
		jobs:    make(chan task, queueSize),
		results: make(chan TaskResult, queueSize),
		cancel:  cancel,
		logger:  logger,
	}

	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.worker(ctx)
	}
	return q
}

func (q *TaskQueue) worker(ctx context.Context) {
	defer q.wg.Done()
	for t := range q.jobs {
		start := time.Now()
		err := t.fn(ctx)
		res := TaskResult{Name: t.name, Err: err, Duration: time.Since(start)}

		select {
		case q.results <- res:
		default:
			// Results channel full or unread; the outcome must still be
			// visible somewhere.
			if err != nil {
				q.logger.Error("background task failed", "task", t.name, "err", err)
			}
		}
	}
}

// Submit enqueues fn for execution. Returns false when the queue is full
// or closed; the caller decides whether to run inline or drop.
func (q *TaskQueue) Submit(name string, fn func(context.Context) error) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	select {
	case q.jobs <- task{name: name, fn: fn}:
		return true
	default:
		q.logger.Warn("task queue full; task rejected", "task", name)
		return false
	}
}

// Results exposes task outcomes, including successes.
func (q *TaskQueue) Results() <-chan TaskResult {
	return q.results
}

// Close stops accepting tasks, waits for in-flight work, and closes the
// results channel.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
	q.cancel()
	close(q.results)
}
