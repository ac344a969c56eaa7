package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Defaults for the pool executor.
var (
	DefaultPoolWorkers   = 8
	DefaultPoolQueueSize = 256
)

// Executor runs subscriber invocations. The task's error, when any, is a
// mechanism fault; handler faults are already contained before the task
// returns.
type Executor interface {
	Execute(ctx context.Context, task func() error) error
}

// DirectExecutor returns the default executor: it runs the invocation
// synchronously on the calling goroutine and returns the task's error, so
// mechanism faults surface to the caller of Post.
func DirectExecutor() Executor {
	return directExecutor{}
}

type directExecutor struct{}

func (directExecutor) Execute(_ context.Context, task func() error) error {
	return task()
}

// PoolExecutor fans deliveries out to a fixed pool of worker goroutines.
// Execute enqueues and returns without waiting for the handler; mechanism
// faults are reported to the fault hook because the posting goroutine has
// already moved on. Long-running handlers stall only the pool, never the
// poster.
type PoolExecutor struct {
	// mu serializes enqueue against close so Stop cannot close the task
	// channel under a concurrent Execute.
	mu      sync.RWMutex
	tasks   chan func() error
	group   *errgroup.Group
	stopped atomic.Bool
	logger  *slog.Logger
	onFault func(error)
}

// PoolOption configures a PoolExecutor.
type PoolOption func(*poolConfig)

type poolConfig struct {
	workers   int
	queueSize int
	logger    *slog.Logger
	onFault   func(error)
}

// WithPoolWorkers sets the number of worker goroutines.
func WithPoolWorkers(n int) PoolOption {
	return func(c *poolConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithPoolQueueSize sets the pending task buffer size.
func WithPoolQueueSize(n int) PoolOption {
	return func(c *poolConfig) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithPoolLogger sets the logger used by the default fault hook.
func WithPoolLogger(l *slog.Logger) PoolOption {
	return func(c *poolConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPoolFaultHook sets the hook that receives mechanism faults raised by
// asynchronous invocations.
func WithPoolFaultHook(fn func(error)) PoolOption {
	return func(c *poolConfig) {
		if fn != nil {
			c.onFault = fn
		}
	}
}

// NewPoolExecutor creates and starts an asynchronous pool executor.
func NewPoolExecutor(opts ...PoolOption) *PoolExecutor {
	c := &poolConfig{
		workers:   DefaultPoolWorkers,
		queueSize: DefaultPoolQueueSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	e := &PoolExecutor{
		tasks:   make(chan func() error, c.queueSize),
		group:   &errgroup.Group{},
		logger:  c.logger,
		onFault: c.onFault,
	}
	if e.onFault == nil {
		e.onFault = func(err error) {
			e.logger.Error("asynchronous invocation failed", "error", err)
		}
	}
	for i := 0; i < c.workers; i++ {
		e.group.Go(e.worker)
	}
	return e
}

func (e *PoolExecutor) worker() error {
	for task := range e.tasks {
		if err := task(); err != nil {
			e.onFault(err)
		}
	}
	return nil
}

// Execute enqueues the invocation. It blocks while the queue is full and
// fails once ctx is done or the executor is stopped.
func (e *PoolExecutor) Execute(ctx context.Context, task func() error) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.stopped.Load() {
		return ErrExecutorStopped
	}
	select {
	case e.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop drains the queue and waits for the workers to finish, or for ctx.
// Execute calls made after Stop fail with ErrExecutorStopped.
func (e *PoolExecutor) Stop(ctx context.Context) error {
	if e.stopped.Swap(true) {
		return nil
	}
	e.mu.Lock()
	close(e.tasks)
	e.mu.Unlock()
	done := make(chan struct{})
	go func() {
		_ = e.group.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
