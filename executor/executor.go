// Package executor provides the bounded submission pool through which all
// generation work runs. It is the single place where units of work enter the
// execution context: callers submit closures concurrently without any
// caller-side locking, the pool bounds how many run at once, and shutdown
// waits for in-flight work before rejecting further submissions.
package executor

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/fanmesh/logging"
)

// ErrShutdown is returned by Submit after Shutdown has been called.
var ErrShutdown = fmt.Errorf("executor is shut down")

// DefaultMaxConcurrent bounds concurrent submissions when no limit is
// configured.
const DefaultMaxConcurrent = 10

// Options configures an Executor instance.
type Options struct {
	// Logger defaults to NoOpLogger if nil.
	Logger logging.Logger
}

// Executor is a semaphore-bounded pool for generation tasks. The zero value
// is not usable; construct with New.
type Executor struct {
	sem    *semaphore.Weighted
	logger logging.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New creates an Executor allowing up to maxConcurrent tasks to run at once.
// A non-positive limit falls back to DefaultMaxConcurrent.
func New(maxConcurrent int64, optFns ...func(o *Options)) *Executor {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Executor{
		sem:    semaphore.NewWeighted(maxConcurrent),
		logger: opts.Logger,
	}
}

// Submit runs task on the calling goroutine once a slot is available,
// returning the task's error. It blocks while the pool is saturated; ctx
// cancellation aborts both the wait and the task. Submissions after Shutdown
// fail with ErrShutdown.
func (e *Executor) Submit(ctx context.Context, task func(ctx context.Context) error) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrShutdown
	}
	e.wg.Add(1)
	e.mu.Unlock()
	defer e.wg.Done()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer e.sem.Release(1)

	return task(ctx)
}

// Shutdown stops accepting new work and waits for in-flight tasks to finish
// or for ctx to expire. It is idempotent.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Debug("executor drained")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("executor shutdown: %w", ctx.Err())
	}
}
