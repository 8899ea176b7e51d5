package parallel

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/fanmesh/appctx"
	"github.com/hupe1980/fanmesh/core"
	"github.com/hupe1980/fanmesh/logging"
)

// Task describes a single unit of work dispatched during fan-out. Run
// returns the source's payload: a plain string or a core.MessageSequence.
type Task struct {
	// Source labels the task's contribution in the aggregated result.
	Source string

	// Run produces the payload. It is called at most once.
	Run func(ctx context.Context) (any, error)
}

// FanOutOptions configures a FanOut instance.
type FanOutOptions struct {
	// Logger defaults to the execution context's logger.
	Logger logging.Logger
}

// FanOut dispatches tasks in parallel through the execution context's
// executor and collects their results in declaration order. The first
// failure cancels the derived context so remaining in-flight tasks return
// early.
type FanOut struct {
	appCtx *appctx.Context
	logger logging.Logger
}

// NewFanOut creates a FanOut bound to an execution context.
func NewFanOut(appCtx *appctx.Context, optFns ...func(o *FanOutOptions)) (*FanOut, error) {
	if appCtx == nil {
		return nil, fmt.Errorf("execution context is required")
	}

	opts := FanOutOptions{Logger: appCtx.Logger}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &FanOut{appCtx: appCtx, logger: opts.Logger}, nil
}

// Run dispatches every task and returns one SourceResult per task, in the
// order the tasks were declared regardless of completion order.
func (f *FanOut) Run(ctx context.Context, tasks []Task) ([]core.SourceResult, error) {
	if err := f.appCtx.Active("fanout.run"); err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, &core.ValidationError{Reason: "fan-out requires at least one task"}
	}

	results := make([]core.SourceResult, len(tasks))
	g, gctx := errgroup.WithContext(ctx)

	for i, task := range tasks {
		g.Go(func() error {
			return f.appCtx.Executor.Submit(gctx, func(ctx context.Context) error {
				payload, err := task.Run(ctx)
				if err != nil {
					return fmt.Errorf("task %q: %w", task.Source, err)
				}
				results[i] = core.SourceResult{Source: task.Source, Payload: payload}
				return nil
			})
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	f.logger.Debug("fan-out complete", "tasks", len(tasks))
	return results, nil
}
