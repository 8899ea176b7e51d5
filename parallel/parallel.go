// Package parallel implements the fan-out / fan-in workflow: work is
// dispatched to multiple independent workers concurrently, the heterogeneous
// results are merged into one order-preserving input, and a designated
// aggregator worker produces the final answer.
package parallel

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hupe1980/fanmesh/appctx"
	"github.com/hupe1980/fanmesh/core"
	"github.com/hupe1980/fanmesh/logging"
	"github.com/hupe1980/fanmesh/worker"
)

// WorkflowOptions configures a Workflow instance.
type WorkflowOptions struct {
	// Logger defaults to the execution context's logger.
	Logger logging.Logger
}

// Workflow wires FanOut and FanIn into one end-to-end parallel run: dispatch
// the tasks, classify the collected results, aggregate them through the
// aggregator reference.
type Workflow struct {
	fanOut *FanOut
	fanIn  *FanIn
	logger logging.Logger
	runID  string
}

// NewWorkflow creates a parallel workflow bound to an execution context and
// an aggregator reference.
func NewWorkflow(appCtx *appctx.Context, ref worker.AggregatorRef, optFns ...func(o *WorkflowOptions)) (*Workflow, error) {
	opts := WorkflowOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	fanOut, err := NewFanOut(appCtx, func(o *FanOutOptions) { o.Logger = opts.Logger })
	if err != nil {
		return nil, err
	}
	fanIn, err := NewFanIn(appCtx, ref, func(o *FanInOptions) { o.Logger = opts.Logger })
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = appCtx.Logger
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	return &Workflow{
		fanOut: fanOut,
		fanIn:  fanIn,
		logger: logger,
		runID:  uuid.NewString(),
	}, nil
}

// RunID identifies this workflow instance in logs and traces.
func (w *Workflow) RunID() string { return w.runID }

// Run executes the tasks and returns the aggregator's raw message sequence.
func (w *Workflow) Run(ctx context.Context, tasks []Task, params *worker.GenerateParams) (core.MessageSequence, error) {
	input, err := w.collect(ctx, tasks)
	if err != nil {
		return nil, err
	}
	return w.fanIn.Generate(ctx, input, params)
}

// RunText executes the tasks and returns the aggregator's plain-text answer.
func (w *Workflow) RunText(ctx context.Context, tasks []Task, params *worker.GenerateParams) (string, error) {
	input, err := w.collect(ctx, tasks)
	if err != nil {
		return "", err
	}
	return w.fanIn.GenerateText(ctx, input, params)
}

// RunStructured executes the tasks and fills target with the aggregator's
// structured answer.
func (w *Workflow) RunStructured(ctx context.Context, tasks []Task, target any, params *worker.GenerateParams) error {
	input, err := w.collect(ctx, tasks)
	if err != nil {
		return err
	}
	return w.fanIn.GenerateStructured(ctx, input, target, params)
}

func (w *Workflow) collect(ctx context.Context, tasks []Task) (core.FanInInput, error) {
	results, err := w.fanOut.Run(ctx, tasks)
	if err != nil {
		return core.FanInInput{}, err
	}

	input, err := core.ClassifyResults(results)
	if err != nil {
		return core.FanInInput{}, fmt.Errorf("classify fan-out results: %w", err)
	}

	w.logger.Debug("parallel run collected",
		"run_id", w.runID, "shape", input.Kind().String(), "sources", input.Len())
	return input, nil
}
