package parallel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/hupe1980/fanmesh/appctx"
	"github.com/hupe1980/fanmesh/core"
	"github.com/hupe1980/fanmesh/internal/util"
	"github.com/hupe1980/fanmesh/logging"
	"github.com/hupe1980/fanmesh/worker"
)

// FanInOptions configures a FanIn instance.
type FanInOptions struct {
	// Logger defaults to the execution context's logger.
	Logger logging.Logger
}

// FanIn aggregates results from multiple parallel tasks into a single
// result: it merges the per-source payloads into one message and drives the
// designated aggregator worker to produce the final answer.
//
// Normalization failures are deterministic bad input and are not retried.
// Failures from the aggregator worker are surfaced unchanged inside a
// *core.WorkerInvocationError; this layer applies no retry policy of its
// own.
type FanIn struct {
	appCtx     *appctx.Context
	ref        worker.AggregatorRef
	normalizer Normalizer
	logger     logging.Logger
	runID      string
}

// NewFanIn creates a FanIn bound to an execution context and an aggregator
// reference.
func NewFanIn(appCtx *appctx.Context, ref worker.AggregatorRef, optFns ...func(o *FanInOptions)) (*FanIn, error) {
	if appCtx == nil {
		return nil, fmt.Errorf("execution context is required")
	}
	if ref == nil {
		return nil, fmt.Errorf("aggregator reference is required")
	}

	opts := FanInOptions{Logger: appCtx.Logger}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &FanIn{
		appCtx: appCtx,
		ref:    ref,
		logger: opts.Logger,
		runID:  uuid.NewString(),
	}, nil
}

// RunID identifies this fan-in instance in logs and traces.
func (f *FanIn) RunID() string { return f.runID }

// Aggregate merges the input without invoking the aggregator worker. It has
// no side effects and is safe to retry.
func (f *FanIn) Aggregate(input core.FanInInput) (core.MergedMessage, error) {
	start := time.Now()
	merged, err := f.normalizer.Merge(input)
	if err != nil {
		return core.MergedMessage{}, err
	}
	f.logger.Debug("aggregated fan-in input",
		"run_id", f.runID, "shape", input.Kind().String(), "sources", input.Len(), "duration", time.Since(start))
	return merged, nil
}

// Generate aggregates the input and returns the aggregator worker's raw
// message sequence, useful for further chaining.
func (f *FanIn) Generate(ctx context.Context, input core.FanInInput, params *worker.GenerateParams) (core.MessageSequence, error) {
	var out core.MessageSequence
	err := f.invoke(ctx, "fanin.generate", input, func(ctx context.Context, gen worker.Generator, msg core.MergedMessage) error {
		seq, err := gen.Generate(ctx, msg, params)
		if err != nil {
			return err
		}
		out = seq
		return nil
	})
	return out, err
}

// GenerateText aggregates the input and returns the aggregator worker's
// plain-text answer.
func (f *FanIn) GenerateText(ctx context.Context, input core.FanInInput, params *worker.GenerateParams) (string, error) {
	var out string
	err := f.invoke(ctx, "fanin.generate_text", input, func(ctx context.Context, gen worker.Generator, msg core.MergedMessage) error {
		text, err := gen.GenerateText(ctx, msg, params)
		if err != nil {
			return err
		}
		out = text
		return nil
	})
	return out, err
}

// GenerateStructured aggregates the input and fills target with a value
// conforming to target's derived JSON schema. A worker answer that does not
// conform fails with *core.SchemaValidationError.
func (f *FanIn) GenerateStructured(ctx context.Context, input core.FanInInput, target any, params *worker.GenerateParams) error {
	if target == nil {
		return &core.SchemaValidationError{Reason: "target must be a non-nil struct pointer"}
	}
	schema := util.CreateSchema(target)

	return f.invoke(ctx, "fanin.generate_structured", input, func(ctx context.Context, gen worker.Generator, msg core.MergedMessage) error {
		raw, err := gen.GenerateStructured(ctx, msg, schema, params)
		if err != nil {
			return err
		}
		if err := util.ValidateValue(raw, schema); err != nil {
			return &core.SchemaValidationError{Reason: "worker output does not conform to the requested schema", Err: err}
		}
		data, err := json.Marshal(raw)
		if err != nil {
			return &core.SchemaValidationError{Reason: "worker output is not serializable", Err: err}
		}
		if err := json.Unmarshal(data, target); err != nil {
			return &core.SchemaValidationError{Reason: "worker output cannot be coerced to the target type", Err: err}
		}
		return nil
	})
}

// invoke runs one end-to-end aggregation: lifecycle check, merge, scoped
// worker acquisition, and submission through the context's executor. The
// acquired worker is released on every exit path, including worker failure
// and cancellation.
func (f *FanIn) invoke(ctx context.Context, op string, input core.FanInInput, fn func(ctx context.Context, gen worker.Generator, msg core.MergedMessage) error) (err error) {
	if lifecycleErr := f.appCtx.Active(op); lifecycleErr != nil {
		return lifecycleErr
	}

	ctx, span := f.appCtx.Tracer("fanmesh/parallel").Start(ctx, op)
	defer span.End()
	span.SetAttributes(
		attribute.String("fanin.run_id", f.runID),
		attribute.String("fanin.shape", input.Kind().String()),
		attribute.Int("fanin.sources", input.Len()),
	)

	merged, err := f.Aggregate(input)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	gen, release, err := f.ref.Acquire(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer func() {
		if releaseErr := release(); releaseErr != nil {
			err = errors.Join(err, releaseErr)
		}
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	return f.appCtx.Executor.Submit(ctx, func(ctx context.Context) error {
		workerErr := fn(ctx, gen, merged)
		if workerErr == nil {
			return nil
		}
		// Schema conformance is checked by this layer, not the worker.
		var schemaErr *core.SchemaValidationError
		if errors.As(workerErr, &schemaErr) {
			return workerErr
		}
		return &core.WorkerInvocationError{Worker: f.workerName(), Err: workerErr}
	})
}

func (f *FanIn) workerName() string {
	if na, ok := f.ref.(worker.NeedsActivation); ok && na.Agent != nil {
		return na.Agent.Name()
	}
	return "aggregator"
}
