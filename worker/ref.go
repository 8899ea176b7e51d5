package worker

import (
	"context"
	"fmt"
)

// AggregatorRef resolves the generation-capable worker that aggregates
// fan-in results. The two variants make the "already attached vs. needs
// activation" decision explicit instead of probing at call time.
//
// Acquire returns the generator plus a release function. The release
// function must be called exactly once on every exit path; releasing an
// AlreadyAttached worker is a no-op, releasing a NeedsActivation worker ends
// its scoped activation.
type AggregatorRef interface {
	Acquire(ctx context.Context) (Generator, func() error, error)
}

// AlreadyAttached wraps a generator that is ready to use as-is. Its
// lifecycle belongs to the caller.
type AlreadyAttached struct {
	Generator Generator
}

// Acquire implements AggregatorRef.
func (r AlreadyAttached) Acquire(_ context.Context) (Generator, func() error, error) {
	if r.Generator == nil {
		return nil, nil, fmt.Errorf("aggregator generator is nil")
	}
	return r.Generator, func() error { return nil }, nil
}

// NeedsActivation activates the agent for the duration of one call and
// attaches a generator to it via Factory. Release closes the agent again,
// on every exit path including worker failure and cancellation.
type NeedsActivation struct {
	Agent   *Agent
	Factory GeneratorFactory
}

// Acquire implements AggregatorRef.
func (r NeedsActivation) Acquire(ctx context.Context) (Generator, func() error, error) {
	if r.Agent == nil {
		return nil, nil, fmt.Errorf("aggregator agent is nil")
	}
	if r.Factory == nil {
		return nil, nil, fmt.Errorf("generator factory is required when aggregating through an agent")
	}

	if err := r.Agent.Initialize(ctx); err != nil {
		return nil, nil, err
	}

	gen, err := r.Agent.AttachGenerator(r.Factory)
	if err != nil {
		_ = r.Agent.Close()
		return nil, nil, err
	}

	return gen, r.Agent.Close, nil
}
