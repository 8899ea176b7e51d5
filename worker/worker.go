// Package worker models the capability-bearing entities that produce and
// aggregate generations: the Generator interface every model-backed worker
// implements, the Agent that scopes tool access to configured MCP servers,
// and the AggregatorRef variants used by fan-in to resolve which worker
// aggregates.
package worker

import (
	"context"

	"github.com/hupe1980/fanmesh/core"
)

// GenerateParams carries per-call generation parameters. All workers accept
// the same set so fan-in can pass them through unchanged.
type GenerateParams struct {
	// UseHistory includes the worker's conversation history in the call.
	UseHistory bool
	// MaxIterations caps tool-use round trips within one generation.
	MaxIterations int
	// Model optionally overrides the worker's default model id.
	Model string
	// StopSequences end generation early when emitted.
	StopSequences []string
	// MaxTokens bounds the completion size.
	MaxTokens int
	// ParallelToolCalls lets the model request multiple tools at once.
	ParallelToolCalls bool
}

// DefaultGenerateParams mirrors the defaults workers assume when the caller
// passes nil.
func DefaultGenerateParams() *GenerateParams {
	return &GenerateParams{
		UseHistory:        true,
		MaxIterations:     10,
		MaxTokens:         2048,
		ParallelToolCalls: true,
	}
}

// Generator is the minimal generation surface fan-in drives. Implementations
// wrap a model provider; every method is a suspension point and must honor
// ctx cancellation.
type Generator interface {
	// Generate produces the raw message sequence for a merged input, useful
	// for further chaining.
	Generate(ctx context.Context, message core.MergedMessage, params *GenerateParams) (core.MessageSequence, error)

	// GenerateText produces a plain-text completion.
	GenerateText(ctx context.Context, message core.MergedMessage, params *GenerateParams) (string, error)

	// GenerateStructured produces a JSON object intended to conform to
	// schema. Conformance is checked by the caller; the worker only aims.
	GenerateStructured(ctx context.Context, message core.MergedMessage, schema map[string]any, params *GenerateParams) (map[string]any, error)
}

// GeneratorFactory builds a Generator bound to an initialized Agent. Used
// for scoped activation: the generator lives only for the duration of one
// call.
type GeneratorFactory func(a *Agent) (Generator, error)
