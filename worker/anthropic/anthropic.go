// Package anthropic provides a worker.Generator backed by the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/fanmesh/core"
	"github.com/hupe1980/fanmesh/worker"
)

// Options configures the Anthropic generator adapter (model id, temperature,
// API key, system instruction).
type Options struct {
	Model       anthropic.Model
	Temperature float64
	APIKey      string
	// Instruction is the system prompt; usually the owning agent's
	// instruction.
	Instruction string
}

// Generator wraps the Anthropic Messages API behind worker.Generator.
type Generator struct {
	client *anthropic.Client
	opts   Options
}

// New creates an Anthropic generator using the official client.
func New(optFns ...func(o *Options)) *Generator {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Generator{client: &client, opts: opts}
}

// NewFromClient creates an Anthropic generator from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Generator {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Generator{client: client, opts: opts}
}

// Factory returns a worker.GeneratorFactory that binds the generator to the
// activated agent's instruction.
func Factory(optFns ...func(o *Options)) worker.GeneratorFactory {
	return func(a *worker.Agent) (worker.Generator, error) {
		fns := append([]func(o *Options){func(o *Options) {
			o.Instruction = a.Instruction()
		}}, optFns...)
		return New(fns...), nil
	}
}

// Generate implements worker.Generator.
func (g *Generator) Generate(ctx context.Context, message core.MergedMessage, params *worker.GenerateParams) (core.MessageSequence, error) {
	text, err := g.complete(ctx, message, params, "")
	if err != nil {
		return nil, err
	}
	return core.MessageSequence{core.NewAssistantMessage(text)}, nil
}

// GenerateText implements worker.Generator.
func (g *Generator) GenerateText(ctx context.Context, message core.MergedMessage, params *worker.GenerateParams) (string, error) {
	return g.complete(ctx, message, params, "")
}

// GenerateStructured implements worker.Generator. The schema is inlined into
// the prompt; conformance is validated by the caller.
func (g *Generator) GenerateStructured(ctx context.Context, message core.MergedMessage, schema map[string]any, params *worker.GenerateParams) (map[string]any, error) {
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	directive := fmt.Sprintf("Respond with a single JSON object conforming to this JSON schema, with no surrounding text:\n%s", schemaJSON)

	text, err := g.complete(ctx, message, params, directive)
	if err != nil {
		return nil, err
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("model returned non-JSON output: %w", err)
	}
	return out, nil
}

func (g *Generator) complete(ctx context.Context, message core.MergedMessage, params *worker.GenerateParams, directive string) (string, error) {
	if params == nil {
		params = worker.DefaultGenerateParams()
	}

	model := g.opts.Model
	if params.Model != "" {
		model = anthropic.Model(params.Model)
	}
	maxTokens := int64(params.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	req := anthropic.MessageNewParams{
		Model:       model,
		Messages:    buildMessages(message, directive),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(g.opts.Temperature),
	}
	if g.opts.Instruction != "" {
		req.System = []anthropic.TextBlockParam{{Text: g.opts.Instruction}}
	}
	if len(params.StopSequences) > 0 {
		req.StopSequences = params.StopSequences
	}

	resp, err := g.client.Messages.New(ctx, req)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.AsText().Text
		}
	}
	return text, nil
}

// buildMessages converts the merged input into Anthropic messages. Text mode
// maps to a single user message; message mode replays the merged sequence.
func buildMessages(message core.MergedMessage, directive string) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	if message.IsText() {
		out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(message.Text)))
	} else {
		for _, m := range message.Messages {
			block := anthropic.NewTextBlock(m.Content)
			if m.Role == "assistant" {
				out = append(out, anthropic.NewAssistantMessage(block))
			} else {
				out = append(out, anthropic.NewUserMessage(block))
			}
		}
	}
	if directive != "" {
		out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(directive)))
	}
	return out
}
