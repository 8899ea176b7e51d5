// Package openai provides a worker.Generator backed by the OpenAI Chat
// Completions API. It adapts the merged fan-in input into the SDK's message
// format and back.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/fanmesh/core"
	"github.com/hupe1980/fanmesh/worker"
)

// Options configures the OpenAI generator adapter.
type Options struct {
	Model       string
	Temperature float64
	// Instruction is the system message; usually the owning agent's
	// instruction.
	Instruction string
}

// Generator wraps the OpenAI Chat Completions API behind worker.Generator.
type Generator struct {
	client *openai.Client
	opts   Options
}

// New creates an OpenAI generator using the official client with ambient
// credentials.
func New(optFns ...func(o *Options)) *Generator {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates an OpenAI generator from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Generator {
	opts := Options{
		Model:       openai.ChatModelGPT4oMini,
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

	var messages []openai.ChatCompletionMessageParamUnion
	if g.opts.Instruction != "" {
		messages = append(messages, openai.SystemMessage(g.opts.Instruction))
	}
	messages = append(messages, buildMessages(message)...)
	if directive != "" {
		messages = append(messages, openai.SystemMessage(directive))
	}

	model := g.opts.Model
	if params.Model != "" {
		model = params.Model
	}

	req := openai.ChatCompletionNewParams{
		Model:       model,
		Messages:    messages,
		Temperature: openai.Float(g.opts.Temperature),
	}
	if params.MaxTokens > 0 {
		req.MaxCompletionTokens = openai.Int(int64(params.MaxTokens))
	}

	resp, err := g.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// buildMessages converts the merged input into chat messages. Text mode maps
// to a single user message; message mode replays the merged sequence.
func buildMessages(message core.MergedMessage) []openai.ChatCompletionMessageParamUnion {
	if message.IsText() {
		return []openai.ChatCompletionMessageParamUnion{openai.UserMessage(message.Text)}
	}

	var out []openai.ChatCompletionMessageParamUnion
	for _, m := range message.Messages {
		switch m.Role {
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
