package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/fanmesh/core"
)

// MockGenerator is a lightweight in-memory Generator useful for tests &
// examples. It records every merged message it receives and replays canned
// responses keyed by the merged text.
type MockGenerator struct {
	mu         sync.Mutex
	responses  map[string]string
	structured map[string]any
	err        error
	received   []core.MergedMessage
}

// NewMockGenerator constructs a MockGenerator with no canned responses.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for a merged input.
func (m *MockGenerator) AddResponse(input, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[input] = response
}

// SetStructuredResponse registers the value returned by GenerateStructured.
func (m *MockGenerator) SetStructuredResponse(value map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.structured = value
}

// SetError makes every subsequent call fail with err.
func (m *MockGenerator) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Received returns a copy of the merged messages seen so far.
func (m *MockGenerator) Received() []core.MergedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.MergedMessage, len(m.received))
	copy(out, m.received)
	return out
}

// Generate implements Generator.
func (m *MockGenerator) Generate(ctx context.Context, msg core.MergedMessage, _ *GenerateParams) (core.MessageSequence, error) {
	text, err := m.record(ctx, msg)
	if err != nil {
		return nil, err
	}
	return core.MessageSequence{core.NewAssistantMessage(text)}, nil
}

// GenerateText implements Generator.
func (m *MockGenerator) GenerateText(ctx context.Context, msg core.MergedMessage, _ *GenerateParams) (string, error) {
	return m.record(ctx, msg)
}

// GenerateStructured implements Generator.
func (m *MockGenerator) GenerateStructured(ctx context.Context, msg core.MergedMessage, _ map[string]any, _ *GenerateParams) (map[string]any, error) {
	if _, err := m.record(ctx, msg); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.structured == nil {
		return map[string]any{}, nil
	}
	return m.structured, nil
}

func (m *MockGenerator) record(ctx context.Context, msg core.MergedMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received = append(m.received, msg)
	if m.err != nil {
		return "", m.err
	}
	input := msg.AsText()
	if resp, ok := m.responses[input]; ok {
		return resp, nil
	}
	return fmt.Sprintf("Mock response to: %s", input), nil
}
