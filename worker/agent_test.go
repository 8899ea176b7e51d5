package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fanmesh/core"
	"github.com/hupe1980/fanmesh/registry"
)

type reverseInput struct {
	Text string `json:"text"`
}

type reverseOutput struct {
	Reversed string `json:"reversed"`
}

// newToolRegistry wires a one-tool MCP server into a registry over in-memory
// transports and returns the registry plus the server name.
func newToolRegistry(t *testing.T) (*registry.Registry, string) {
	t.Helper()

	server := mcp.NewServer(&mcp.Implementation{Name: "reverse-server", Version: "1.0.0"}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "reverse",
		Description: "Reverses the given text",
	}, func(_ context.Context, _ *mcp.CallToolRequest, input reverseInput) (*mcp.CallToolResult, reverseOutput, error) {
		runes := []rune(input.Text)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return nil, reverseOutput{Reversed: string(runes)}, nil
	})

	st, ct := mcp.NewInMemoryTransports()
	ctx := context.Background()

	_, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)

	reg := registry.New(nil)
	require.NoError(t, reg.RegisterSession("tools", session))
	t.Cleanup(func() { _ = reg.Close() })

	return reg, "tools"
}

func TestAgent_InitializeAndClose(t *testing.T) {
	reg, server := newToolRegistry(t)
	agent := NewAgent("finder", reg, func(o *AgentOptions) {
		o.Servers = []string{server}
	})
	ctx := context.Background()

	require.NoError(t, agent.Initialize(ctx))
	require.NoError(t, agent.Initialize(ctx)) // idempotent

	tools, err := agent.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "reverse", tools[0].Name)

	require.NoError(t, agent.Close())
	require.NoError(t, agent.Close()) // idempotent

	_, err = agent.ListTools(ctx)
	assert.ErrorContains(t, err, "not initialized")
}

func TestAgent_CallTool_Routed(t *testing.T) {
	reg, server := newToolRegistry(t)
	agent := NewAgent("finder", reg, func(o *AgentOptions) {
		o.Servers = []string{server}
	})
	ctx := context.Background()
	require.NoError(t, agent.Initialize(ctx))
	defer agent.Close()

	result, err := agent.CallTool(ctx, "reverse", map[string]any{"text": "abc"})
	require.NoError(t, err)
	require.False(t, result.IsError)

	raw, err := json.Marshal(result.StructuredContent)
	require.NoError(t, err)
	var out reverseOutput
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "cba", out.Reversed)
}

func TestAgent_CallTool_UnknownTool(t *testing.T) {
	reg, server := newToolRegistry(t)
	agent := NewAgent("finder", reg, func(o *AgentOptions) {
		o.Servers = []string{server}
	})
	ctx := context.Background()
	require.NoError(t, agent.Initialize(ctx))
	defer agent.Close()

	_, err := agent.CallTool(ctx, "translate", nil)
	assert.ErrorContains(t, err, "not available")
}

func TestAgent_DefaultInstruction(t *testing.T) {
	agent := NewAgent("verifier", nil)
	assert.Equal(t, "You are verifier, a helpful AI assistant.", agent.Instruction())

	custom := NewAgent("verifier", nil, func(o *AgentOptions) {
		o.Instruction = "Verify the claims in the aggregated text."
	})
	assert.Equal(t, "Verify the claims in the aggregated text.", custom.Instruction())
}

func TestAgent_AttachGenerator_RequiresInitialize(t *testing.T) {
	agent := NewAgent("writer", nil)

	_, err := agent.AttachGenerator(func(_ *Agent) (Generator, error) {
		return NewMockGenerator(), nil
	})
	assert.ErrorContains(t, err, "not initialized")

	require.NoError(t, agent.Initialize(context.Background()))
	gen, err := agent.AttachGenerator(func(_ *Agent) (Generator, error) {
		return NewMockGenerator(), nil
	})
	require.NoError(t, err)
	assert.NotNil(t, gen)
}

func TestAlreadyAttached_Acquire(t *testing.T) {
	mock := NewMockGenerator()
	ref := AlreadyAttached{Generator: mock}

	gen, release, err := ref.Acquire(context.Background())
	require.NoError(t, err)
	assert.Same(t, Generator(mock), gen)
	assert.NoError(t, release())

	_, _, err = AlreadyAttached{}.Acquire(context.Background())
	assert.Error(t, err)
}

func TestNeedsActivation_Acquire(t *testing.T) {
	agent := NewAgent("aggregator", nil)
	mock := NewMockGenerator()
	ref := NeedsActivation{
		Agent: agent,
		Factory: func(a *Agent) (Generator, error) {
			assert.Equal(t, "aggregator", a.Name())
			return mock, nil
		},
	}

	gen, release, err := ref.Acquire(context.Background())
	require.NoError(t, err)
	assert.Same(t, Generator(mock), gen)

	// activation window is open until release
	_, err = agent.AttachGenerator(func(_ *Agent) (Generator, error) { return mock, nil })
	require.NoError(t, err)

	require.NoError(t, release())
	_, err = agent.ListTools(context.Background())
	assert.ErrorContains(t, err, "not initialized")
}

func TestNeedsActivation_FactoryFailureClosesAgent(t *testing.T) {
	agent := NewAgent("aggregator", nil)
	boom := errors.New("no api key")
	ref := NeedsActivation{
		Agent:   agent,
		Factory: func(_ *Agent) (Generator, error) { return nil, boom },
	}

	_, _, err := ref.Acquire(context.Background())
	require.ErrorIs(t, err, boom)

	_, err = agent.ListTools(context.Background())
	assert.ErrorContains(t, err, "not initialized")
}

func TestNeedsActivation_MissingPieces(t *testing.T) {
	_, _, err := NeedsActivation{Factory: func(_ *Agent) (Generator, error) { return NewMockGenerator(), nil }}.Acquire(context.Background())
	assert.ErrorContains(t, err, "agent is nil")

	_, _, err = NeedsActivation{Agent: NewAgent("a", nil)}.Acquire(context.Background())
	assert.ErrorContains(t, err, "factory is required")
}

func TestMockGenerator_CannedAndRecorded(t *testing.T) {
	mock := NewMockGenerator()
	mock.AddResponse("hello", "hi there")
	ctx := context.Background()

	text, err := mock.GenerateText(ctx, core.MergedMessage{Text: "hello"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hi there", text)

	seq, err := mock.Generate(ctx, core.MergedMessage{Text: "unseen"}, nil)
	require.NoError(t, err)
	require.Len(t, seq, 1)
	assert.Equal(t, "Mock response to: unseen", seq[0].Content)

	received := mock.Received()
	require.Len(t, received, 2)
	assert.Equal(t, "hello", received[0].Text)
}

func TestMockGenerator_ErrorInjection(t *testing.T) {
	mock := NewMockGenerator()
	boom := errors.New("provider down")
	mock.SetError(boom)

	_, err := mock.GenerateText(context.Background(), core.MergedMessage{Text: "x"}, nil)
	require.ErrorIs(t, err, boom)
	assert.Len(t, mock.Received(), 1)
}
