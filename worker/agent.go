package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hupe1980/fanmesh/logging"
	"github.com/hupe1980/fanmesh/registry"
)

// AgentOptions configures an Agent instance.
type AgentOptions struct {
	// Instruction is the system-level instruction handed to attached
	// generators.
	Instruction string
	// Servers names the MCP servers this agent may reach. Empty means the
	// agent is generation-only.
	Servers []string
	// Logger defaults to NoOpLogger if nil.
	Logger logging.Logger
}

// Agent is a capability-bearing entity: it scopes a subset of the registry's
// MCP servers and can have a generator attached for the duration of a call.
// Initialize and Close bracket the scoped-activation window; both are
// idempotent and safe for concurrent use.
type Agent struct {
	name        string
	instruction string
	servers     []string
	registry    *registry.Registry
	logger      logging.Logger

	mu          sync.Mutex
	initialized bool
	toolRoutes  map[string]string // tool name -> server name
}

// NewAgent creates an Agent bound to the given registry.
func NewAgent(name string, reg *registry.Registry, optFns ...func(o *AgentOptions)) *Agent {
	opts := AgentOptions{
		Instruction: fmt.Sprintf("You are %s, a helpful AI assistant.", name),
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Agent{
		name:        name,
		instruction: opts.Instruction,
		servers:     opts.Servers,
		registry:    reg,
		logger:      opts.Logger,
	}
}

// Name returns the agent's identifier, used as the provenance label in
// aggregated transcripts.
func (a *Agent) Name() string { return a.name }

// Instruction returns the system-level instruction for attached generators.
func (a *Agent) Instruction() string { return a.instruction }

// Initialize connects the agent's servers and indexes their tools. Repeat
// calls are no-ops while the agent stays initialized.
func (a *Agent) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.initialized {
		return nil
	}

	routes := map[string]string{}
	for _, server := range a.servers {
		if a.registry == nil {
			return fmt.Errorf("agent %q: no registry configured for server %q", a.name, server)
		}
		tools, err := a.registry.ListTools(ctx, server)
		if err != nil {
			return fmt.Errorf("agent %q: %w", a.name, err)
		}
		for _, t := range tools {
			if _, exists := routes[t.Name]; exists {
				a.logger.Warn("tool name collision, keeping first route", "agent", a.name, "tool", t.Name, "server", server)
				continue
			}
			routes[t.Name] = server
		}
	}

	a.toolRoutes = routes
	a.initialized = true
	a.logger.Debug("agent initialized", "agent", a.name, "tools", len(routes))
	return nil
}

// Close ends the scoped-activation window. The registry's connections stay
// up (they are shared); only this agent's view is dropped. Close is
// idempotent.
func (a *Agent) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.initialized = false
	a.toolRoutes = nil
	return nil
}

// ListTools returns the tool descriptors reachable through this agent, in
// server order.
func (a *Agent) ListTools(ctx context.Context) ([]*mcp.Tool, error) {
	if err := a.requireInitialized(); err != nil {
		return nil, err
	}

	var out []*mcp.Tool
	for _, server := range a.servers {
		tools, err := a.registry.ListTools(ctx, server)
		if err != nil {
			return nil, fmt.Errorf("agent %q: %w", a.name, err)
		}
		out = append(out, tools...)
	}
	return out, nil
}

// CallTool routes a tool call to the server that advertises the tool.
func (a *Agent) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	if err := a.requireInitialized(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	server, ok := a.toolRoutes[name]
	a.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("agent %q: tool %q is not available on any configured server", a.name, name)
	}
	return a.registry.CallTool(ctx, server, name, args)
}

// AttachGenerator builds a generator bound to this agent via the factory.
// The agent must be initialized first.
func (a *Agent) AttachGenerator(factory GeneratorFactory) (Generator, error) {
	if factory == nil {
		return nil, fmt.Errorf("agent %q: generator factory is required", a.name)
	}
	if err := a.requireInitialized(); err != nil {
		return nil, err
	}
	return factory(a)
}

func (a *Agent) requireInitialized() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.initialized {
		return fmt.Errorf("agent %q is not initialized", a.name)
	}
	return nil
}
