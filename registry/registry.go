// Package registry manages connections to remote MCP tool servers. It maps
// logical server names to transport settings, connects lazily on first use,
// caches live client sessions and tears them down together on Close.
//
// The registry is read-mostly and safe for concurrent use by many in-flight
// workflows; transport-level connection handling is delegated entirely to the
// MCP SDK.
package registry

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hupe1980/fanmesh/logging"
)

// ErrClosed is returned for any operation on a registry after Close.
var ErrClosed = fmt.Errorf("registry is closed")

// ServerSettings describes how to reach one MCP server. Transport selects the
// connection style: "stdio" launches Command with Args and speaks MCP over its
// pipes, "streamable" connects to the streamable HTTP endpoint at URL.
type ServerSettings struct {
	Transport string   `yaml:"transport"`
	Command   string   `yaml:"command,omitempty"`
	Args      []string `yaml:"args,omitempty"`
	Env       []string `yaml:"env,omitempty"`
	URL       string   `yaml:"url,omitempty"`
}

// Validate checks that the settings name a usable transport.
func (s ServerSettings) Validate() error {
	switch s.Transport {
	case "stdio":
		if s.Command == "" {
			return fmt.Errorf("stdio transport requires a command")
		}
	case "streamable":
		if s.URL == "" {
			return fmt.Errorf("streamable transport requires a url")
		}
	case "":
		return fmt.Errorf("transport is required")
	default:
		return fmt.Errorf("unknown transport %q", s.Transport)
	}
	return nil
}

// Options configures a Registry instance.
type Options struct {
	// ClientName / ClientVersion identify this process to MCP servers.
	ClientName    string
	ClientVersion string
	// Logger defaults to NoOpLogger if nil.
	Logger logging.Logger
}

// Registry holds the configured MCP servers and their live sessions.
type Registry struct {
	mu       sync.RWMutex
	settings map[string]ServerSettings
	sessions map[string]*mcp.ClientSession
	closed   bool
	impl     *mcp.Implementation
	logger   logging.Logger
}

// New creates a Registry from per-server settings. No connections are opened
// until a server is first used.
func New(settings map[string]ServerSettings, optFns ...func(o *Options)) *Registry {
	opts := Options{
		ClientName:    "fanmesh",
		ClientVersion: "0.1.0",
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	cfgs := make(map[string]ServerSettings, len(settings))
	for name, s := range settings {
		cfgs[name] = s
	}

	return &Registry{
		settings: cfgs,
		sessions: make(map[string]*mcp.ClientSession),
		impl:     &mcp.Implementation{Name: opts.ClientName, Version: opts.ClientVersion},
		logger:   opts.Logger,
	}
}

// Servers returns the configured server names sorted for deterministic output.
func (r *Registry) Servers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.settings))
	for name := range r.settings {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RegisterSession installs a pre-connected session under a server name. It is
// used for in-memory transports in tests and for callers that manage their
// own connections.
func (r *Registry) RegisterSession(server string, session *mcp.ClientSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if _, exists := r.sessions[server]; exists {
		return fmt.Errorf("server %q already has a session", server)
	}
	r.sessions[server] = session
	if _, exists := r.settings[server]; !exists {
		r.settings[server] = ServerSettings{Transport: "stdio", Command: "(preconnected)"}
	}
	return nil
}

// Session returns the live client session for a server, connecting lazily on
// first use. Concurrent callers racing on the first connect share a single
// connection attempt per winner; losers connect again only if the winner
// failed.
func (r *Registry) Session(ctx context.Context, server string) (*mcp.ClientSession, error) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return nil, ErrClosed
	}
	if sess, ok := r.sessions[server]; ok {
		r.mu.RUnlock()
		return sess, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if sess, ok := r.sessions[server]; ok {
		return sess, nil
	}

	cfg, ok := r.settings[server]
	if !ok {
		return nil, fmt.Errorf("server %q is not configured", server)
	}

	transport, err := r.transport(cfg)
	if err != nil {
		return nil, fmt.Errorf("server %q: %w", server, err)
	}

	client := mcp.NewClient(r.impl, nil)
	sess, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to server %q: %w", server, err)
	}

	r.logger.Info("connected to MCP server", "server", server, "transport", cfg.Transport)
	r.sessions[server] = sess
	return sess, nil
}

func (r *Registry) transport(cfg ServerSettings) (mcp.Transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Transport {
	case "stdio":
		cmd := exec.Command(cfg.Command, cfg.Args...)
		if len(cfg.Env) > 0 {
			cmd.Env = append(os.Environ(), cfg.Env...)
		}
		return &mcp.CommandTransport{Command: cmd}, nil
	default:
		return &mcp.StreamableClientTransport{Endpoint: cfg.URL}, nil
	}
}

// ListTools returns the tool descriptors advertised by a server.
func (r *Registry) ListTools(ctx context.Context, server string) ([]*mcp.Tool, error) {
	sess, err := r.Session(ctx, server)
	if err != nil {
		return nil, err
	}

	res, err := sess.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("list tools on server %q: %w", server, err)
	}
	return res.Tools, nil
}

// CallTool invokes a named tool on a server with the given arguments. The
// result is opaque to this package.
func (r *Registry) CallTool(ctx context.Context, server, name string, args map[string]any) (*mcp.CallToolResult, error) {
	sess, err := r.Session(ctx, server)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := sess.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		r.logger.Error("tool call failed", "server", server, "tool", name, "error", err)
		return nil, fmt.Errorf("call tool %q on server %q: %w", name, server, err)
	}

	r.logger.Debug("tool call completed", "server", server, "tool", name, "duration", time.Since(start))
	return res, nil
}

// Close closes all live sessions and marks the registry closed. It is
// idempotent; the first error encountered is returned after all sessions have
// been closed.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var firstErr error
	for name, sess := range r.sessions {
		if err := sess.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close session %q: %w", name, err)
		}
	}
	r.sessions = map[string]*mcp.ClientSession{}
	return firstErr
}
