// Package appctx owns the process-wide execution context: the bundle of
// shared infrastructure (MCP server registry, generation executor, telemetry
// pipeline) required to run any generation work.
//
// The bundle is an explicitly owned handle: Initialize builds it
// all-or-nothing and Shutdown consumes it, flushing telemetry before
// releasing registry connections. Components receive the handle by
// constructor injection. For callers that want lazy process-wide access, the
// accessor in this package memoizes a single initialization under concurrent
// first-access races.
package appctx

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/fanmesh/config"
	"github.com/hupe1980/fanmesh/executor"
	"github.com/hupe1980/fanmesh/logging"
	"github.com/hupe1980/fanmesh/registry"
	"github.com/hupe1980/fanmesh/telemetry"
)

// State tracks the execution context lifecycle.
type State int32

const (
	// StateUninitialized is the state before Initialize has run.
	StateUninitialized State = iota
	// StateInitializing is the transient state while dependencies start.
	StateInitializing
	// StateReady is the published, usable state.
	StateReady
	// StateShuttingDown is the transient state while teardown runs.
	StateShuttingDown
	// StateClosed is terminal; any further use is a contract violation.
	StateClosed
)

// String returns the state label used in errors and logs.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateShuttingDown:
		return "shutting-down"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ContextClosedError reports use of the execution context outside its Ready
// window. It carries the lifecycle state observed at the time of failure.
type ContextClosedError struct {
	State State
	Op    string
}

// Error implements the error interface.
func (e *ContextClosedError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("execution context is %s (operation %s)", e.State, e.Op)
	}
	return fmt.Sprintf("execution context is %s", e.State)
}

// ContextInitializationError reports that a dependency failed to start. The
// failed access may be retried; no partially-ready context is ever published.
type ContextInitializationError struct {
	Step string
	Err  error
}

// Error implements the error interface.
func (e *ContextInitializationError) Error() string {
	return fmt.Sprintf("execution context initialization failed at %s: %v", e.Step, e.Err)
}

// Unwrap exposes the dependency's original error.
func (e *ContextInitializationError) Unwrap() error { return e.Err }

// Options overrides individual pieces of the context during Initialize.
type Options struct {
	// Logger replaces the logger built from the settings' logging section.
	Logger logging.Logger
}

// Context is the process-wide bundle of shared infrastructure. Registry and
// Telemetry are read-mostly and safe for concurrent use by many in-flight
// workflows; Executor is the sole submission point for generation work.
type Context struct {
	Settings  *config.Settings
	Registry  *registry.Registry
	Executor  *executor.Executor
	Telemetry *telemetry.Telemetry
	Logger    logging.Logger

	state atomic.Int32
}

// Initialize builds an execution context from settings. Construction is
// all-or-nothing: if any dependency fails to start, already-started pieces
// are torn down and a ContextInitializationError is returned.
func Initialize(ctx context.Context, settings *config.Settings, optFns ...func(o *Options)) (*Context, error) {
	if settings == nil {
		settings = config.Default()
	}

	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := settings.Validate(); err != nil {
		return nil, &ContextInitializationError{Step: "settings", Err: err}
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewSlogLogger(logging.ParseLevel(settings.Logging.Level), settings.Logging.Format, false)
	}

	tel, err := telemetry.Configure(ctx, func(o *telemetry.Options) {
		o.ServiceName = settings.Service.Name
		o.ServiceVersion = settings.Service.Version
		o.Exporter = settings.Telemetry.Exporter
		o.Endpoint = settings.Telemetry.Endpoint
		o.Insecure = settings.Telemetry.Insecure
		o.Logger = logger
	})
	if err != nil {
		return nil, &ContextInitializationError{Step: "telemetry", Err: err}
	}

	reg := registry.New(settings.Servers, func(o *registry.Options) {
		o.ClientName = settings.Service.Name
		o.ClientVersion = settings.Service.Version
		o.Logger = logger
	})

	exec := executor.New(settings.Executor.MaxConcurrent, func(o *executor.Options) {
		o.Logger = logger
	})

	c := &Context{
		Settings:  settings,
		Registry:  reg,
		Executor:  exec,
		Telemetry: tel,
		Logger:    logger,
	}
	c.state.Store(int32(StateReady))

	logger.Info("execution context ready", "service", settings.Service.Name, "servers", len(settings.Servers))
	return c, nil
}

// State returns the current lifecycle state.
func (c *Context) State() State { return State(c.state.Load()) }

// Active returns nil while the context is Ready and a ContextClosedError
// naming op otherwise.
func (c *Context) Active(op string) error {
	if s := c.State(); s != StateReady {
		return &ContextClosedError{State: s, Op: op}
	}
	return nil
}

// Tracer returns a named tracer backed by the context's telemetry pipeline.
func (c *Context) Tracer(name string) trace.Tracer {
	return c.Telemetry.Tracer(name)
}

// Shutdown tears the context down: the executor drains in-flight generation
// work, buffered telemetry is flushed, then registry connections are
// released. All steps run even if earlier ones fail; the first error is
// returned. Shutdown is idempotent and the context is unusable afterwards.
func (c *Context) Shutdown(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateReady), int32(StateShuttingDown)) {
		if c.State() == StateClosed {
			return nil
		}
		return &ContextClosedError{State: c.State(), Op: "shutdown"}
	}

	var errs []error
	if err := c.Executor.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := c.Telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := c.Registry.Close(); err != nil {
		errs = append(errs, err)
	}

	c.state.Store(int32(StateClosed))
	c.Logger.Info("execution context closed")
	return errors.Join(errs...)
}
