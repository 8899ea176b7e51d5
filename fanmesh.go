// Package fanmesh provides a high-level façade over the execution context
// and the parallel fan-out / fan-in workflow. Most applications interact
// with this package by:
//  1. Creating an App via New() (optionally pointing it at a config file)
//  2. Creating agents bound to the app's tool-server registry
//  3. Running parallel workflows whose results are aggregated by a
//     designated aggregator worker
//
// The façade delegates lifecycle management to appctx.Context while keeping
// setup ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a config file with real
// tool servers and an OTLP telemetry endpoint.
package fanmesh

import (
	"context"

	"github.com/hupe1980/fanmesh/appctx"
	"github.com/hupe1980/fanmesh/config"
	"github.com/hupe1980/fanmesh/logging"
	"github.com/hupe1980/fanmesh/parallel"
	"github.com/hupe1980/fanmesh/registry"
	"github.com/hupe1980/fanmesh/worker"
)

// Options configures the App instance.
type Options struct {
	// ConfigPath loads settings from a YAML file. Ignored when Settings is
	// set.
	ConfigPath string

	// Settings overrides file-based configuration entirely.
	Settings *config.Settings

	// Logger replaces the logger built from the settings' logging section.
	Logger logging.Logger
}

// App is the high-level façade owning one execution context.
type App struct {
	appCtx *appctx.Context
}

// New creates an App, initializing the shared infrastructure (registry,
// executor, telemetry) all-or-nothing. The returned App must be shut down
// with Shutdown.
func New(ctx context.Context, optFns ...func(o *Options)) (*App, error) {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	settings := opts.Settings
	if settings == nil && opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		settings = loaded
	}

	appCtx, err := appctx.Initialize(ctx, settings, func(o *appctx.Options) {
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, err
	}

	return &App{appCtx: appCtx}, nil
}

// Context exposes the underlying execution context for components that take
// it by constructor injection.
func (a *App) Context() *appctx.Context { return a.appCtx }

// Registry exposes the shared tool-server registry.
func (a *App) Registry() *registry.Registry { return a.appCtx.Registry }

// NewAgent creates an agent bound to the app's registry.
func (a *App) NewAgent(name string, optFns ...func(o *worker.AgentOptions)) *worker.Agent {
	return worker.NewAgent(name, a.appCtx.Registry, optFns...)
}

// NewParallel creates a fan-out / fan-in workflow whose results are
// aggregated through ref.
func (a *App) NewParallel(ref worker.AggregatorRef, optFns ...func(o *parallel.WorkflowOptions)) (*parallel.Workflow, error) {
	return parallel.NewWorkflow(a.appCtx, ref, optFns...)
}

// NewFanIn creates a standalone fan-in aggregator for callers that run their
// own fan-out.
func (a *App) NewFanIn(ref worker.AggregatorRef, optFns ...func(o *parallel.FanInOptions)) (*parallel.FanIn, error) {
	return parallel.NewFanIn(a.appCtx, ref, optFns...)
}

// Shutdown tears the execution context down, flushing telemetry and
// releasing registry connections. Further use of the app fails with
// *appctx.ContextClosedError.
func (a *App) Shutdown(ctx context.Context) error {
	return a.appCtx.Shutdown(ctx)
}
