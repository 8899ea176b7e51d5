// Package logging provides a minimal logging interface and adapters for
// fanmesh.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) used across the execution context, registry, executor and
// fan-in workflows. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - FanMeshLogger with contextual run / workflow attributes and domain
//     helpers for generation and tool calls
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	app, err := fanmesh.New(ctx, func(o *fanmesh.Options) { o.Logger = logger })
//
// The design intentionally keeps the interface minimal to avoid vendor
// lock-in while supporting structured logging where available.
package logging
