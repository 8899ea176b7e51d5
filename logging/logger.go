package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"
)

// LogLevel is a thin enum for user friendly level configuration decoupled from slog.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a configuration string to a LogLevel, defaulting to info.
func ParseLevel(s string) LogLevel {
	switch s {
	case "debug", "DEBUG":
		return LogLevelDebug
	case "warn", "WARN":
		return LogLevelWarn
	case "error", "ERROR":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// Logger defines the minimal logging interface for fanmesh.
// This allows users to provide their own logger implementation or use the built-in adapters.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// FanMeshLogger wraps slog.Logger adding contextual cloning helpers and
// domain convenience methods. It should be cheap to copy via With* methods.
type FanMeshLogger struct {
	logger     *slog.Logger
	level      LogLevel
	context    map[string]any
	component  string
	runID      string
	workflowID string
}

// LoggerConfig configures construction of a FanMeshLogger.
type LoggerConfig struct {
	Level       LogLevel
	Format      string // json or text
	Output      io.Writer
	AddSource   bool
	Component   string
	RunID       string
	WorkflowID  string
	CustomAttrs map[string]any
}

// DefaultLoggerConfig returns a baseline JSON info level configuration.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{Level: LogLevelInfo, Format: "json", Output: os.Stdout, AddSource: true, CustomAttrs: map[string]any{}}
}

// NewLogger builds a FanMeshLogger from a config (or defaults if nil).
func NewLogger(cfg *LoggerConfig) *FanMeshLogger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}
	opts := &slog.HandlerOptions{Level: slogLevel(cfg.Level), AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}
	return &FanMeshLogger{logger: slog.New(handler), level: cfg.Level, context: map[string]any{}, component: cfg.Component, runID: cfg.RunID, workflowID: cfg.WorkflowID}
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *FanMeshLogger) clone() *FanMeshLogger {
	nl := *l
	nl.context = map[string]any{}
	for k, v := range l.context {
		nl.context[k] = v
	}
	return &nl
}

// WithContext adds a key/value attribute that will be attached to every log entry.
func (l *FanMeshLogger) WithContext(key string, value any) *FanMeshLogger {
	nl := l.clone()
	nl.context[key] = value
	return nl
}

// WithComponent sets the logical component (fanin, registry, executor, etc.).
func (l *FanMeshLogger) WithComponent(c string) *FanMeshLogger {
	nl := l.clone()
	nl.component = c
	return nl
}

// WithRun attaches workflow and run identifiers.
func (l *FanMeshLogger) WithRun(workflowID, runID string) *FanMeshLogger {
	nl := l.clone()
	nl.workflowID = workflowID
	nl.runID = runID
	return nl
}

func (l *FanMeshLogger) buildAttrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(l.context)+4)
	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}
	if l.workflowID != "" {
		attrs = append(attrs, slog.String("workflow_id", l.workflowID))
	}
	if l.runID != "" {
		attrs = append(attrs, slog.String("run_id", l.runID))
	}
	attrs = append(attrs, slog.Time("timestamp", time.Now()))
	for k, v := range l.context {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

func (l *FanMeshLogger) log(level slog.Level, allowed bool, msg string, args ...any) {
	if !allowed {
		return
	}
	attrs := l.buildAttrs()
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// Debug logs at debug level.
func (l *FanMeshLogger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, l.level <= LogLevelDebug, msg, args...)
}

// Info logs at info level.
func (l *FanMeshLogger) Info(msg string, args ...any) {
	l.log(slog.LevelInfo, l.level <= LogLevelInfo, msg, args...)
}

// Warn logs at warn level.
func (l *FanMeshLogger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, l.level <= LogLevelWarn, msg, args...)
}

// Error logs at error level.
func (l *FanMeshLogger) Error(msg string, args ...any) {
	l.log(slog.LevelError, l.level <= LogLevelError, msg, args...)
}

// ErrorWithStack logs an error plus a runtime stack snapshot.
func (l *FanMeshLogger) ErrorWithStack(err error, msg string, args ...any) {
	if l.level > LogLevelError {
		return
	}
	attrs := l.buildAttrs()
	attrs = append(attrs, slog.String("error", err.Error()), slog.String("error_type", fmt.Sprintf("%T", err)))
	stack := make([]byte, 4096)
	n := runtime.Stack(stack, false)
	attrs = append(attrs, slog.String("stack_trace", string(stack[:n])))
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	l.logger.LogAttrs(context.Background(), slog.LevelError, msg, attrs...)
}

// LogGenerationCall records model call latency, token usage and success for a
// worker invocation.
func (l *FanMeshLogger) LogGenerationCall(model string, tokens int, dur time.Duration, success bool, err error) {
	attrs := l.buildAttrs()
	attrs = append(attrs, slog.String("model", model), slog.Int("token_count", tokens), slog.Duration("duration", dur), slog.Bool("success", success))
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	level := slog.LevelInfo
	msg := "Generation call completed"
	if !success {
		level = slog.LevelError
		msg = "Generation call failed"
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// LogToolCall records execution details for a remote tool invocation.
func (l *FanMeshLogger) LogToolCall(server, tool string, dur time.Duration, success bool, err error) {
	attrs := l.buildAttrs()
	attrs = append(attrs, slog.String("server", server), slog.String("tool_name", tool), slog.Duration("duration", dur), slog.Bool("success", success))
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	level := slog.LevelInfo
	msg := "Tool call completed"
	if !success {
		level = slog.LevelError
		msg = "Tool call failed"
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// LogAggregation records shape and size of a completed fan-in merge.
func (l *FanMeshLogger) LogAggregation(shape string, sources int, dur time.Duration) {
	attrs := l.buildAttrs()
	attrs = append(attrs, slog.String("input_shape", shape), slog.Int("source_count", sources), slog.Duration("duration", dur))
	l.logger.LogAttrs(context.Background(), slog.LevelDebug, "Aggregation completed", attrs...)
}

// StartTimer returns a closure that logs the elapsed duration when invoked.
func (l *FanMeshLogger) StartTimer(op string) func() {
	start := time.Now()
	return func() { l.Info("Operation completed", "operation", op, "duration", time.Since(start)) }
}

// NoOpLogger discards all log messages. Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}

// NewSlogLogger creates a new FanMeshLogger with the specified configuration.
func NewSlogLogger(level LogLevel, format string, addSource bool) *FanMeshLogger {
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	if format != "" {
		cfg.Format = format
	}
	cfg.AddSource = addSource
	return NewLogger(cfg)
}
