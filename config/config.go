// Package config loads and validates the YAML settings consumed by the
// execution context: MCP server endpoints, executor limits, telemetry and
// logging.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/fanmesh/registry"
)

// Settings is the root configuration document.
type Settings struct {
	Service   ServiceSettings                     `yaml:"service"`
	Servers   map[string]registry.ServerSettings  `yaml:"servers"`
	Executor  ExecutorSettings                    `yaml:"executor"`
	Telemetry TelemetrySettings                   `yaml:"telemetry"`
	Logging   LoggingSettings                     `yaml:"logging"`
}

// ServiceSettings identifies this process to MCP servers and telemetry
// backends.
type ServiceSettings struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// ExecutorSettings tunes the generation work pool.
type ExecutorSettings struct {
	// MaxConcurrent bounds simultaneously running generation tasks.
	// Non-positive values fall back to the executor default.
	MaxConcurrent int64 `yaml:"max_concurrent"`
}

// TelemetrySettings selects the span exporter and its target.
type TelemetrySettings struct {
	Exporter string `yaml:"exporter"` // none, stdout or otlp
	Endpoint string `yaml:"endpoint,omitempty"`
	Insecure bool   `yaml:"insecure,omitempty"`
}

// LoggingSettings controls the built-in structured logger.
type LoggingSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

// Default returns settings suitable for local development: no servers, a
// bounded executor and telemetry disabled.
func Default() *Settings {
	s := &Settings{}
	s.applyDefaults()
	return s
}

// Load parses the YAML settings file at path and applies defaults for
// unset fields.
func Load(path string) (*Settings, error) {
	if path == "" {
		return nil, fmt.Errorf("settings path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}

	var s Settings
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse settings file: %w", err)
	}

	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) applyDefaults() {
	if s.Service.Name == "" {
		s.Service.Name = "fanmesh"
	}
	if s.Service.Version == "" {
		s.Service.Version = "0.1.0"
	}
	if s.Telemetry.Exporter == "" {
		s.Telemetry.Exporter = "none"
	}
	if s.Logging.Level == "" {
		s.Logging.Level = "info"
	}
	if s.Logging.Format == "" {
		s.Logging.Format = "json"
	}
}

// Validate checks the per-server transport settings; the execution context
// refuses to start from invalid settings.
func (s *Settings) Validate() error {
	for name, server := range s.Servers {
		if err := server.Validate(); err != nil {
			return fmt.Errorf("server %q: %w", name, err)
		}
	}
	switch s.Telemetry.Exporter {
	case "none", "stdout", "otlp":
	default:
		return fmt.Errorf("telemetry exporter %q is not supported", s.Telemetry.Exporter)
	}
	return nil
}
