package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fanmesh.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeSettings(t, `
service:
  name: research-mesh
servers:
  search:
    transport: stdio
    command: search-server
    args: ["--index", "/tmp/idx"]
  fetch:
    transport: streamable
    url: http://localhost:9090/mcp
executor:
  max_concurrent: 4
telemetry:
  exporter: stdout
logging:
  level: debug
  format: text
`)

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "research-mesh", s.Service.Name)
	assert.Equal(t, "0.1.0", s.Service.Version) // defaulted
	assert.Len(t, s.Servers, 2)
	assert.Equal(t, "search-server", s.Servers["search"].Command)
	assert.Equal(t, "http://localhost:9090/mcp", s.Servers["fetch"].URL)
	assert.Equal(t, int64(4), s.Executor.MaxConcurrent)
	assert.Equal(t, "stdout", s.Telemetry.Exporter)
	assert.Equal(t, "debug", s.Logging.Level)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeSettings(t, `servers: {}`)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fanmesh", s.Service.Name)
	assert.Equal(t, "none", s.Telemetry.Exporter)
	assert.Equal(t, "info", s.Logging.Level)
	assert.Equal(t, "json", s.Logging.Format)
}

func TestLoad_InvalidServer(t *testing.T) {
	path := writeSettings(t, `
servers:
  broken:
    transport: stdio
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, `server "broken"`)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeSettings(t, "servers: [not a map")
	_, err := Load(path)
	assert.ErrorContains(t, err, "parse settings file")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "read settings file")
}

func TestValidate_BadExporter(t *testing.T) {
	s := Default()
	s.Telemetry.Exporter = "carrier-pigeon"
	assert.ErrorContains(t, s.Validate(), "not supported")
}

func TestDefault(t *testing.T) {
	s := Default()
	assert.Equal(t, "fanmesh", s.Service.Name)
	assert.NoError(t, s.Validate())
}
