package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_None(t *testing.T) {
	tel, err := Configure(context.Background())
	require.NoError(t, err)
	require.NotNil(t, tel)

	// A no-op pipeline still hands out usable tracers.
	_, span := tel.Tracer("test").Start(context.Background(), "op")
	span.End()

	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestConfigure_Stdout(t *testing.T) {
	tel, err := Configure(context.Background(), func(o *Options) {
		o.Exporter = ExporterStdout
		o.ServiceName = "telemetry-test"
	})
	require.NoError(t, err)
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestConfigure_UnknownExporter(t *testing.T) {
	_, err := Configure(context.Background(), func(o *Options) {
		o.Exporter = "carrier-pigeon"
	})
	assert.ErrorContains(t, err, "unknown telemetry exporter")
}

func TestTelemetry_NilSafe(t *testing.T) {
	var tel *Telemetry
	_, span := tel.Tracer("test").Start(context.Background(), "op")
	span.End()
	assert.NoError(t, tel.Shutdown(context.Background()))
}
