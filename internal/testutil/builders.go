package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fanmesh/appctx"
	"github.com/hupe1980/fanmesh/config"
	"github.com/hupe1980/fanmesh/core"
)

// QuietSettings returns settings that start without servers, without
// telemetry export, and with warn-level logging.
func QuietSettings() *config.Settings {
	s := config.Default()
	s.Service.Name = "fanmesh-test"
	s.Telemetry.Exporter = "none"
	s.Logging.Level = "warn"
	return s
}

// NewReadyContext initializes an execution context suitable for tests and
// tears it down on cleanup.
func NewReadyContext(t *testing.T) *appctx.Context {
	t.Helper()

	appCtx, err := appctx.Initialize(context.Background(), QuietSettings())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = appCtx.Shutdown(context.Background())
	})
	return appCtx
}

// AssistantSequence builds a message sequence of assistant-role messages,
// one per content string.
func AssistantSequence(contents ...string) core.MessageSequence {
	out := make(core.MessageSequence, 0, len(contents))
	for _, c := range contents {
		out = append(out, core.NewAssistantMessage(c))
	}
	return out
}

// SourceTexts builds attributed text pairs from alternating source, text
// arguments.
func SourceTexts(t *testing.T, pairs ...string) []core.SourceText {
	t.Helper()
	require.Zero(t, len(pairs)%2, "pairs must alternate source, text")

	out := make([]core.SourceText, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, core.SourceText{Source: pairs[i], Text: pairs[i+1]})
	}
	return out
}
