package parallel

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fanmesh/core"
)

func TestNormalizer_AttributedTexts_ExactRendering(t *testing.T) {
	input, err := core.SourceTextsInput(
		core.SourceText{Source: "A", Text: "result one"},
		core.SourceText{Source: "B", Text: "result two"},
	)
	require.NoError(t, err)

	merged, err := Normalizer{}.Merge(input)
	require.NoError(t, err)
	require.True(t, merged.IsText())
	assert.Equal(t, "Aggregated responses from multiple Agents:\n\nAgent A: result one\n\nAgent B: result two", merged.Text)
}

func TestNormalizer_PositionalTexts_ExactRendering(t *testing.T) {
	input, err := core.TextsInput("x", "y")
	require.NoError(t, err)

	merged, err := Normalizer{}.Merge(input)
	require.NoError(t, err)
	require.True(t, merged.IsText())
	assert.Equal(t, "Aggregated responses from multiple sources:\n\nSource 1: x\n\nSource 2: y", merged.Text)
}

func TestNormalizer_AttributedTexts_InsertionOrder(t *testing.T) {
	// Deliberately reverse-alphabetical to catch accidental sorting.
	input, err := core.SourceTextsInput(
		core.SourceText{Source: "zeta", Text: "last alphabetically, first supplied"},
		core.SourceText{Source: "mid", Text: "middle"},
		core.SourceText{Source: "alpha", Text: "first alphabetically, last supplied"},
	)
	require.NoError(t, err)

	merged, err := Normalizer{}.Merge(input)
	require.NoError(t, err)

	zeta := strings.Index(merged.Text, "Agent zeta: ")
	mid := strings.Index(merged.Text, "Agent mid: ")
	alpha := strings.Index(merged.Text, "Agent alpha: ")
	require.NotEqual(t, -1, zeta)
	require.NotEqual(t, -1, mid)
	require.NotEqual(t, -1, alpha)
	assert.Less(t, zeta, mid)
	assert.Less(t, mid, alpha)

	assert.Equal(t, 3, strings.Count(merged.Text, "Agent "), "exactly one attribution per source")
}

func TestNormalizer_PositionalTexts_InputOrder(t *testing.T) {
	texts := []string{"delta", "charlie", "bravo", "alpha"}
	input, err := core.TextsInput(texts...)
	require.NoError(t, err)

	merged, err := Normalizer{}.Merge(input)
	require.NoError(t, err)

	prev := -1
	for i, text := range texts {
		idx := strings.Index(merged.Text, fmt.Sprintf("Source %d: %s", i+1, text))
		require.NotEqual(t, -1, idx, "source %d must keep its payload", i+1)
		assert.Greater(t, idx, prev)
		prev = idx
	}
}

func TestNormalizer_AttributedTexts_EmptyPayloadKeepsAttribution(t *testing.T) {
	input, err := core.SourceTextsInput(
		core.SourceText{Source: "A", Text: "something"},
		core.SourceText{Source: "B", Text: ""},
	)
	require.NoError(t, err)

	merged, err := Normalizer{}.Merge(input)
	require.NoError(t, err)
	assert.Contains(t, merged.Text, "Agent B: ", "empty payload still renders its attribution")
}

func TestNormalizer_AttributedSequences_ModePreserving(t *testing.T) {
	input, err := core.SourceSequencesInput(
		core.SourceSequence{Source: "researcher", Messages: core.MessageSequence{
			core.NewAssistantMessage("finding one"),
			core.NewAssistantMessage("finding two"),
		}},
		core.SourceSequence{Source: "critic", Messages: core.MessageSequence{
			core.NewAssistantMessage("objection"),
		}},
	)
	require.NoError(t, err)

	merged, err := Normalizer{}.Merge(input)
	require.NoError(t, err)
	require.False(t, merged.IsText())
	require.Len(t, merged.Messages, 3)

	assert.Equal(t, "researcher", merged.Messages[0].Source)
	assert.Equal(t, "finding one", merged.Messages[0].Content)
	assert.Equal(t, "researcher", merged.Messages[1].Source)
	assert.Equal(t, "critic", merged.Messages[2].Source)
	assert.Equal(t, "objection", merged.Messages[2].Content)
}

func TestNormalizer_AttributedSequences_EmptyPayloadKeepsSource(t *testing.T) {
	input, err := core.SourceSequencesInput(
		core.SourceSequence{Source: "quiet", Messages: nil},
		core.SourceSequence{Source: "loud", Messages: core.MessageSequence{core.NewAssistantMessage("hi")}},
	)
	require.NoError(t, err)

	merged, err := Normalizer{}.Merge(input)
	require.NoError(t, err)
	require.Len(t, merged.Messages, 2)
	assert.Equal(t, "quiet", merged.Messages[0].Source)
	assert.Empty(t, merged.Messages[0].Content)
	assert.Equal(t, "loud", merged.Messages[1].Source)
}

func TestNormalizer_PositionalSequences_Stamped(t *testing.T) {
	input, err := core.SequencesInput(
		core.MessageSequence{core.NewAssistantMessage("first")},
		core.MessageSequence{core.NewAssistantMessage("second")},
	)
	require.NoError(t, err)

	merged, err := Normalizer{}.Merge(input)
	require.NoError(t, err)
	require.Len(t, merged.Messages, 2)
	assert.Equal(t, "Source 1", merged.Messages[0].Source)
	assert.Equal(t, "Source 2", merged.Messages[1].Source)
}

func TestNormalizer_InvalidInput(t *testing.T) {
	_, err := Normalizer{}.Merge(core.FanInInput{})

	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
}
