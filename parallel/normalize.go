package parallel

import (
	"fmt"
	"strings"

	"github.com/hupe1980/fanmesh/core"
)

// Banner lines prepended to merged text blocks. These are a fixed contract:
// downstream aggregator prompts and transcripts depend on the exact wording.
const (
	agentBanner  = "Aggregated responses from multiple Agents:"
	sourceBanner = "Aggregated responses from multiple sources:"
)

// Normalizer merges classified fan-in input into one MergedMessage. It is a
// pure data-shape merger with no I/O; Merge is safe to retry.
//
// Text-shaped inputs render into a single formatted block: one section per
// source, each unit prefixed with its provenance label, units joined with a
// single line break, sections joined with a double line break, and a banner
// prepended. Message-shaped inputs stay message sequences: the per-source
// sequences are concatenated in input order with each message stamped with
// its provenance label, so structured handling remains possible downstream.
type Normalizer struct{}

// Merge normalizes a fan-in input. Order is always the order the input was
// assembled in, never sorted.
func (n Normalizer) Merge(input core.FanInInput) (core.MergedMessage, error) {
	switch input.Kind() {
	case core.KindSourceTexts:
		return n.mergeSourceTexts(input.SourceTexts()), nil
	case core.KindTexts:
		return n.mergeTexts(input.Texts()), nil
	case core.KindSourceSequences:
		return n.mergeSourceSequences(input.SourceSequences()), nil
	case core.KindSequences:
		return n.mergeSequences(input.Sequences()), nil
	default:
		return core.MergedMessage{}, &core.ValidationError{
			Shape:  input.Kind().String(),
			Reason: "input is not a recognized fan-in shape",
		}
	}
}

func (n Normalizer) mergeSourceTexts(pairs []core.SourceText) core.MergedMessage {
	sections := make([]string, 0, len(pairs))
	for _, p := range pairs {
		sections = append(sections, fmt.Sprintf("Agent %s: %s", p.Source, p.Text))
	}
	return core.MergedMessage{Text: render(agentBanner, sections)}
}

func (n Normalizer) mergeTexts(texts []string) core.MergedMessage {
	sections := make([]string, 0, len(texts))
	for i, t := range texts {
		sections = append(sections, fmt.Sprintf("Source %d: %s", i+1, t))
	}
	return core.MergedMessage{Text: render(sourceBanner, sections)}
}

func (n Normalizer) mergeSourceSequences(pairs []core.SourceSequence) core.MergedMessage {
	var merged core.MessageSequence
	for _, p := range pairs {
		merged = append(merged, stamp(p.Messages, p.Source)...)
	}
	return core.MergedMessage{Messages: merged}
}

func (n Normalizer) mergeSequences(sequences []core.MessageSequence) core.MergedMessage {
	var merged core.MessageSequence
	for i, seq := range sequences {
		merged = append(merged, stamp(seq, fmt.Sprintf("Source %d", i+1))...)
	}
	return core.MergedMessage{Messages: merged}
}

// stamp labels every message of a source's sequence with its provenance. An
// empty sequence still contributes one empty stamped message so the count of
// contributing sources survives the merge.
func stamp(seq core.MessageSequence, source string) core.MessageSequence {
	if len(seq) == 0 {
		return core.MessageSequence{core.NewUserMessage("").WithSource(source)}
	}
	out := make(core.MessageSequence, 0, len(seq))
	for _, m := range seq {
		out = append(out, m.WithSource(source))
	}
	return out
}

func render(banner string, sections []string) string {
	return banner + "\n\n" + strings.Join(sections, "\n\n")
}
