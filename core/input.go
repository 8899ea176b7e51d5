package core

import "fmt"

// InputKind identifies which of the four accepted fan-in shapes an input
// carries.
type InputKind int

const (
	// KindInvalid is the zero value; a FanInInput of this kind was not built
	// through a constructor and is rejected by the normalizer.
	KindInvalid InputKind = iota
	// KindSourceTexts is a mapping of source id to text payload.
	KindSourceTexts
	// KindSourceSequences is a mapping of source id to message sequence.
	KindSourceSequences
	// KindTexts is an unattributed ordered list of text payloads.
	KindTexts
	// KindSequences is an unattributed ordered list of message sequences.
	KindSequences
)

// String returns a short label for the input kind.
func (k InputKind) String() string {
	switch k {
	case KindSourceTexts:
		return "source-texts"
	case KindSourceSequences:
		return "source-sequences"
	case KindTexts:
		return "texts"
	case KindSequences:
		return "sequences"
	default:
		return "invalid"
	}
}

// SourceText attributes a text payload to a named source.
type SourceText struct {
	Source string
	Text   string
}

// SourceSequence attributes a message sequence to a named source.
type SourceSequence struct {
	Source   string
	Messages MessageSequence
}

// SourceResult is one source's contribution before classification. Payload
// must be a string or a MessageSequence; ClassifyResults rejects anything
// else.
type SourceResult struct {
	Source  string
	Payload any
}

// FanInInput is the tagged union accepted by the aggregator. Values are
// only constructable through the typed constructors (which validate
// non-emptiness) or through the Classify functions (which additionally
// reject mixed payload shapes), so merge logic never needs defensive type
// checks.
//
// Attributed inputs are ordered slices of (source, payload) pairs rather
// than maps: merge rendering must follow the order the pairs were supplied,
// and Go maps do not preserve insertion order.
type FanInInput struct {
	kind            InputKind
	sourceTexts     []SourceText
	sourceSequences []SourceSequence
	texts           []string
	sequences       []MessageSequence
}

// Kind returns the shape tag of the input.
func (in FanInInput) Kind() InputKind { return in.kind }

// SourceTexts returns the attributed text payloads. Only meaningful when
// Kind is KindSourceTexts.
func (in FanInInput) SourceTexts() []SourceText { return in.sourceTexts }

// SourceSequences returns the attributed message sequences. Only meaningful
// when Kind is KindSourceSequences.
func (in FanInInput) SourceSequences() []SourceSequence { return in.sourceSequences }

// Texts returns the unattributed text payloads. Only meaningful when Kind is
// KindTexts.
func (in FanInInput) Texts() []string { return in.texts }

// Sequences returns the unattributed message sequences. Only meaningful when
// Kind is KindSequences.
func (in FanInInput) Sequences() []MessageSequence { return in.sequences }

// Len returns the number of contributing payloads.
func (in FanInInput) Len() int {
	switch in.kind {
	case KindSourceTexts:
		return len(in.sourceTexts)
	case KindSourceSequences:
		return len(in.sourceSequences)
	case KindTexts:
		return len(in.texts)
	case KindSequences:
		return len(in.sequences)
	default:
		return 0
	}
}

// SourceTextsInput builds an attributed text input. The supplied order is
// the merge rendering order. Empty text payloads are permitted (they still
// render an attribution line); an empty pair set is not.
func SourceTextsInput(pairs ...SourceText) (FanInInput, error) {
	if len(pairs) == 0 {
		return FanInInput{}, &ValidationError{Shape: KindSourceTexts.String(), Reason: "input cannot be empty"}
	}
	return FanInInput{kind: KindSourceTexts, sourceTexts: pairs}, nil
}

// SourceSequencesInput builds an attributed message-sequence input. The
// supplied order is the merge rendering order.
func SourceSequencesInput(pairs ...SourceSequence) (FanInInput, error) {
	if len(pairs) == 0 {
		return FanInInput{}, &ValidationError{Shape: KindSourceSequences.String(), Reason: "input cannot be empty"}
	}
	return FanInInput{kind: KindSourceSequences, sourceSequences: pairs}, nil
}

// TextsInput builds an unattributed ordered text input.
func TextsInput(texts ...string) (FanInInput, error) {
	if len(texts) == 0 {
		return FanInInput{}, &ValidationError{Shape: KindTexts.String(), Reason: "input cannot be empty"}
	}
	return FanInInput{kind: KindTexts, texts: texts}, nil
}

// SequencesInput builds an unattributed ordered message-sequence input.
func SequencesInput(sequences ...MessageSequence) (FanInInput, error) {
	if len(sequences) == 0 {
		return FanInInput{}, &ValidationError{Shape: KindSequences.String(), Reason: "input cannot be empty"}
	}
	return FanInInput{kind: KindSequences, sequences: sequences}, nil
}

// ClassifyResults classifies attributed results whose payload shape is not
// known statically (e.g. collected from heterogeneous fan-out tasks). The
// first payload's shape selects the branch; every other payload must match
// it or a ValidationError naming the offender is returned. Order is
// preserved.
func ClassifyResults(results []SourceResult) (FanInInput, error) {
	if len(results) == 0 {
		return FanInInput{}, &ValidationError{Reason: "input cannot be empty"}
	}

	switch results[0].Payload.(type) {
	case string:
		pairs := make([]SourceText, len(results))
		for i, r := range results {
			text, ok := r.Payload.(string)
			if !ok {
				return FanInInput{}, &ValidationError{
					Source: r.Source,
					Shape:  payloadShape(r.Payload),
					Reason: "all payloads must be text",
				}
			}
			pairs[i] = SourceText{Source: r.Source, Text: text}
		}
		return SourceTextsInput(pairs...)
	case MessageSequence, []Message:
		pairs := make([]SourceSequence, len(results))
		for i, r := range results {
			seq, ok := asSequence(r.Payload)
			if !ok {
				return FanInInput{}, &ValidationError{
					Source: r.Source,
					Shape:  payloadShape(r.Payload),
					Reason: "all payloads must be message sequences",
				}
			}
			pairs[i] = SourceSequence{Source: r.Source, Messages: seq}
		}
		return SourceSequencesInput(pairs...)
	default:
		return FanInInput{}, &ValidationError{
			Source: results[0].Source,
			Shape:  payloadShape(results[0].Payload),
			Reason: "payload must be text or a message sequence",
		}
	}
}

// ClassifyPayloads classifies an unattributed payload list. Elements must be
// uniformly text or uniformly message sequences.
func ClassifyPayloads(payloads []any) (FanInInput, error) {
	if len(payloads) == 0 {
		return FanInInput{}, &ValidationError{Reason: "input cannot be empty"}
	}

	switch payloads[0].(type) {
	case string:
		texts := make([]string, len(payloads))
		for i, p := range payloads {
			text, ok := p.(string)
			if !ok {
				return FanInInput{}, &ValidationError{
					Shape:  payloadShape(p),
					Reason: fmt.Sprintf("element %d is not text", i+1),
				}
			}
			texts[i] = text
		}
		return TextsInput(texts...)
	case MessageSequence, []Message:
		sequences := make([]MessageSequence, len(payloads))
		for i, p := range payloads {
			seq, ok := asSequence(p)
			if !ok {
				return FanInInput{}, &ValidationError{
					Shape:  payloadShape(p),
					Reason: fmt.Sprintf("element %d is not a message sequence", i+1),
				}
			}
			sequences[i] = seq
		}
		return SequencesInput(sequences...)
	default:
		return FanInInput{}, &ValidationError{
			Shape:  payloadShape(payloads[0]),
			Reason: "elements must be text or message sequences",
		}
	}
}

func asSequence(payload any) (MessageSequence, bool) {
	switch v := payload.(type) {
	case MessageSequence:
		return v, true
	case []Message:
		return MessageSequence(v), true
	default:
		return nil, false
	}
}

func payloadShape(payload any) string {
	switch payload.(type) {
	case string:
		return "text"
	case MessageSequence, []Message:
		return "message-sequence"
	default:
		return fmt.Sprintf("%T", payload)
	}
}
