package core

// Message is one opaque conversation record produced by a worker. Role and
// Content carry the provider-normalized transcript entry; Source carries the
// provenance label stamped during merging so downstream consumers can tell
// which worker contributed the record.
type Message struct {
	Role     string         `json:"role"`
	Content  string         `json:"content"`
	Source   string         `json:"source,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// MessageSequence is an ordered conversation fragment (typically a worker's
// generation history).
type MessageSequence []Message

// NewUserMessage constructs a user-role message.
func NewUserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// NewAssistantMessage constructs an assistant-role message.
func NewAssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}

// WithSource returns a copy of the message stamped with a provenance label.
func (m Message) WithSource(source string) Message {
	m.Source = source
	return m
}

// MergedMessage is the single normalized unit handed to the aggregator
// worker. Exactly one of Text or Messages is populated: text-shaped inputs
// merge into a formatted Text block, message-shaped inputs merge into a
// concatenated Messages sequence so structured handling remains possible
// downstream.
type MergedMessage struct {
	Text     string
	Messages MessageSequence
}

// IsText reports whether the merged result is a formatted text block rather
// than a message sequence.
func (m MergedMessage) IsText() bool { return m.Messages == nil }

// AsText renders the merged message as plain text. Text mode returns the
// formatted block unchanged; message mode joins the message contents in
// order, which is only intended for logging and diagnostics.
func (m MergedMessage) AsText() string {
	if m.IsText() {
		return m.Text
	}
	out := ""
	for i, msg := range m.Messages {
		if i > 0 {
			out += "\n"
		}
		out += msg.Content
	}
	return out
}
