package handlers

// EventResult is the output of a handler invocation.
type EventResult struct {
	reply   any
	changed bool
}

// NewEventResult constructs a handler result for a read-only command.
func NewEventResult(reply any) EventResult {
	return EventResult{reply: reply}
}

// newChangedResult constructs a handler result for a command that mutated
// the seed.
func newChangedResult(reply any) EventResult {
	return EventResult{reply: reply, changed: true}
}

// Reply returns the message to send back to the calling connection.
func (r EventResult) Reply() any { return r.reply }

// Changed reports whether the handler mutated the seed, so the transport
// adapter should fan the change out to other connections.
func (r EventResult) Changed() bool { return r.changed }
