// Package dialog implements the per-chat conversation state machine:
// which step a chat is in, the ordered transition rules that move it,
// and the per-chat serialization that keeps transitions race-free.
package dialog

// EventKind discriminates the three inbound event shapes.
type EventKind int

const (
	EventText EventKind = iota
	EventPhoto
	EventCallback
)

func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventPhoto:
		return "photo"
	case EventCallback:
		return "callback"
	default:
		return "unknown"
	}
}

// Event is one decoded inbound update, already attributed to a chat.
type Event struct {
	Kind   EventKind
	ChatID int64

	// Text payload, set for EventText.
	Text string

	// PhotoID is the provider file handle, set for EventPhoto.
	PhotoID string

	// CallbackKey and CallbackPayload are the decoded button data,
	// set for EventCallback. The provider-level acknowledgment has
	// already been sent by the gateway before the event reaches a rule.
	CallbackKey     string
	CallbackPayload string
}
