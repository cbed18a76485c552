package dialog

import (
	"context"
	"io"
)

// Button is one pressable element. Key and Payload are only meaningful
// on inline keyboards, where they round-trip through callback events.
type Button struct {
	Text    string
	Key     string
	Payload string
}

// Keyboard describes the reply markup attached to an outgoing message.
// Remove clears any previously shown reply keyboard.
type Keyboard struct {
	Inline bool
	Rows   [][]Button
	Remove bool
}

// Row is a convenience constructor for one keyboard row.
func Row(buttons ...Button) []Button { return buttons }

// Sender is the outbound side the rules talk to. The gateway provides
// the Telegram-backed implementation; tests substitute a recorder.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string, kb *Keyboard) error
	SendPhoto(ctx context.Context, chatID int64, image io.Reader, caption string) error
}
