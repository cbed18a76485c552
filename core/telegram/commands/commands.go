// Package commands holds the slash command descriptor personas register
// with their bot.
package commands

import tele "gopkg.in/telebot.v4"

// Command couples a handler with how the command appears in the menu.
// Hidden commands work but stay out of the menu; AdminOnly commands are
// additionally gated to the configured admin chat.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
}
