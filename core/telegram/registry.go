package telegram

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"log/slog"

	"github.com/m3rciful/schedbot/core/logger"
	"github.com/m3rciful/schedbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Registry collects one persona's slash commands and callback keys
// before the bot starts. Commands become bot routes and the visible
// subset is pushed to the Telegram command menu; callback keys are the
// set of inline buttons the persona answers.
type Registry struct {
	mu        sync.RWMutex
	commands  map[string]commands.Command
	callbacks map[string]tele.HandlerFunc
	notFound  tele.HandlerFunc
}

// NewRegistry returns an empty registry whose unknown-callback response
// tells the user the button is stale.
func NewRegistry() *Registry {
	return &Registry{
		commands:  map[string]commands.Command{},
		callbacks: map[string]tele.HandlerFunc{},
		notFound: func(c tele.Context) error {
			_ = c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
			return nil
		},
	}
}

// RegisterCommand records a slash command. Invalid or duplicate
// registrations are logged and skipped rather than failing startup.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) {
	reason := ""
	switch {
	case r == nil || cmd.Handler == nil || cmd.Description == "":
		reason = "incomplete"
	case !strings.HasPrefix(name, "/"):
		reason = "no_slash_prefix"
	}
	if reason != "" {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.command.skip",
			slog.String("name", name),
			slog.String("reason", reason),
		)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.commands[name]; dup {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.command.duplicate",
			slog.String("name", name),
		)
		return
	}
	r.commands[name] = cmd
}

// Commands returns a copy of the registered command set.
func (r *Registry) Commands() map[string]commands.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]commands.Command, len(r.commands))
	for name, cmd := range r.commands {
		out[name] = cmd
	}
	return out
}

// MenuCommands returns the sorted command list for the Telegram menu,
// leaving out hidden and admin-only entries.
func (r *Registry) MenuCommands() []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	menu := make([]tele.Command, 0, len(r.commands))
	for name, cmd := range r.commands {
		if cmd.Hidden || cmd.AdminOnly {
			continue
		}
		menu = append(menu, tele.Command{Text: name, Description: cmd.Description})
	}
	sort.Slice(menu, func(i, j int) bool { return menu[i].Text < menu[j].Text })
	return menu
}

// RegisterCallback binds an inline button key to its handler.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if r == nil || key == "" || handler == nil {
		return fmt.Errorf("telegram: invalid callback registration %q", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.callbacks[key]; dup {
		return fmt.Errorf("telegram: callback already registered: %s", key)
	}
	r.callbacks[key] = handler
	return nil
}

// GetCallback returns the handler for a key, if any.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// CallbackNotFound returns the unknown-callback response handler.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	return r.notFound
}

// InitBotCommands pushes the visible command menu to Telegram.
func InitBotCommands(bot *tele.Bot, reg *Registry) {
	if err := bot.SetCommands(reg.MenuCommands()); err != nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelError, "register.commands.set_failed",
			slog.String("err", err.Error()),
		)
	}
}
