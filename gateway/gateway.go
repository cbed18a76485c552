// Package gateway bridges Telegram updates and the dialog machine: it
// decodes telebot contexts into dialog events, acknowledges callbacks
// before any processing, and provides the Telegram-backed sender and
// file resolver the rules depend on.
package gateway

import (
	"context"
	"strings"

	tele "gopkg.in/telebot.v4"

	coretg "github.com/m3rciful/schedbot/core/telegram"
	"github.com/m3rciful/schedbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/schedbot/core/telegram/helpers"
	"github.com/m3rciful/schedbot/dialog"
)

// Decode turns one telebot context into a dialog event. The second
// return is false for payload shapes the machine does not consume;
// those are acknowledged upstream and dropped here.
func Decode(c tele.Context) (dialog.Event, bool) {
	chat := c.Chat()
	if chat == nil {
		return dialog.Event{}, false
	}

	if cb := c.Callback(); cb != nil {
		key, payload := callbacks.CallbackKey(c), callbacks.CallbackPayload(c)
		if key == "" {
			return dialog.Event{}, false
		}
		return dialog.Event{
			Kind:            dialog.EventCallback,
			ChatID:          chat.ID,
			CallbackKey:     key,
			CallbackPayload: payload,
		}, true
	}

	msg := c.Message()
	if msg == nil {
		return dialog.Event{}, false
	}
	if msg.Photo != nil {
		return dialog.Event{
			Kind:    dialog.EventPhoto,
			ChatID:  chat.ID,
			PhotoID: msg.Photo.FileID,
		}, true
	}
	if text := strings.TrimSpace(msg.Text); text != "" {
		return dialog.Event{
			Kind:   dialog.EventText,
			ChatID: chat.ID,
			Text:   text,
		}, true
	}
	return dialog.Event{}, false
}

// DispatchHandler returns a telebot handler that decodes the update and
// hands it to the machine. Processing continues on the chat's mailbox;
// the handler returns immediately so the poller is never blocked.
func DispatchHandler(m *dialog.Machine) tele.HandlerFunc {
	return func(c tele.Context) error {
		ev, ok := Decode(c)
		if !ok {
			return nil
		}
		m.Dispatch(tghelpers.BuildContext(c), ev)
		return nil
	}
}

// Routes wires the generic update endpoints. Callback keys personas
// support are looked up in the registry; every callback is answered
// first so the client spinner stops regardless of the outcome.
func Routes(m *dialog.Machine, reg *coretg.Registry) []coretg.Route {
	dispatch := DispatchHandler(m)
	return []coretg.Route{
		{Endpoint: tele.OnText, Handler: dispatch},
		{Endpoint: tele.OnPhoto, Handler: dispatch},
		{
			Endpoint: tele.OnCallback,
			Handler: func(c tele.Context) error {
				_ = c.Respond()
				key := callbacks.CallbackKey(c)
				if h, ok := reg.GetCallback(key); ok {
					return h(c)
				}
				return reg.CallbackNotFound()(c)
			},
		},
	}
}

// CommandRoutes turns registry commands into bot routes. Admin-only
// commands are silently ignored for other senders.
func CommandRoutes(reg *coretg.Registry, adminID int64) []coretg.Route {
	var routes []coretg.Route
	for name, cmd := range reg.Commands() {
		handler := cmd.Handler
		if cmd.AdminOnly {
			inner := handler
			handler = func(c tele.Context) error {
				if sender := c.Sender(); sender == nil || sender.ID != adminID {
					return nil
				}
				return inner(c)
			}
		}
		routes = append(routes, coretg.Route{Endpoint: name, Handler: handler})
	}
	return routes
}

// RegisterCallbackKeys maps each key to the machine dispatcher, so a
// pressed button with a known key re-enters the chat's mailbox and an
// unknown key falls through to the registry's not-found response.
func RegisterCallbackKeys(reg *coretg.Registry, m *dialog.Machine, keys ...string) error {
	dispatch := DispatchHandler(m)
	for _, key := range keys {
		if err := reg.RegisterCallback(key, dispatch); err != nil {
			return err
		}
	}
	return nil
}

// FileResolver resolves Telegram file identifiers to download URLs.
type FileResolver struct {
	bot *tele.Bot
}

func NewFileResolver(bot *tele.Bot) FileResolver {
	return FileResolver{bot: bot}
}

// ResolveURL asks the Bot API for the file's current path and builds
// the download URL the same way telebot's own file fetch does.
func (r FileResolver) ResolveURL(ctx context.Context, fileID string) (string, error) {
	f, err := r.bot.FileByID(fileID)
	if err != nil {
		return "", err
	}
	return r.bot.URL + "/file/bot" + r.bot.Token + "/" + f.FilePath, nil
}
