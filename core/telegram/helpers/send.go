package helpers

import (
	"errors"
	"sync/atomic"

	"log/slog"

	"github.com/m3rciful/schedbot/core/logger"
	"github.com/m3rciful/schedbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher installs the queue the send helpers hand their work to.
// With no dispatcher set the helpers send synchronously, which is what
// tests rely on.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

// SendText sends text to the current recipient, optionally with a keyboard.
func SendText(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	return deliver(c, "send.text", text, markup)
}

// SendPhoto sends a photo, optionally with a keyboard.
func SendPhoto(c tele.Context, photo *tele.Photo, markup ...*tele.ReplyMarkup) error {
	return deliver(c, "send.photo", photo, markup)
}

func deliver(c tele.Context, action string, what any, markup []*tele.ReplyMarkup) error {
	run := func() error {
		if len(markup) > 0 && markup[0] != nil {
			return c.Send(what, &tele.SendOptions{ReplyMarkup: markup[0]})
		}
		return c.Send(what)
	}

	disp := globalDispatcher.Load()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	err := disp.Enqueue(ctx, action, run)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sender.ErrQueueFull), errors.Is(err, sender.ErrQueueClosed):
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
		return run()
	default:
		return err
	}
}
