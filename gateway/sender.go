package gateway

import (
	"bytes"
	"context"
	"errors"
	"io"

	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/schedbot/core/logger"
	"github.com/m3rciful/schedbot/core/telegram/keyboard"
	tgsender "github.com/m3rciful/schedbot/core/telegram/sender"
	"github.com/m3rciful/schedbot/dialog"
)

// TeleSender is the dialog.Sender backed by a live bot. Sends go through
// the shared dispatcher so flood waits and transient network errors are
// retried off the mailbox goroutine.
type TeleSender struct {
	bot  *tele.Bot
	disp *tgsender.Dispatcher
}

// NewTeleSender builds a sender. A nil dispatcher sends synchronously.
func NewTeleSender(bot *tele.Bot, disp *tgsender.Dispatcher) *TeleSender {
	return &TeleSender{bot: bot, disp: disp}
}

func (s *TeleSender) SendText(ctx context.Context, chatID int64, text string, kb *dialog.Keyboard) error {
	markup := buildMarkup(kb)
	return s.send(ctx, "send.text", func() error {
		var err error
		if markup != nil {
			_, err = s.bot.Send(tele.ChatID(chatID), text, &tele.SendOptions{ReplyMarkup: markup})
		} else {
			_, err = s.bot.Send(tele.ChatID(chatID), text)
		}
		return err
	})
}

// SendPhoto buffers the image up front: the dispatcher may re-invoke
// the closure on a transient failure, and a plain reader would be at
// EOF by then.
func (s *TeleSender) SendPhoto(ctx context.Context, chatID int64, image io.Reader, caption string) error {
	data, err := io.ReadAll(image)
	if err != nil {
		return err
	}
	return s.send(ctx, "send.photo", func() error {
		photo := &tele.Photo{File: tele.FromReader(bytes.NewReader(data)), Caption: caption}
		_, err := s.bot.Send(tele.ChatID(chatID), photo)
		return err
	})
}

func (s *TeleSender) send(ctx context.Context, action string, run func() error) error {
	if s.disp == nil {
		return run()
	}
	if err := s.disp.Enqueue(ctx, action, run); err != nil {
		if errors.Is(err, tgsender.ErrQueueFull) || errors.Is(err, tgsender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", action),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

// buildMarkup maps the dialog keyboard model onto telebot reply markup.
func buildMarkup(kb *dialog.Keyboard) *tele.ReplyMarkup {
	if kb == nil {
		return nil
	}
	if kb.Remove {
		return keyboard.RemoveKeyboard()
	}
	if kb.Inline {
		rows := make([][]keyboard.InlineBtn, len(kb.Rows))
		for i, row := range kb.Rows {
			btns := make([]keyboard.InlineBtn, len(row))
			for j, b := range row {
				btns[j] = keyboard.InlineBtn{Text: b.Text, Unique: b.Key, Data: b.Payload}
			}
			rows[i] = btns
		}
		return keyboard.InlineButtonsRows(rows...)
	}
	rows := make([][]string, len(kb.Rows))
	for i, row := range kb.Rows {
		labels := make([]string, len(row))
		for j, b := range row {
			labels[j] = b.Text
		}
		rows[i] = labels
	}
	return keyboard.ReplyButtons(rows...)
}
