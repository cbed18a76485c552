package middleware

import (
	"runtime/debug"

	"log/slog"

	"github.com/m3rciful/schedbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// RecoverMiddleware turns handler panics into an error log line. One
// misbehaving chat must never take the whole bot down.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			attrs := []any{
				slog.String("event", "tg.panic"),
				slog.Any("err", r),
				slog.String("stack", string(debug.Stack())),
			}
			if chat := c.Chat(); chat != nil {
				attrs = append(attrs, slog.Int64("chat_id", chat.ID))
			}
			logger.TG.Error("panic recovered", attrs...)
		}()
		return next(c)
	}
}
