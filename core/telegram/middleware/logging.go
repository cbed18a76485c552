package middleware

import (
	"sync"
	"time"

	"log/slog"

	"github.com/m3rciful/schedbot/core/logger"
	tghelpers "github.com/m3rciful/schedbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// dedupe remembers recently seen update IDs so an update passing through
// more than one handler branch is still logged once.
type dedupe struct {
	mu   sync.Mutex
	seen map[int]time.Time
	keep time.Duration
}

func (d *dedupe) firstSighting(updateID int) bool {
	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, ts := range d.seen {
		if now.Sub(ts) > d.keep {
			delete(d.seen, id)
		}
	}
	if _, ok := d.seen[updateID]; ok {
		return false
	}
	d.seen[updateID] = now
	return true
}

var receipts = &dedupe{seen: map[int]time.Time{}, keep: 10 * time.Second}

// LoggerMiddleware seeds the request context (rid plus update, chat and
// user ids) for downstream handlers and logs one receipt line per update.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()

		var chatID, userID int64
		if chat := c.Chat(); chat != nil {
			chatID = chat.ID
		}
		if user := c.Sender(); user != nil {
			userID = user.ID
		}

		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set("rid", rid)

		ctx := logger.WithRID(logger.Background(), rid)
		ctx = logger.WithUpdateMeta(ctx, upd.ID, userID, chatID)
		ctx = logger.WithLogger(ctx, logger.Component("tg"))
		tghelpers.StoreContext(c, ctx)

		if receipts.firstSighting(upd.ID) {
			logger.Debug(ctx, "tg", "update.received", receiptAttrs(c, upd)...)
		}

		return next(c)
	}
}

func receiptAttrs(c tele.Context, upd tele.Update) []slog.Attr {
	attrs := []slog.Attr{slog.String("status", "ok")}
	switch {
	case upd.Callback != nil:
		attrs = append(attrs, slog.String("kind", "callback"),
			slog.String("payload", logger.SanitizeLimit(upd.Callback.Data, 256)))
	case upd.Message != nil && upd.Message.Photo != nil:
		attrs = append(attrs, slog.String("kind", "photo"))
	case upd.Message != nil:
		attrs = append(attrs, slog.String("kind", "text"),
			slog.String("payload", logger.SanitizeLimit(c.Text(), 256)))
	default:
		attrs = append(attrs, slog.String("kind", "other"))
	}
	return attrs
}
