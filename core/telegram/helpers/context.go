package helpers

import (
	"context"

	"github.com/m3rciful/schedbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// ctxKey is where the enriched context lives inside tele.Context storage.
const ctxKey = "logger_ctx"

// StoreContext caches an enriched context on the telebot context so later
// helpers in the same update reuse it instead of rebuilding.
func StoreContext(c tele.Context, ctx context.Context) {
	if c != nil && ctx != nil {
		c.Set(ctxKey, ctx)
	}
}

// ContextFrom returns the cached context for this update, if middleware or
// an earlier helper stored one.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(ctxKey).(context.Context)
	return ctx, ok
}

// BuildContext derives a context.Context for the current update, carrying
// the request id plus update, user and chat ids so service logs line up
// with the wire log. The result is cached on the telebot context.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := ContextFrom(c); ok {
		return ctx
	}

	upd := c.Update()
	userID := updateUserID(c)
	chatID := updateChatID(c)

	rid, _ := c.Get("rid").(string)
	if rid == "" {
		rid = logger.BuildRID(upd.ID, chatID, userID)
	}

	ctx := logger.WithRID(context.Background(), rid)
	ctx = logger.WithUpdateMeta(ctx, upd.ID, userID, chatID)
	ctx = logger.WithLogger(ctx, logger.Component("tg"))
	StoreContext(c, ctx)
	return ctx
}

// WithHandler tags the update's context with the handler name and caches
// the tagged context for downstream calls.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	StoreContext(c, ctx)
	return ctx
}

func updateUserID(c tele.Context) int64 {
	if u := c.Sender(); u != nil {
		return u.ID
	}
	return 0
}

func updateChatID(c tele.Context) int64 {
	if ch := c.Chat(); ch != nil {
		return ch.ID
	}
	return 0
}
