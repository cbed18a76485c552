package middleware

import (
	"sync"
	"time"

	"log/slog"

	"github.com/m3rciful/schedbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures the per-user throttle. Exclude lists
// update kinds ("callback", "message") that bypass it, so inline button
// navigation stays snappy while typed spam is slowed.
type RateLimitOptions struct {
	Interval  time.Duration
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
}

// throttle tracks the last accepted update per user.
type throttle struct {
	mu       sync.Mutex
	lastSeen map[int64]time.Time
	interval time.Duration
}

// allow records the update time and reports whether it came too soon
// after the previous one.
func (t *throttle) allow(userID int64) bool {
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	if last, ok := t.lastSeen[userID]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.lastSeen[userID] = now
	return true
}

// RateLimitMiddleware enforces a minimum interval between updates from
// the same user. Limited updates are dropped after the optional
// OnLimited notification.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	th := &throttle{lastSeen: map[int64]time.Time{}, interval: opts.Interval}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			if _, skip := opts.Exclude[updateKind(c.Update())]; skip {
				return next(c)
			}
			if th.allow(user.ID) {
				return next(c)
			}

			logger.TG.Warn("rate limit",
				slog.String("event", "tg.rate_limit"),
				slog.Int64("user_id", user.ID),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}

func updateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	default:
		return "other"
	}
}
