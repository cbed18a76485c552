package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/m3rciful/schedbot/core/config"
	"github.com/m3rciful/schedbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares is the chain every persona bot starts from:
// recover outermost, the optional per-user throttle, then the receipt
// logger. Persona-specific middleware (the admin gate) is appended by
// the caller.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited func(tele.Context) error) []Middleware {
	chain := []Middleware{{Name: "recover", Use: middleware.RecoverMiddleware}}
	if mw, ok := rateLimit(cfg, onLimited); ok {
		chain = append(chain, mw)
	}
	return append(chain, Middleware{Name: "logger", Use: middleware.LoggerMiddleware})
}

func rateLimit(cfg *coreconfig.Config, onLimited func(tele.Context) error) (Middleware, bool) {
	if cfg == nil {
		return Middleware{}, false
	}
	interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond
	if interval <= 0 {
		return Middleware{}, false
	}

	exclude := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
	for _, kind := range cfg.RateLimit.ExcludeUpdates {
		exclude[strings.ToLower(kind)] = struct{}{}
	}

	return Middleware{
		Name: "rate_limit",
		Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
			Interval:  interval,
			Exclude:   exclude,
			OnLimited: onLimited,
		}),
	}, true
}
