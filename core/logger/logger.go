package logger

import (
	"context"
	"os"
	"strings"
	"sync"

	"log/slog"

	"github.com/m3rciful/schedbot/core/buildinfo"
	coreconfig "github.com/m3rciful/schedbot/core/config"
)

var (
	initOnce sync.Once
	levelVar slog.LevelVar

	// L is the base logger used when no component logger fits.
	L *slog.Logger

	// DB logs database related events.
	DB *slog.Logger
	// TG logs Telegram transport events.
	TG *slog.Logger
	// MIG logs database migration events.
	MIG *slog.Logger
	// TWire logs Telegram wiring steps.
	TWire *slog.Logger
	// API logs HTTP API events.
	API *slog.Logger
	// SVCSchedule logs schedule store and ingest activity.
	SVCSchedule *slog.Logger
	// SVCProfiles logs profile store activity.
	SVCProfiles *slog.Logger
)

func init() {
	// Safe defaults until InitLogger runs (tests, early startup).
	wireComponents(slog.Default())
}

// InitLogger sets up the process logger from config. Second and later
// calls are no-ops.
func InitLogger(cfg *coreconfig.Config) error {
	initOnce.Do(func() {
		levelVar.Set(selectLevel(cfg))

		opts := &slog.HandlerOptions{Level: &levelVar}
		var handler slog.Handler
		if selectFormat(cfg) == "json" {
			handler = slog.NewJSONHandler(os.Stdout, opts)
		} else {
			handler = slog.NewTextHandler(os.Stdout, opts)
		}

		logger := slog.New(handler)
		slog.SetDefault(logger)
		wireComponents(logger)

		L.Info("logger ready",
			slog.String("event", "startup"),
			slog.String("level", levelVar.Level().String()),
			slog.String("version", buildinfo.Version),
			slog.String("commit", buildinfo.Commit),
		)
	})
	return nil
}

// Shutdown flushes logging resources; kept for symmetry with bootstrap.
func Shutdown() error { return nil }

// Background returns a fresh context for log helpers outside a request scope.
func Background() context.Context { return context.Background() }

// Component returns a logger tagged with the given component name.
func Component(name string) *slog.Logger {
	base := L
	if base == nil {
		base = slog.Default()
	}
	return base.With("component", name)
}

func wireComponents(base *slog.Logger) {
	L = base.With("component", "app")
	DB = base.With("component", "db")
	TG = base.With("component", "tg")
	MIG = base.With("component", "db.migrate")
	TWire = base.With("component", "tg.wire")
	API = base.With("component", "api")
	SVCSchedule = base.With("component", "service.schedule")
	SVCProfiles = base.With("component", "service.profiles")
}

func selectLevel(cfg *coreconfig.Config) slog.Level {
	if cfg == nil {
		return slog.LevelInfo
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func selectFormat(cfg *coreconfig.Config) string {
	if cfg == nil {
		return "kv"
	}
	if strings.EqualFold(strings.TrimSpace(cfg.Logging.Format), "json") {
		return "json"
	}
	return "kv"
}

// LogEvent emits a structured event enriched with context metadata.
func LogEvent(ctx context.Context, log *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if log == nil {
		log = L
	}
	attrs = append(attrs, contextAttrs(ctx)...)
	log.LogAttrs(ctx, level, event, attrs...)
}

// Debug logs a debug event for the named component with context metadata.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelDebug, event, attrs...)
}

// Info logs an info event for the named component with context metadata.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelInfo, event, attrs...)
}

// Warn logs a warning event for the named component with context metadata.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelWarn, event, attrs...)
}

// Error logs an error event for the named component with context metadata.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelError, event, attrs...)
}

func contextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var attrs []slog.Attr
	if rid := RIDFrom(ctx); rid != "" {
		attrs = append(attrs, slog.String("rid", CompactRID(rid)))
	}
	if id := UpdateIDFrom(ctx); id != 0 {
		attrs = append(attrs, slog.Int("update_id", id))
	}
	if id := ChatIDFrom(ctx); id != 0 {
		attrs = append(attrs, slog.Int64("chat_id", id))
	}
	if id := UserIDFrom(ctx); id != 0 {
		attrs = append(attrs, slog.Int64("user_id", id))
	}
	return attrs
}
