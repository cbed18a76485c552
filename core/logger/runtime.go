package logger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"log/slog"
)

type contextKey int

const (
	ctxMeta contextKey = iota
	ctxLogger
)

// meta is the per-update correlation state carried through context. A
// copy-on-write value type, so derived contexts never mutate parents.
type meta struct {
	rid      string
	updateID int
	userID   int64
	chatID   int64
	handler  string
}

func metaFrom(ctx context.Context) meta {
	if ctx == nil {
		return meta{}
	}
	m, _ := ctx.Value(ctxMeta).(meta)
	return m
}

func withMeta(ctx context.Context, m meta) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxMeta, m)
}

// WithLogger carries a component logger through context so lower layers
// log with the caller's attributes.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxLogger, log)
}

// FromContext returns the logger carried in ctx, falling back to the
// process default.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxLogger).(*slog.Logger); ok {
			return l
		}
	}
	return L
}

// WithRID records the correlation id for the current update.
func WithRID(ctx context.Context, rid string) context.Context {
	m := metaFrom(ctx)
	m.rid = rid
	return withMeta(ctx, m)
}

// RIDFrom returns the correlation id, empty when none was recorded.
func RIDFrom(ctx context.Context) string {
	return metaFrom(ctx).rid
}

// WithUpdateMeta records the update, user and chat identifiers.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	m := metaFrom(ctx)
	m.updateID = updateID
	m.userID = userID
	m.chatID = chatID
	return withMeta(ctx, m)
}

// WithHandler records which handler owns the rest of this update.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	m := metaFrom(ctx)
	m.handler = handler
	return withMeta(ctx, m)
}

// HandlerFrom returns the owning handler name, if recorded.
func HandlerFrom(ctx context.Context) string {
	return metaFrom(ctx).handler
}

// UserIDFrom returns the Telegram user id recorded for this update.
func UserIDFrom(ctx context.Context) int64 {
	return metaFrom(ctx).userID
}

// ChatIDFrom returns the chat id recorded for this update.
func ChatIDFrom(ctx context.Context) int64 {
	return metaFrom(ctx).chatID
}

// UpdateIDFrom returns the Telegram update id recorded for this update.
func UpdateIDFrom(ctx context.Context) int {
	return metaFrom(ctx).updateID
}

// Sanitize strips control and format runes from s, keeping tab and
// newline, so user input cannot mangle log lines.
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r), r == 0x7F:
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SanitizeLimit applies Sanitize and caps the result at max runes.
func SanitizeLimit(s string, max int) string {
	if max <= 0 {
		return ""
	}
	cleaned := []rune(Sanitize(s))
	if len(cleaned) > max {
		cleaned = cleaned[:max]
	}
	return string(cleaned)
}

// BuildRID composes the correlation id as updateID:chatID:userID.
func BuildRID(updateID int, chatID, userID int64) string {
	return fmt.Sprintf("%d:%d:%d", updateID, chatID, userID)
}

// CompactRID shortens a colon-separated RID into dot-joined base36
// segments. Anything that does not parse as three integers is returned
// unchanged.
func CompactRID(rid string) string {
	rid = strings.TrimSpace(rid)
	parts := strings.Split(rid, ":")
	if rid == "" || len(parts) != 3 {
		return rid
	}
	compact := make([]string, 0, 3)
	for _, part := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return rid
		}
		compact = append(compact, strconv.FormatInt(n, 36))
	}
	return strings.Join(compact, ".")
}
