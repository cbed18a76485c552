// Package callbacks decodes telebot's inline button payload encoding,
// "\f<unique>|<payload>", into its key and payload halves.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// ParseCallbackData splits raw callback data into unique key and payload.
// Either half may come back empty.
func ParseCallbackData(cb *tele.Callback) (unique, payload string) {
	if cb == nil {
		return "", ""
	}
	raw := strings.TrimPrefix(cb.Data, "\\f")
	if key, rest, found := strings.Cut(raw, "|"); found {
		return strings.TrimSpace(key), rest
	}
	return strings.TrimSpace(raw), ""
}

// CallbackKey returns the button key for the current update. Unique is
// set when telebot routed the callback itself; the generic OnCallback
// endpoint leaves it empty and the key sits in Data.
func CallbackKey(c tele.Context) string {
	cb := c.Callback()
	switch {
	case cb == nil:
		return ""
	case cb.Unique != "":
		return cb.Unique
	default:
		key, _ := ParseCallbackData(cb)
		return key
	}
}

// CallbackPayload returns the payload half of the current callback.
func CallbackPayload(c tele.Context) string {
	_, payload := ParseCallbackData(c.Callback())
	return payload
}
