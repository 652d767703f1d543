// Package callbacks decodes inline button callback data.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// ParseCallbackData returns the button's unique key and its payload.
// Telegram delivers markup buttons as "\f<unique>|<payload>"; telebot
// usually splits that into Unique and Data before handlers run. Data
// without the form feed is a bare payload with no key.
func ParseCallbackData(cb *tele.Callback) (key, payload string) {
	switch {
	case cb == nil:
		return "", ""
	case cb.Unique != "":
		return cb.Unique, cb.Data
	}
	raw, marked := strings.CutPrefix(cb.Data, "\f")
	if !marked {
		return "", cb.Data
	}
	key, payload, _ = strings.Cut(raw, "|")
	return strings.TrimSpace(key), payload
}

// CallbackKey is the unique key of c's callback.
func CallbackKey(c tele.Context) string {
	key, _ := ParseCallbackData(c.Callback())
	return key
}

// CallbackPayload is the payload of c's callback.
func CallbackPayload(c tele.Context) string {
	_, payload := ParseCallbackData(c.Callback())
	return payload
}
