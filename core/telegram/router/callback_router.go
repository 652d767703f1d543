package router

import (
	"log/slog"

	tg "github.com/welgevonden/marketbot/core/telegram"
	"github.com/welgevonden/marketbot/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises the unknown-callback behaviour.
type CallbackOptions struct {
	// NotFound overrides the registry fallback when set.
	NotFound tele.HandlerFunc
}

// CallbackRoute routes every callback query by its unique key. Registered
// handlers answer the callback themselves.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		key, _ := callbacks.ParseCallbackData(cb)
		name := "callback." + handlerName(key)
		keyAttr := slog.String("cb_key", key)

		if h, ok := reg.GetCallback(key); ok {
			return handled(c, name, func() error { return h(c) }, keyAttr)
		}

		fallback := opts.NotFound
		if fallback == nil {
			fallback = reg.CallbackNotFound()
		}
		return handled(c, name, func() error {
			if fallback == nil {
				return c.Respond()
			}
			return fallback(c)
		}, keyAttr, slog.String("reason", "not_found"))
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: handler}
}
