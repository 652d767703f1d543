package router

import (
	"strings"

	tg "github.com/welgevonden/marketbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// MessageSink receives every non-command message, already classified.
type MessageSink interface {
	Text(c tele.Context, text string) error
	Photo(c tele.Context, fileID string) error
	Unsupported(c tele.Context) error
}

// unsupportedEndpoints are message kinds the bot has no use for. They are
// still routed so the sink can answer them.
var unsupportedEndpoints = []string{
	tele.OnDocument,
	tele.OnSticker,
	tele.OnVoice,
	tele.OnVideo,
	tele.OnVideoNote,
	tele.OnAudio,
	tele.OnAnimation,
	tele.OnLocation,
	tele.OnVenue,
	tele.OnContact,
	tele.OnPoll,
	tele.OnDice,
}

// MessageRoutes routes text, photo and every unsupported message kind to
// sink. Text starting with "/" that names a registered command or alias goes
// to that command instead.
func MessageRoutes(sink MessageSink, reg *tg.Registry) []tg.Route {
	text := func(c tele.Context) error {
		body := c.Text()
		if reg != nil && strings.HasPrefix(body, "/") {
			if key, cmd, ok := reg.LookupCommand(commandName(body)); ok && cmd.Handler != nil {
				return handled(c, handlerName(key), func() error { return cmd.Handler(c) })
			}
		}
		if sink == nil {
			skipped(c, "text", "no_sink")
			return nil
		}
		return handled(c, "text", func() error { return sink.Text(c, body) })
	}

	photo := func(c tele.Context) error {
		msg := c.Message()
		if sink == nil || msg == nil || msg.Photo == nil {
			skipped(c, "photo", "no_photo")
			return nil
		}
		return handled(c, "photo", func() error { return sink.Photo(c, msg.Photo.FileID) })
	}

	other := func(c tele.Context) error {
		if sink == nil {
			skipped(c, "unsupported", "no_sink")
			return nil
		}
		return handled(c, "unsupported", func() error { return sink.Unsupported(c) })
	}

	routes := []tg.Route{
		{Endpoint: tele.OnText, Handler: text},
		{Endpoint: tele.OnPhoto, Handler: photo},
	}
	for _, ep := range unsupportedEndpoints {
		routes = append(routes, tg.Route{Endpoint: ep, Handler: other})
	}
	return routes
}

// commandName strips arguments and a @botname suffix from a command message.
func commandName(text string) string {
	name, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	name, _, _ = strings.Cut(name, "@")
	return name
}
