package router

import (
	"context"
	"log/slog"
	"strings"

	"github.com/welgevonden/marketbot/core/logger"
	tg "github.com/welgevonden/marketbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// CommandRoutes binds every registered command, and each of its aliases, as
// a telebot endpoint.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}

	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds))
	for endpoint, cmd := range cmds {
		name, run := handlerName(endpoint), cmd.Handler
		h := func(c tele.Context) error {
			return handled(c, name, func() error { return run(c) })
		}
		routes = append(routes, tg.Route{Endpoint: endpoint, Handler: h})
		for _, alias := range cmd.Aliases {
			alias = "/" + strings.TrimLeft(alias, "/")
			if key, _, ok := reg.LookupCommand(alias); ok && key == endpoint {
				routes = append(routes, tg.Route{Endpoint: alias, Handler: h})
			}
		}
	}

	logger.LogEvent(context.Background(), logger.TWire, slog.LevelInfo, "routes.commands",
		slog.Int("commands", len(cmds)),
		slog.Int("endpoints", len(routes)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}
