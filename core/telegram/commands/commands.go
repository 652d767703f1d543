// Package commands declares slash commands for the registry.
package commands

import tele "gopkg.in/telebot.v4"

// Command is one slash command. Aliases are extra names, with or without
// the leading slash, routed to the same handler and never published.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	Aliases     []string
	// Hidden commands are routed but left out of the Telegram menu.
	Hidden bool
}
