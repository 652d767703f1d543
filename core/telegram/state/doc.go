// Package state provides keyed session storage for Telegram conversations.
// It is domain-agnostic: callers choose the session value type and, for the
// persistent drivers, a Codec that turns it into bytes.
package state
