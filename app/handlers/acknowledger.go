package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/welgevonden/marketbot/app/dialogue"
	"github.com/welgevonden/marketbot/core/logger"
)

// inlineEditText replaces inline-mode messages, which carry no text to quote.
const inlineEditText = "error"

// actionVerbs maps a button action to the prefix written into its message.
var actionVerbs = map[string]string{
	dialogue.RemoveAction: "Removed",
}

// CallbackEvent is an inline button press.
type CallbackEvent struct {
	ID      string
	Action  string
	Payload string
	Message MessageRef
	// Text is the current text of the message the button belongs to.
	Text string
}

// Acknowledger answers button presses. It never reads or writes sessions.
type Acknowledger struct {
	transport Transport
}

// NewAcknowledger wires an Acknowledger.
func NewAcknowledger(t Transport) *Acknowledger {
	return &Acknowledger{transport: t}
}

// Handle answers the callback first, then rewrites the originating message
// when it can be edited.
func (a *Acknowledger) Handle(ctx context.Context, cb CallbackEvent) error {
	if err := a.transport.Answer(ctx, cb.ID); err != nil {
		return fmt.Errorf("handlers: answer callback: %w", err)
	}

	var (
		ref  MessageRef
		text string
	)
	switch {
	case cb.Message.InlineID != "":
		ref, text = MessageRef{InlineID: cb.Message.InlineID}, inlineEditText
	case cb.Message.MessageID != 0 && cb.Text != "":
		verb, ok := actionVerbs[cb.Action]
		if !ok {
			return nil
		}
		ref, text = cb.Message, verb+": "+cb.Text
	default:
		return nil
	}

	if err := a.transport.Edit(ctx, ref, text); err != nil {
		return fmt.Errorf("handlers: edit message: %w", err)
	}
	logger.LogEvent(ctx, logger.Dialogue, slog.LevelInfo, "callback.handled",
		slog.String("status", "ok"),
		slog.String("cb_key", cb.Action),
		slog.String("payload", logger.SanitizeLimit(cb.Payload, 64)),
	)
	return nil
}
