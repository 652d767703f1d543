package handlers

import (
	"context"
	"strconv"

	"github.com/welgevonden/marketbot/app/dialogue"
	"github.com/welgevonden/marketbot/core/metrics"
	"github.com/welgevonden/marketbot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// botAPI is the subset of *tele.Bot the transport calls.
type botAPI interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	Respond(c *tele.Callback, resp ...*tele.CallbackResponse) error
}

// TeleTransport sends prompts through telebot.
type TeleTransport struct {
	bot     botAPI
	metrics *metrics.Collectors
}

// NewTeleTransport wraps bot. col may be nil.
func NewTeleTransport(bot botAPI, col *metrics.Collectors) *TeleTransport {
	return &TeleTransport{bot: bot, metrics: col}
}

// Send implements Transport. Text is sent without a parse mode.
func (t *TeleTransport) Send(ctx context.Context, chatID int64, p dialogue.Prompt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	markup, kind := replyMarkup(p)
	_, err := t.bot.Send(tele.ChatID(chatID), p.Text, &tele.SendOptions{ReplyMarkup: markup})
	if err != nil {
		t.fail("send")
		return err
	}
	if t.metrics != nil {
		t.metrics.MessagesSent.WithLabelValues(kind).Inc()
	}
	return nil
}

// Edit implements Transport.
func (t *TeleTransport) Edit(ctx context.Context, ref MessageRef, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tele.StoredMessage{MessageID: ref.InlineID}
	if ref.InlineID == "" {
		msg = tele.StoredMessage{MessageID: strconv.Itoa(ref.MessageID), ChatID: ref.ChatID}
	}
	if _, err := t.bot.Edit(msg, text); err != nil {
		t.fail("edit")
		return err
	}
	return nil
}

// Answer implements Transport.
func (t *TeleTransport) Answer(ctx context.Context, callbackID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.bot.Respond(&tele.Callback{ID: callbackID}); err != nil {
		t.fail("answer")
		return err
	}
	return nil
}

// Poll implements Transport.
func (t *TeleTransport) Poll(ctx context.Context, chatID int64, question string, options []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	poll := &tele.Poll{Type: tele.PollRegular, Question: question, Anonymous: false}
	for _, o := range options {
		poll.Options = append(poll.Options, tele.PollOption{Text: o})
	}
	if _, err := t.bot.Send(tele.ChatID(chatID), poll); err != nil {
		t.fail("poll")
		return err
	}
	if t.metrics != nil {
		t.metrics.MessagesSent.WithLabelValues("poll").Inc()
	}
	return nil
}

func (t *TeleTransport) fail(op string) {
	if t.metrics != nil {
		t.metrics.TransportFailures.WithLabelValues(op).Inc()
	}
}

// replyMarkup converts a prompt's keyboard fields. The second result labels
// the markup for metrics.
func replyMarkup(p dialogue.Prompt) (*tele.ReplyMarkup, string) {
	switch {
	case len(p.Inline) > 0:
		buttons := make([]keyboard.Button, 0, len(p.Inline))
		for _, b := range p.Inline {
			buttons = append(buttons, keyboard.Button{Text: b.Text, Unique: b.Action, Data: b.Data})
		}
		return keyboard.Inline(buttons, 3), "inline"
	case len(p.Keyboard) > 0:
		return keyboard.Reply(p.Keyboard), "reply"
	case p.RemoveKeyboard:
		return keyboard.Remove(), "remove"
	default:
		return nil, "none"
	}
}
