package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/welgevonden/marketbot/app/dialogue"
	"github.com/welgevonden/marketbot/core/logger"
	"github.com/welgevonden/marketbot/core/metrics"
	tg "github.com/welgevonden/marketbot/core/telegram"
	"github.com/welgevonden/marketbot/core/telegram/callbacks"
	"github.com/welgevonden/marketbot/core/telegram/commands"
	tghelpers "github.com/welgevonden/marketbot/core/telegram/helpers"
	"github.com/welgevonden/marketbot/core/telegram/router"

	tele "gopkg.in/telebot.v4"
)

// Enqueuer runs a job after every earlier job with the same key.
type Enqueuer interface {
	Enqueue(ctx context.Context, key int64, name string, run func(ctx context.Context)) error
}

// Bot adapts telebot updates to the Engine and the Acknowledger. Handlers
// copy what they need out of tele.Context and return at once; the work runs
// on the conversation's lane.
type Bot struct {
	engine  *Engine
	ack     *Acknowledger
	kicker  *Kicker
	lanes   Enqueuer
	metrics *metrics.Collectors
}

// NewBot wires a Bot. col may be nil.
func NewBot(engine *Engine, ack *Acknowledger, kicker *Kicker, lanes Enqueuer, col *metrics.Collectors) *Bot {
	return &Bot{engine: engine, ack: ack, kicker: kicker, lanes: lanes, metrics: col}
}

// Register adds the bot's commands and callbacks to reg.
func (b *Bot) Register(reg *tg.Registry) error {
	toMenu := func(c tele.Context) error {
		return b.dispatch(c, dialogue.Text(dialogue.ButtonMainMenu))
	}
	reg.RegisterCommand("/start", commands.Command{Handler: toMenu, Description: "Open the main menu"})
	reg.RegisterCommand("/menu", commands.Command{Handler: toMenu, Description: "Back to the main menu"})
	// Group only, so it stays out of the private chat menu.
	reg.RegisterCommand("/kick", commands.Command{Handler: b.Kick, Description: "Vote on removing a member", Hidden: true})
	return reg.RegisterCallback(dialogue.RemoveAction, b.Callback)
}

// Routes registers the bot on rt.Registry and returns its telebot routes.
func (b *Bot) Routes(rt tg.Runtime) ([]tg.Route, error) {
	if err := b.Register(rt.Registry); err != nil {
		return nil, err
	}
	routes := router.CommandRoutes(rt.Registry)
	routes = append(routes, router.MessageRoutes(b, rt.Registry)...)
	routes = append(routes, router.CallbackRoute(rt.Registry, router.CallbackOptions{}))
	return routes, nil
}

// Text implements router.MessageSink.
func (b *Bot) Text(c tele.Context, text string) error {
	return b.dispatch(c, dialogue.Text(text))
}

// Photo implements router.MessageSink.
func (b *Bot) Photo(c tele.Context, fileID string) error {
	return b.dispatch(c, dialogue.Photo(fileID))
}

// Unsupported implements router.MessageSink.
func (b *Bot) Unsupported(c tele.Context) error {
	return b.dispatch(c, dialogue.Unsupported())
}

// Kick handles "/kick @user" in a group by opening a Yes/No poll. Other
// chats and malformed targets are logged and ignored.
func (b *Bot) Kick(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	chat := c.Chat()
	if chat == nil || (chat.Type != tele.ChatGroup && chat.Type != tele.ChatSuperGroup) {
		return skipKick(ctx, "not_group")
	}
	var payload string
	if msg := c.Message(); msg != nil {
		payload = msg.Payload
	}
	target, err := ParseKickTarget(payload)
	if err != nil {
		return skipKick(ctx, "bad_target")
	}
	return b.lanes.Enqueue(ctx, chat.ID, "kick", func(ctx context.Context) {
		b.run(ctx, "kick", func(ctx context.Context) error {
			return b.kicker.Handle(ctx, chat.ID, target)
		})
	})
}

func skipKick(ctx context.Context, reason string) error {
	logger.LogEvent(ctx, logger.Dialogue, slog.LevelInfo, "kick.skip",
		slog.String("status", "skipped"),
		slog.String("reason", reason),
	)
	return nil
}

// Callback handles inline button presses.
func (b *Bot) Callback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	action, payload := callbacks.ParseCallbackData(cb)
	ev := CallbackEvent{ID: cb.ID, Action: action, Payload: payload}
	key := int64(0)
	if cb.Sender != nil {
		key = cb.Sender.ID
	}
	switch {
	case cb.Message != nil && cb.Message.Chat != nil:
		ev.Message = MessageRef{ChatID: cb.Message.Chat.ID, MessageID: cb.Message.ID}
		ev.Text = cb.Message.Text
		key = cb.Message.Chat.ID
	case cb.MessageID != "":
		ev.Message = MessageRef{InlineID: cb.MessageID}
	}

	ctx := tghelpers.BuildContext(c)
	return b.lanes.Enqueue(ctx, key, "callback", func(ctx context.Context) {
		b.run(ctx, "callback", func(ctx context.Context) error {
			return b.ack.Handle(ctx, ev)
		})
	})
}

func (b *Bot) dispatch(c tele.Context, ev dialogue.Event) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	in := Inbound{ChatID: chat.ID, Event: ev}
	if u := c.Sender(); u != nil {
		in.UserID = u.ID
	}

	ctx := tghelpers.BuildContext(c)
	return b.lanes.Enqueue(ctx, chat.ID, "dialogue", func(ctx context.Context) {
		b.run(ctx, "dialogue", func(ctx context.Context) error {
			return b.engine.Handle(ctx, in)
		})
	})
}

func (b *Bot) run(ctx context.Context, name string, fn func(context.Context) error) {
	start := time.Now()
	err := fn(ctx)
	if b.metrics != nil {
		b.metrics.HandlerDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		logger.LogEvent(ctx, logger.Component("tg"), slog.LevelError, "handler.failed",
			slog.String("status", "fail"),
			slog.String("handler", name),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
}
