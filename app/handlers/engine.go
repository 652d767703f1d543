// Package handlers runs the item-listing dialogue against the chat
// transport: it loads a conversation's state, applies the transition,
// performs the resulting action and stores the new state.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/welgevonden/marketbot/app/dialogue"
	"github.com/welgevonden/marketbot/app/listing"
	"github.com/welgevonden/marketbot/core/logger"
	"github.com/welgevonden/marketbot/core/metrics"
	"github.com/welgevonden/marketbot/core/telegram/state"
)

// ErrNoSender is returned when a listing must be published for a message
// that carries no user.
var ErrNoSender = errors.New("handlers: message has no sender")

// MessageRef addresses a sent message. InlineID is set for messages sent
// in inline mode, which have no chat.
type MessageRef struct {
	ChatID    int64
	MessageID int
	InlineID  string
}

// Transport is the outbound side of the chat.
type Transport interface {
	Send(ctx context.Context, chatID int64, p dialogue.Prompt) error
	Edit(ctx context.Context, ref MessageRef, text string) error
	Answer(ctx context.Context, callbackID string) error
	// Poll sends a regular, non-anonymous poll.
	Poll(ctx context.Context, chatID int64, question string, options []string) error
}

// Submitter publishes a finished listing.
type Submitter interface {
	Submit(ctx context.Context, l listing.Listing) error
}

// Inbound is one message of a conversation.
type Inbound struct {
	ChatID int64
	UserID int64
	Event  dialogue.Event
}

// Engine is the dialogue dispatcher. Callers must not run two Handle calls
// for the same chat at once; the sequencer guarantees that in production.
type Engine struct {
	machine   *dialogue.Machine
	store     state.Store[dialogue.State]
	transport Transport
	submitter Submitter
	metrics   *metrics.Collectors
}

// EngineDeps lists the collaborators of an Engine. Metrics is optional.
type EngineDeps struct {
	Machine   *dialogue.Machine
	Store     state.Store[dialogue.State]
	Transport Transport
	Submitter Submitter
	Metrics   *metrics.Collectors
}

// NewEngine wires an Engine.
func NewEngine(d EngineDeps) *Engine {
	m := d.Machine
	if m == nil {
		m = dialogue.New(dialogue.Options{})
	}
	return &Engine{
		machine:   m,
		store:     d.Store,
		transport: d.Transport,
		submitter: d.Submitter,
		metrics:   d.Metrics,
	}
}

// Handle processes one inbound event. On any error the stored state is left
// as it was before the event.
func (e *Engine) Handle(ctx context.Context, in Inbound) error {
	start := time.Now()

	cur, ok, err := e.store.Get(ctx, in.ChatID)
	if err != nil {
		e.logResult(ctx, in, nil, nil, start, "load", err)
		return fmt.Errorf("handlers: load session %d: %w", in.ChatID, err)
	}
	if !ok {
		cur = dialogue.Start{}
	}

	next, act := e.machine.Transition(cur, in.Event)

	if act.Submit != nil {
		if err := e.submit(ctx, in, act.Submit); err != nil {
			if sendErr := e.send(ctx, in.ChatID, e.machine.SubmitFailed().Prompts); sendErr != nil {
				logger.LogEvent(ctx, logger.Dialogue, slog.LevelWarn, "dialogue.notice",
					slog.String("status", "fail"),
					slog.String("err", sendErr.Error()),
				)
			}
			e.logResult(ctx, in, cur, cur, start, "submit", err)
			return err
		}
	}

	if err := e.send(ctx, in.ChatID, act.Prompts); err != nil {
		e.logResult(ctx, in, cur, next, start, "send", err)
		return err
	}

	if err := e.store.Set(ctx, in.ChatID, next); err != nil {
		e.logResult(ctx, in, cur, next, start, "store", err)
		return fmt.Errorf("handlers: store session %d: %w", in.ChatID, err)
	}

	if e.metrics != nil {
		e.metrics.Transitions.WithLabelValues(string(cur.Kind()), string(next.Kind())).Inc()
	}
	e.logResult(ctx, in, cur, next, start, "", nil)
	return nil
}

func (e *Engine) submit(ctx context.Context, in Inbound, sub *dialogue.Submission) error {
	outcome := "ok"
	defer func() {
		if e.metrics != nil {
			e.metrics.Submissions.WithLabelValues(outcome).Inc()
		}
	}()

	if in.UserID <= 0 {
		outcome = "fail"
		return ErrNoSender
	}
	if e.submitter == nil {
		outcome = "fail"
		return errors.New("handlers: no submitter configured")
	}
	// Photos are not part of the backend payload.
	err := e.submitter.Submit(ctx, listing.Listing{
		UserTelegramID: uint64(in.UserID),
		Description:    sub.Description,
	})
	if err != nil {
		outcome = "fail"
		return fmt.Errorf("handlers: submit listing: %w", err)
	}
	return nil
}

func (e *Engine) send(ctx context.Context, chatID int64, prompts []dialogue.Prompt) error {
	for _, p := range prompts {
		if err := e.transport.Send(ctx, chatID, p); err != nil {
			if e.metrics != nil {
				e.metrics.TransportFailures.WithLabelValues("send").Inc()
			}
			return fmt.Errorf("handlers: send %q: %w", logger.SanitizeLimit(p.Text, 32), err)
		}
	}
	return nil
}

func (e *Engine) logResult(ctx context.Context, in Inbound, from, to dialogue.State, start time.Time, stage string, err error) {
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("event_kind", string(in.Event.Kind)),
		slog.Int64("chat_id", in.ChatID),
		slog.Duration("took", logger.Took(start)),
	}
	if from != nil {
		attrs = append(attrs, slog.String("from_state", string(from.Kind())))
	}
	if to != nil {
		attrs = append(attrs,
			slog.String("to_state", string(to.Kind())),
			slog.Int("photos", len(dialogue.PhotosOf(to))),
		)
	}
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.String("stage", stage),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
	logger.LogEvent(ctx, logger.Dialogue, level, "dialogue.transition", attrs...)
}
