package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/welgevonden/marketbot/app/dialogue"
	"github.com/welgevonden/marketbot/core/metrics"
)

type sendCall struct {
	to   tele.Recipient
	what interface{}
	opts []interface{}
}

type fakeBot struct {
	sends    []sendCall
	edits    []tele.Editable
	texts    []interface{}
	responds []*tele.Callback
	err      error
}

func (b *fakeBot) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.sends = append(b.sends, sendCall{to: to, what: what, opts: opts})
	return &tele.Message{}, nil
}

func (b *fakeBot) Edit(msg tele.Editable, what interface{}, _ ...interface{}) (*tele.Message, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.edits = append(b.edits, msg)
	b.texts = append(b.texts, what)
	return &tele.Message{}, nil
}

func (b *fakeBot) Respond(c *tele.Callback, _ ...*tele.CallbackResponse) error {
	if b.err != nil {
		return b.err
	}
	b.responds = append(b.responds, c)
	return nil
}

func markupOf(t *testing.T, call sendCall) *tele.ReplyMarkup {
	t.Helper()
	require.Len(t, call.opts, 1)
	opts, ok := call.opts[0].(*tele.SendOptions)
	require.True(t, ok)
	return opts.ReplyMarkup
}

func TestTeleTransportSendKeyboards(t *testing.T) {
	bot := &fakeBot{}
	tr := NewTeleTransport(bot, metrics.New(nil))
	ctx := context.Background()

	require.NoError(t, tr.Send(ctx, 42, dialogue.Prompt{Text: "Main menu", Keyboard: []string{"Buy-and-Sell", "Help"}}))
	require.NoError(t, tr.Send(ctx, 42, dialogue.Prompt{Text: "Give a description.", RemoveKeyboard: true}))
	require.NoError(t, tr.Send(ctx, 42, dialogue.Prompt{Text: "Tutoring", Inline: []dialogue.InlineButton{{Text: "Remove", Action: "remove", Data: "Tutoring"}}}))
	require.NoError(t, tr.Send(ctx, 42, dialogue.Prompt{Text: "Please read more"}))

	require.Len(t, bot.sends, 4)
	require.Equal(t, tele.ChatID(42), bot.sends[0].to)
	require.Equal(t, "Main menu", bot.sends[0].what)

	reply := markupOf(t, bot.sends[0])
	require.True(t, reply.ResizeKeyboard)
	require.Len(t, reply.ReplyKeyboard, 1)
	require.Len(t, reply.ReplyKeyboard[0], 2)
	require.Equal(t, "Buy-and-Sell", reply.ReplyKeyboard[0][0].Text)

	require.True(t, markupOf(t, bot.sends[1]).RemoveKeyboard)

	inline := markupOf(t, bot.sends[2])
	require.Len(t, inline.InlineKeyboard, 1)
	require.Equal(t, "Remove", inline.InlineKeyboard[0][0].Text)
	require.Equal(t, "remove", inline.InlineKeyboard[0][0].Unique)
	require.Contains(t, inline.InlineKeyboard[0][0].Data, "Tutoring")

	require.Nil(t, markupOf(t, bot.sends[3]))
}

func TestTeleTransportEditAndAnswer(t *testing.T) {
	bot := &fakeBot{}
	tr := NewTeleTransport(bot, nil)
	ctx := context.Background()

	require.NoError(t, tr.Edit(ctx, MessageRef{ChatID: 9, MessageID: 77}, "Removed: Tutoring"))
	require.NoError(t, tr.Edit(ctx, MessageRef{InlineID: "AAQ"}, "error"))
	require.NoError(t, tr.Answer(ctx, "cb-1"))

	id, chat := bot.edits[0].MessageSig()
	require.Equal(t, "77", id)
	require.Equal(t, int64(9), chat)
	id, chat = bot.edits[1].MessageSig()
	require.Equal(t, "AAQ", id)
	require.Zero(t, chat)
	require.Equal(t, []interface{}{"Removed: Tutoring", "error"}, bot.texts)
	require.Equal(t, "cb-1", bot.responds[0].ID)
}

func TestTeleTransportErrors(t *testing.T) {
	bot := &fakeBot{err: errTransport}
	tr := NewTeleTransport(bot, metrics.New(nil))
	ctx := context.Background()

	require.ErrorIs(t, tr.Send(ctx, 1, dialogue.Prompt{Text: "x"}), errTransport)
	require.ErrorIs(t, tr.Edit(ctx, MessageRef{ChatID: 1, MessageID: 1}, "x"), errTransport)
	require.ErrorIs(t, tr.Answer(ctx, "cb"), errTransport)
	require.ErrorIs(t, tr.Poll(ctx, 1, "q", []string{"Yes", "No"}), errTransport)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	require.ErrorIs(t, NewTeleTransport(&fakeBot{}, nil).Send(cancelled, 1, dialogue.Prompt{Text: "x"}), context.Canceled)
}

func TestTeleTransportPoll(t *testing.T) {
	bot := &fakeBot{}
	tr := NewTeleTransport(bot, metrics.New(nil))

	require.NoError(t, tr.Poll(context.Background(), -300, KickQuestion("@mallory"), []string{"Yes", "No"}))
	require.Len(t, bot.sends, 1)
	require.Equal(t, tele.ChatID(-300), bot.sends[0].to)

	p, ok := bot.sends[0].what.(*tele.Poll)
	require.True(t, ok)
	require.Equal(t, tele.PollRegular, p.Type)
	require.Equal(t, "Should we kick @mallory from the group?", p.Question)
	require.False(t, p.Anonymous)
	require.Len(t, p.Options, 2)
	require.Equal(t, "Yes", p.Options[0].Text)
	require.Equal(t, "No", p.Options[1].Text)
}
