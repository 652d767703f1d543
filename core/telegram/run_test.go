package telegram

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/welgevonden/marketbot/core/telegram/sequencer"
)

func TestDrainSequencerFinishesQueuedJobs(t *testing.T) {
	seq := sequencer.New(sequencer.Options{})
	ran := make(chan struct{}, 1)
	ctx := context.Background()

	require.NoError(t, seq.Enqueue(ctx, 1, "boom", func(context.Context) { panic("boom") }))
	require.NoError(t, seq.Enqueue(ctx, 1, "after", func(context.Context) { ran <- struct{}{} }))

	drainSequencer(ctx, seq)
	require.Len(t, ran, 1)
	require.Equal(t, uint64(1), seq.Panics())
	require.ErrorIs(t, seq.Enqueue(ctx, 2, "late", func(context.Context) {}), sequencer.ErrClosed)
}

func TestRunTelegramRejectsNilConfig(t *testing.T) {
	require.Error(t, RunTelegram(context.Background(), RunOptions{}))
}
