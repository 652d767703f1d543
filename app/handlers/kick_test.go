package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseKickTarget(t *testing.T) {
	got, err := ParseKickTarget("  @mallory please  ")
	require.NoError(t, err)
	require.Equal(t, "@mallory", got)

	for _, bad := range []string{"", "   ", "mallory", "@", "mal@lory"} {
		_, err := ParseKickTarget(bad)
		require.ErrorIs(t, err, ErrKickTarget, bad)
	}
}

func TestKickerSendFailure(t *testing.T) {
	tr := &fakeTransport{failPoll: true}
	err := NewKicker(tr).Handle(context.Background(), -1, "@mallory")
	require.ErrorIs(t, err, errTransport)
	require.Equal(t, []string{"poll"}, tr.calls)
}
