package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/welgevonden/marketbot/core/logger"
)

// ErrKickTarget is returned for a /kick argument that is not an @username.
var ErrKickTarget = errors.New("handlers: kick target must be an @username")

// kickOptions are the answers of a kick poll, in order.
var kickOptions = []string{"Yes", "No"}

// KickQuestion is the poll question for target, an @username.
func KickQuestion(target string) string {
	return fmt.Sprintf("Should we kick %s from the group?", target)
}

// ParseKickTarget validates the argument of /kick. Only the first word
// counts; it must be "@" followed by a name.
func ParseKickTarget(payload string) (string, error) {
	fields := strings.Fields(payload)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "@") || len(fields[0]) < 2 {
		return "", ErrKickTarget
	}
	return fields[0], nil
}

// Kicker opens group votes on removing a member. It only asks; nobody is
// removed from the chat.
type Kicker struct {
	transport Transport
}

// NewKicker wires a Kicker.
func NewKicker(t Transport) *Kicker {
	return &Kicker{transport: t}
}

// Handle sends a non-anonymous Yes/No poll about target to chatID.
func (k *Kicker) Handle(ctx context.Context, chatID int64, target string) error {
	if err := k.transport.Poll(ctx, chatID, KickQuestion(target), kickOptions); err != nil {
		return fmt.Errorf("handlers: send kick poll: %w", err)
	}
	logger.LogEvent(ctx, logger.Dialogue, slog.LevelInfo, "kick.poll",
		slog.String("status", "ok"),
		slog.Int64("chat_id", chatID),
		slog.String("target", logger.SanitizeLimit(target, 64)),
	)
	return nil
}
