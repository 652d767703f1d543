package logger

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	metaKey
)

// meta is the per-update correlation data every record picks up from ctx.
type meta struct {
	rid      string
	traceID  string
	handler  string
	updateID int
	userID   int64
	chatID   int64
}

func metaFrom(ctx context.Context) meta {
	if ctx == nil {
		return meta{}
	}
	m, _ := ctx.Value(metaKey).(meta)
	return m
}

func withMeta(ctx context.Context, edit func(*meta)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	m := metaFrom(ctx)
	edit(&m)
	return context.WithValue(ctx, metaKey, m)
}

// WithLogger stores log in ctx for FromContext.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey, log)
}

// FromContext returns the logger stored by WithLogger, or L.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
			return l
		}
	}
	return L
}

// WithRID sets the request id built by BuildRID.
func WithRID(ctx context.Context, rid string) context.Context {
	return withMeta(ctx, func(m *meta) { m.rid = rid })
}

// WithUpdateMeta sets the Telegram update, user and chat ids.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	return withMeta(ctx, func(m *meta) {
		m.updateID = updateID
		m.userID = userID
		m.chatID = chatID
	})
}

// WithHandler names the handler serving the update. Empty names are ignored.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return withMeta(ctx, func(m *meta) { m.handler = handler })
}

// NewTraceID returns a random id that follows one update across the
// sequencer hop and backend calls.
func NewTraceID() string {
	return uuid.NewString()
}

// WithTrace sets the trace id. Empty ids are ignored.
func WithTrace(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return withMeta(ctx, func(m *meta) { m.traceID = traceID })
}

// RIDFrom returns the request id, if any.
func RIDFrom(ctx context.Context) string { return metaFrom(ctx).rid }

// TraceIDFrom returns the trace id, if any.
func TraceIDFrom(ctx context.Context) string { return metaFrom(ctx).traceID }
