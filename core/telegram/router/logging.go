package router

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/welgevonden/marketbot/core/logger"
	tghelpers "github.com/welgevonden/marketbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// handled runs fn under the handler name and writes one handler.handled line.
func handled(c tele.Context, name string, fn func() error, extras ...slog.Attr) error {
	start := time.Now()
	ctx := tghelpers.WithHandler(c, name)
	err := fn()

	result := "ok"
	if err != nil {
		result = "fail"
	}
	attrs := []slog.Attr{
		slog.String("status", result),
		slog.String("outcome", result),
		slog.Duration("duration", logger.Took(start)),
	}
	attrs = append(attrs, extras...)
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "handler.handled", attrs...)
	return err
}

// skipped records an update the router chose not to hand on.
func skipped(c tele.Context, name, reason string) {
	ctx := tghelpers.WithHandler(c, name)
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "handler.handled",
		slog.String("status", "skip"),
		slog.String("outcome", "ok"),
		slog.String("reason", reason),
	)
}

// handlerName turns a command or callback key into a log-friendly name.
func handlerName(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

// errorCode prefers a Code() method anywhere in the chain, then the
// concrete type name.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	typ := strings.TrimLeft(fmt.Sprintf("%T", err), "*")
	if i := strings.LastIndexByte(typ, '.'); i >= 0 {
		typ = typ[i+1:]
	}
	return strings.ToUpper(typ)
}
