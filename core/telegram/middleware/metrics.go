package middleware

import (
	"github.com/welgevonden/marketbot/core/metrics"

	tele "gopkg.in/telebot.v4"
)

// UpdateKind classifies an update for metrics and rate limiting.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		switch {
		case upd.Message.Photo != nil:
			return "photo"
		case upd.Message.Text != "":
			return "text"
		default:
			return "other"
		}
	case upd.Query != nil:
		return "inline_query"
	default:
		return "unknown"
	}
}

// UpdateMetricsMiddleware counts received updates by kind.
func UpdateMetricsMiddleware(col *metrics.Collectors) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		if col == nil {
			return next
		}
		return func(c tele.Context) error {
			col.Updates.WithLabelValues(UpdateKind(c.Update())).Inc()
			return next(c)
		}
	}
}
