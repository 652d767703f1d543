package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/welgevonden/marketbot/core/logger"
	tghelpers "github.com/welgevonden/marketbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures RateLimitMiddleware.
type RateLimitOptions struct {
	// Interval is the minimum gap between two updates from one user.
	Interval time.Duration
	// Exclude lists update classes that are never limited: "callback" or
	// "message".
	Exclude map[string]struct{}
	// OnLimited is called instead of the handler for a dropped update.
	OnLimited tele.HandlerFunc
}

// limiter remembers when each user was last let through. Entries older than
// the interval are pruned every few hundred checks.
type limiter struct {
	interval time.Duration

	mu     sync.Mutex
	seen   map[int64]time.Time
	checks int
}

func (l *limiter) allow(userID int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.checks++; l.checks%512 == 0 {
		for id, at := range l.seen {
			if now.Sub(at) >= l.interval {
				delete(l.seen, id)
			}
		}
	}
	if last, ok := l.seen[userID]; ok && now.Sub(last) < l.interval {
		return false
	}
	l.seen[userID] = now
	return true
}

// RateLimitMiddleware drops updates that follow the same user's previous
// update by less than opts.Interval. Photos are never limited: an album is
// a burst of photo messages.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	l := &limiter{interval: opts.Interval, seen: make(map[int64]time.Time)}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			class := UpdateKind(c.Update())
			switch class {
			case "photo":
				return next(c)
			case "text", "other":
				class = "message"
			}
			if _, skip := opts.Exclude[class]; skip {
				return next(c)
			}
			if l.allow(user.ID, time.Now()) {
				return next(c)
			}

			logger.LogEvent(tghelpers.BuildContext(c), logger.TG, slog.LevelWarn, "tg.rate_limit",
				slog.String("status", "rate_limited"),
				slog.String("kind", class),
			)
			if opts.OnLimited != nil {
				return opts.OnLimited(c)
			}
			return nil
		}
	}
}
