package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/welgevonden/marketbot/core/config"
	"github.com/welgevonden/marketbot/core/metrics"
	"github.com/welgevonden/marketbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares returns the global chain, outermost first: panic
// recovery, update metrics when col is set, the per-user rate limit when
// cfg enables it, then request logging. onLimited may be nil.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited func(tele.Context) error, col *metrics.Collectors) []Middleware {
	chain := []Middleware{{Name: "recover", Use: middleware.RecoverMiddleware}}
	if col != nil {
		chain = append(chain, Middleware{Name: "metrics", Use: middleware.UpdateMetricsMiddleware(col)})
	}
	if rl, ok := rateLimit(cfg, onLimited); ok {
		chain = append(chain, Middleware{Name: "rate_limit", Use: middleware.RateLimitMiddleware(rl)})
	}
	return append(chain, Middleware{Name: "logger", Use: middleware.LoggerMiddleware})
}

func rateLimit(cfg *coreconfig.Config, onLimited func(tele.Context) error) (middleware.RateLimitOptions, bool) {
	if cfg == nil || cfg.RateLimit.IntervalMS <= 0 {
		return middleware.RateLimitOptions{}, false
	}
	exclude := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
	for _, kind := range cfg.RateLimit.ExcludeUpdates {
		exclude[strings.ToLower(strings.TrimSpace(kind))] = struct{}{}
	}
	return middleware.RateLimitOptions{
		Interval:  time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
		Exclude:   exclude,
		OnLimited: onLimited,
	}, true
}
