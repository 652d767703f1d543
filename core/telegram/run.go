package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/welgevonden/marketbot/core/config"
	"github.com/welgevonden/marketbot/core/logger"
	"github.com/welgevonden/marketbot/core/metrics"
	"github.com/welgevonden/marketbot/core/telegram/helpers"
	"github.com/welgevonden/marketbot/core/telegram/sequencer"

	tele "gopkg.in/telebot.v4"
)

// drainTimeout bounds how long queued dialogue jobs may run after the bot
// stops receiving updates.
const drainTimeout = 15 * time.Second

// Middleware is a named global middleware installed with bot.Use.
type Middleware struct {
	Name string
	Use  tele.MiddlewareFunc
}

// Route binds a handler to a telebot endpoint (command string, tele.OnText,
// a callback button and so on).
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions configures RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	SequencerOptions sequencer.Options
	// Sequencer is created from SequencerOptions when nil.
	Sequencer *sequencer.Sequencer
	Metrics   *metrics.Collectors

	Middlewares []Middleware
	Routes      []Route
	// BuildRoutes runs once the bot exists, for handlers that need it.
	BuildRoutes func(rt Runtime) ([]Route, error)

	// KeepWebhook skips the deleteWebhook call made before long polling.
	KeepWebhook bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime is what route builders and lifecycle hooks get to see.
type Runtime struct {
	Bot       *tele.Bot
	Sequencer *sequencer.Sequencer
	Registry  *Registry
	Metrics   *metrics.Collectors
}

// RunTelegram builds the bot from opts and serves updates until ctx ends.
// Updates are read synchronously; handlers hand dialogue work to the
// sequencer so each chat is served in order while other chats proceed.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := opts.Config
	if cfg == nil {
		return errors.New("telegram: nil config")
	}
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	started := time.Now()
	poller := NewPoller(cfg)
	bot, err := tele.NewBot(tele.Settings{
		Token:       cfg.Telegram.Token,
		Poller:      poller,
		Client:      BuildHTTPClient(PollTimeout(cfg)),
		Synchronous: true,
		OnError:     onError,
	})
	if err != nil {
		return fmt.Errorf("telegram: new bot: %w", err)
	}

	seq := opts.Sequencer
	if seq == nil {
		seq = sequencer.New(opts.SequencerOptions)
	}
	rt := Runtime{Bot: bot, Sequencer: seq, Registry: reg, Metrics: opts.Metrics}

	logMode(ctx, cfg, poller, time.Since(started))
	if _, polling := poller.(*tele.LongPoller); polling && !opts.KeepWebhook {
		removeWebhook(ctx, bot)
	}

	if err := install(bot, rt, opts); err != nil {
		seq.Close()
		return err
	}
	SetupCommands(bot, reg)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			seq.Close()
			return err
		}
	}

	metricsCtx, stopMetrics := context.WithCancel(ctx)
	defer stopMetrics()
	metricsErr := serveMetrics(metricsCtx, cfg, opts.Metrics)

	runErr := serve(ctx, bot)

	drainSequencer(ctx, seq)

	var stopErr error
	if opts.OnStop != nil {
		stopErr = opts.OnStop(context.WithoutCancel(ctx), rt)
	}

	stopMetrics()
	if err := <-metricsErr; err != nil {
		logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "metrics.listen",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}

	if stopErr != nil {
		return stopErr
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

// install registers middlewares before routes; telebot applies bot.Use only
// to handlers added after it.
func install(bot *tele.Bot, rt Runtime, opts RunOptions) error {
	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}

	routes := append([]Route(nil), opts.Routes...)
	if opts.BuildRoutes != nil {
		built, err := opts.BuildRoutes(rt)
		if err != nil {
			return fmt.Errorf("telegram: build routes: %w", err)
		}
		routes = append(routes, built...)
	}
	for _, r := range routes {
		if r.Endpoint != nil && r.Handler != nil {
			bot.Handle(r.Endpoint, r.Handler)
		}
	}
	return nil
}

// drainSequencer waits up to drainTimeout for queued jobs and logs how the
// lanes fared over the bot's lifetime.
func drainSequencer(ctx context.Context, seq *sequencer.Sequencer) {
	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	err := seq.Shutdown(drainCtx)
	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.Uint64("panics", seq.Panics()),
	}
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelWarn
		attrs[0] = slog.String("status", "partial")
		attrs = append(attrs, slog.String("err", err.Error()))
	}
	logger.LogEvent(ctx, logger.TG, level, "sequencer.shutdown", attrs...)
}

// serve runs the poller until it stops on its own or ctx ends.
func serve(ctx context.Context, bot *tele.Bot) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Start()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		bot.Stop()
		<-done
		return ctx.Err()
	}
}

// serveMetrics starts the prometheus listener when one is configured. The
// returned channel yields exactly one value.
func serveMetrics(ctx context.Context, cfg *coreconfig.Config, m *metrics.Collectors) <-chan error {
	out := make(chan error, 1)
	if m == nil || cfg.Metrics.Listen == "" {
		out <- nil
		return out
	}
	go func() { out <- m.Serve(ctx, cfg.Metrics.Listen) }()
	return out
}

func onError(err error, c tele.Context) {
	ctx := context.Background()
	if c != nil {
		if stored, ok := helpers.ContextFrom(c); ok {
			ctx = stored
		}
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelError, "tg.error",
		slog.String("status", "fail"),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
}

func logMode(ctx context.Context, cfg *coreconfig.Config, p tele.Poller, took time.Duration) {
	attrs := []slog.Attr{slog.Duration("duration", logger.RoundMS(took))}
	if wh, ok := p.(*tele.Webhook); ok {
		attrs = append(attrs,
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", wh.Listen),
			slog.String("public_url", wh.Endpoint.PublicURL),
		)
	} else {
		attrs = append(attrs,
			slog.String("mode", coreconfig.RunModeLongpoll),
			slog.Int("timeout_seconds", int(PollTimeout(cfg)/time.Second)),
		)
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "tg.mode", attrs...)
}

// removeWebhook clears a webhook left behind by an earlier deployment;
// getUpdates fails while one is set.
func removeWebhook(ctx context.Context, bot *tele.Bot) {
	if err := bot.RemoveWebhook(false); err != nil {
		logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "tg.delete_webhook",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "tg.delete_webhook", slog.String("status", "ok"))
}
