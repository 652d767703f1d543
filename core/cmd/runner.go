// Package cmd holds the process lifecycle shared by the bot binaries:
// resolve and load config, bootstrap the app, run Telegram until a signal.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	coreconfig "github.com/welgevonden/marketbot/core/config"
	"github.com/welgevonden/marketbot/core/logger"
	coretelegram "github.com/welgevonden/marketbot/core/telegram"
)

// DefaultConfigEnvVar names the variable consulted when no path is given.
const DefaultConfigEnvVar = "CONFIG_PATH"

// ConfigCarrier is anything that embeds the core configuration.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp supplies the options RunTelegram is started with.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

// Options wires an application into Run.
type Options struct {
	// ConfigPath wins over ConfigEnvVar and DefaultConfigPath. When all three
	// are empty LoadConfig receives "" and reads the environment only.
	ConfigPath        string
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(cfg ConfigCarrier) (TelegramApp, error)

	// Test seams; nil means logger.Shutdown, coretelegram.RunTelegram and a
	// context cancelled by SIGINT or SIGTERM.
	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
	Context        func() (context.Context, context.CancelFunc)
}

// Run loads configuration, bootstraps the app and serves Telegram until the
// process is signalled.
func Run(opts Options) error {
	switch {
	case opts.LoadConfig == nil:
		return errors.New("cmd: LoadConfig is required")
	case opts.Bootstrap == nil:
		return errors.New("cmd: Bootstrap is required")
	}
	started := time.Now()

	path := ResolveConfigPath(opts.ConfigPath, opts.ConfigEnvVar, opts.DefaultConfigPath)
	if path == "" {
		log.Printf("loading config from environment")
	} else {
		log.Printf("loading config: %s", path)
	}
	carrier, err := opts.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("cmd: load config: %w", err)
	}
	if carrier == nil || carrier.CoreConfig() == nil {
		return errors.New("cmd: config carries no core configuration")
	}

	app, err := opts.Bootstrap(carrier)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap: %w", err)
	}
	shutdown := opts.ShutdownLogger
	if shutdown == nil {
		shutdown = logger.Shutdown
	}
	defer func() {
		if err := shutdown(); err != nil {
			log.Printf("logger shutdown: %v", err)
		}
	}()

	runOpts, err := app.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options: %w", err)
	}
	withLifecycleLogs(&runOpts, started)

	newCtx := opts.Context
	if newCtx == nil {
		newCtx = func() (context.Context, context.CancelFunc) {
			return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		}
	}
	ctx, cancel := newCtx()
	defer cancel()

	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.RunTelegram
	}
	return run(ctx, runOpts)
}

// withLifecycleLogs wraps the start and stop hooks with "app.ready" and
// "app.shutdown" events. The app's own hooks run as before.
func withLifecycleLogs(opts *coretelegram.RunOptions, started time.Time) {
	app := logger.Component("app")

	onStart := opts.OnStart
	opts.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if onStart != nil {
			if err := onStart(ctx, rt); err != nil {
				return err
			}
		}
		logger.LogEvent(ctx, app, slog.LevelInfo, "app.ready",
			slog.Duration("startup", logger.RoundMS(time.Since(started))),
		)
		return nil
	}

	onStop := opts.OnStop
	opts.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.LogEvent(ctx, app, slog.LevelInfo, "app.shutdown")
		if onStop == nil {
			return nil
		}
		return onStop(ctx, rt)
	}
}

// ResolveConfigPath picks the explicit path, then the env var (CONFIG_PATH
// by default), then the fallback.
func ResolveConfigPath(explicit, envVar, fallback string) string {
	if explicit != "" {
		return explicit
	}
	if envVar == "" {
		envVar = DefaultConfigEnvVar
	}
	if p := os.Getenv(envVar); p != "" {
		return p
	}
	return fallback
}
