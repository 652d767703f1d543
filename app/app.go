// Package app assembles the item-listing bot from the core runtime and the
// dialogue, listing and handlers packages.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/welgevonden/marketbot/app/dialogue"
	"github.com/welgevonden/marketbot/app/handlers"
	"github.com/welgevonden/marketbot/app/listing"
	"github.com/welgevonden/marketbot/core/bootstrap"
	corecmd "github.com/welgevonden/marketbot/core/cmd"
	coreconfig "github.com/welgevonden/marketbot/core/config"
	"github.com/welgevonden/marketbot/core/metrics"
	tg "github.com/welgevonden/marketbot/core/telegram"
	"github.com/welgevonden/marketbot/core/telegram/sequencer"
	"github.com/welgevonden/marketbot/core/telegram/state"
)

// App holds the long-lived components shared by every conversation.
type App struct {
	cfg     *coreconfig.Config
	infra   *bootstrap.Result
	store   state.Store[dialogue.State]
	listing *listing.Client
	machine *dialogue.Machine
	lanes   *sequencer.Sequencer
	metrics *metrics.Collectors
}

// LoadConfig satisfies corecmd.Options.LoadConfig.
func LoadConfig(path string) (corecmd.ConfigCarrier, error) {
	cfg, err := coreconfig.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Bootstrap satisfies corecmd.Options.Bootstrap.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	return New(carrier.CoreConfig(), bootstrap.Options{})
}

// New runs the bootstrap pipeline and builds the session store for the
// configured driver. opts.Config is overwritten with cfg.
func New(cfg *coreconfig.Config, opts bootstrap.Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	opts.Config = cfg
	infra, err := bootstrap.Run(opts)
	if err != nil {
		return nil, err
	}

	store, err := state.NewStore[dialogue.State](cfg.Session.Driver, dialogue.Codec{},
		state.WithRedisClient(infra.Redis),
		state.WithKeyPrefix(cfg.Session.KeyPrefix),
		state.WithTTL(cfg.Session.TTL),
		state.WithDB(infra.DB),
	)
	if err != nil {
		_ = infra.Close()
		return nil, fmt.Errorf("app: session store: %w", err)
	}

	lanes := sequencer.New(sequencer.Options{})
	return &App{
		cfg:     cfg,
		infra:   infra,
		store:   store,
		listing: listing.New(cfg.Backend.BaseURL, cfg.Backend.Timeout),
		machine: dialogue.New(dialogue.Options{
			HelpURL:     cfg.Links.HelpURL,
			ListingsURL: cfg.Links.ListingsURL,
		}),
		lanes:   lanes,
		metrics: metrics.New(lanes.Active),
	}, nil
}

// TelegramRunOptions implements corecmd.TelegramApp.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	return tg.RunOptions{
		Config:      a.cfg,
		Registry:    tg.NewRegistry(),
		Sequencer:   a.lanes,
		Metrics:     a.metrics,
		Middlewares: tg.DefaultMiddlewares(a.cfg, nil, a.metrics),
		BuildRoutes: a.routes,
		OnStop: func(context.Context, tg.Runtime) error {
			// The store owns the db or redis handle when one exists.
			return a.store.Close()
		},
	}, nil
}

func (a *App) routes(rt tg.Runtime) ([]tg.Route, error) {
	transport := handlers.NewTeleTransport(rt.Bot, rt.Metrics)
	engine := handlers.NewEngine(handlers.EngineDeps{
		Machine:   a.machine,
		Store:     a.store,
		Transport: transport,
		Submitter: a.listing,
		Metrics:   rt.Metrics,
	})
	bot := handlers.NewBot(engine, handlers.NewAcknowledger(transport), handlers.NewKicker(transport), rt.Sequencer, rt.Metrics)
	return bot.Routes(rt)
}
