package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	coreconfig "github.com/welgevonden/marketbot/core/config"
	coretelegram "github.com/welgevonden/marketbot/core/telegram"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type fakeApp struct {
	opts coretelegram.RunOptions
	err  error
}

func (a fakeApp) TelegramRunOptions() (coretelegram.RunOptions, error) { return a.opts, a.err }

func testContext() (context.Context, context.CancelFunc) {
	return context.WithCancel(context.Background())
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/env.yaml")
	t.Setenv("BOT_CONFIG", "")

	require.Equal(t, "/flag.yaml", ResolveConfigPath("/flag.yaml", "", "/default.yaml"))
	require.Equal(t, "/env.yaml", ResolveConfigPath("", "", "/default.yaml"))
	require.Equal(t, "/default.yaml", ResolveConfigPath("", "BOT_CONFIG", "/default.yaml"))
}

func TestRunRequiresHooks(t *testing.T) {
	require.Error(t, Run(Options{}))
	require.Error(t, Run(Options{LoadConfig: func(string) (ConfigCarrier, error) { return carrier{}, nil }}))
}

func TestRunWrapsLifecycle(t *testing.T) {
	var (
		loadedFrom string
		started    bool
		stopped    bool
		shutdown   bool
	)
	err := Run(Options{
		ConfigPath: "/cfg.yaml",
		LoadConfig: func(path string) (ConfigCarrier, error) {
			loadedFrom = path
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(ConfigCarrier) (TelegramApp, error) {
			return fakeApp{opts: coretelegram.RunOptions{
				OnStart: func(context.Context, coretelegram.Runtime) error { started = true; return nil },
				OnStop:  func(context.Context, coretelegram.Runtime) error { stopped = true; return nil },
			}}, nil
		},
		ShutdownLogger: func() error { shutdown = true; return nil },
		Context:        testContext,
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			if err := opts.OnStart(ctx, coretelegram.Runtime{}); err != nil {
				return err
			}
			return opts.OnStop(ctx, coretelegram.Runtime{})
		},
	})
	require.NoError(t, err)
	require.Equal(t, "/cfg.yaml", loadedFrom)
	require.True(t, started)
	require.True(t, stopped)
	require.True(t, shutdown)
}

func TestRunPropagatesFailures(t *testing.T) {
	boom := errors.New("boom")
	load := func(string) (ConfigCarrier, error) { return carrier{cfg: &coreconfig.Config{}}, nil }

	err := Run(Options{
		LoadConfig: func(string) (ConfigCarrier, error) { return nil, boom },
		Bootstrap:  func(ConfigCarrier) (TelegramApp, error) { return fakeApp{}, nil },
	})
	require.ErrorIs(t, err, boom)

	err = Run(Options{
		LoadConfig: func(string) (ConfigCarrier, error) { return carrier{}, nil },
		Bootstrap:  func(ConfigCarrier) (TelegramApp, error) { return fakeApp{}, nil },
	})
	require.ErrorContains(t, err, "no core configuration")

	err = Run(Options{
		LoadConfig: load,
		Bootstrap:  func(ConfigCarrier) (TelegramApp, error) { return nil, boom },
	})
	require.ErrorIs(t, err, boom)

	err = Run(Options{
		LoadConfig:     load,
		Bootstrap:      func(ConfigCarrier) (TelegramApp, error) { return fakeApp{err: boom}, nil },
		ShutdownLogger: func() error { return nil },
	})
	require.ErrorIs(t, err, boom)
}
