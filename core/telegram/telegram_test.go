package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/welgevonden/marketbot/core/config"
	"github.com/welgevonden/marketbot/core/metrics"
	"github.com/welgevonden/marketbot/core/telegram/commands"
)

func names(mws []Middleware) []string {
	out := make([]string, 0, len(mws))
	for _, m := range mws {
		out = append(out, m.Name)
	}
	return out
}

func TestDefaultMiddlewares(t *testing.T) {
	require.Equal(t, []string{"recover", "logger"}, names(DefaultMiddlewares(nil, nil, nil)))

	cfg := &coreconfig.Config{}
	cfg.RateLimit.IntervalMS = 500
	got := names(DefaultMiddlewares(cfg, nil, metrics.New(nil)))
	require.Equal(t, []string{"recover", "metrics", "rate_limit", "logger"}, got)
}

func TestNewPoller(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Telegram.RunMode = coreconfig.RunModeWebhook
	cfg.Webhook.Listen = "0.0.0.0"
	cfg.Webhook.Port = 8443
	cfg.Webhook.URL = "https://bot.example/hook"

	wh, ok := NewPoller(cfg).(*tele.Webhook)
	require.True(t, ok)
	require.Equal(t, "0.0.0.0:8443", wh.Listen)
	require.Equal(t, "https://bot.example/hook", wh.Endpoint.PublicURL)

	lp, ok := NewPoller(nil).(*tele.LongPoller)
	require.True(t, ok)
	require.Equal(t, 10*time.Second, lp.Timeout)

	cfg = &coreconfig.Config{}
	cfg.Telegram.RunMode = coreconfig.RunModeLongpoll
	cfg.Telegram.LongPollTimeoutSeconds = 25
	lp, ok = NewPoller(cfg).(*tele.LongPoller)
	require.True(t, ok)
	require.Equal(t, 25*time.Second, lp.Timeout)
}

func TestBuildHTTPClientOutlastsLongPoll(t *testing.T) {
	c := BuildHTTPClient(25 * time.Second)
	require.Greater(t, c.Timeout, 25*time.Second)

	rt, ok := c.Transport.(*retryTransport)
	require.True(t, ok)
	require.Equal(t, retryAttempts, rt.retries)
}

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	h := func(tele.Context) error { return nil }

	reg.RegisterCommand("/start", commands.Command{Handler: h, Description: "Open the main menu"})
	reg.RegisterCommand("/menu", commands.Command{Handler: h, Description: "Main menu", Aliases: []string{"home"}})
	reg.RegisterCommand("/debug", commands.Command{Handler: h, Description: "Internal", Hidden: true})
	reg.RegisterCommand("nope", commands.Command{Handler: h, Description: "no slash"})
	reg.RegisterCommand("/start", commands.Command{Handler: h, Description: "duplicate"})

	require.Equal(t, []tele.Command{
		{Text: "menu", Description: "Main menu"},
		{Text: "start", Description: "Open the main menu"},
	}, reg.ListCommands(true))
	require.Len(t, reg.ListCommands(false), 3)

	key, _, ok := reg.LookupCommand("/home")
	require.True(t, ok)
	require.Equal(t, "/menu", key)

	_, _, ok = reg.LookupCommand("/missing")
	require.False(t, ok)
	_, _, ok = reg.LookupCommand("menu")
	require.False(t, ok)
}

func TestRegistryCallbacks(t *testing.T) {
	reg := NewRegistry()
	h := func(tele.Context) error { return nil }

	require.NoError(t, reg.RegisterCallback("remove", h))
	require.ErrorIs(t, reg.RegisterCallback("remove", h), ErrInvalidCallback)
	require.ErrorIs(t, reg.RegisterCallback("", h), ErrInvalidCallback)

	_, ok := reg.GetCallback("remove")
	require.True(t, ok)
	require.Equal(t, []string{"remove"}, reg.ListCallbacks())
	require.NotNil(t, reg.CallbackNotFound())
}
