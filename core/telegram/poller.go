package telegram

import (
	"net"
	"strconv"
	"time"

	coreconfig "github.com/welgevonden/marketbot/core/config"

	tele "gopkg.in/telebot.v4"
)

const defaultPollTimeout = 10 * time.Second

// PollTimeout is the long poll timeout from cfg, or ten seconds when unset.
func PollTimeout(cfg *coreconfig.Config) time.Duration {
	if cfg == nil || cfg.Telegram.LongPollTimeoutSeconds <= 0 {
		return defaultPollTimeout
	}
	return time.Duration(cfg.Telegram.LongPollTimeoutSeconds) * time.Second
}

// NewPoller returns the update source for the configured run mode. The
// config is expected to be normalized; anything but webhook mode polls.
func NewPoller(cfg *coreconfig.Config) tele.Poller {
	if cfg != nil && cfg.Telegram.RunMode == coreconfig.RunModeWebhook {
		return &tele.Webhook{
			Listen:   net.JoinHostPort(cfg.Webhook.Listen, strconv.Itoa(cfg.Webhook.Port)),
			Endpoint: &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
		}
	}
	return &tele.LongPoller{Timeout: PollTimeout(cfg)}
}
