package telegram

import (
	"fmt"
	"time"

	coreconfig "github.com/m3rciful/schedbot/core/config"

	tele "gopkg.in/telebot.v4"
)

const defaultLongPollTimeout = 10 * time.Second

// BuildPoller picks the update source for one persona bot: a webhook
// listener when configured, long polling otherwise.
func BuildPoller(cfg coreconfig.BotConfig) tele.Poller {
	if cfg.RunMode == coreconfig.RunModeWebhook {
		return &tele.Webhook{
			Listen:   fmt.Sprintf("%s:%d", cfg.Webhook.Listen, cfg.Webhook.Port),
			Endpoint: &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
		}
	}

	timeout := time.Duration(cfg.LongPollTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultLongPollTimeout
	}
	return &tele.LongPoller{Timeout: timeout}
}
