package main

import (
	"context"
	"log/slog"
	"sync"

	"github.com/h1v3-io/remedyctl/internal/config"
	"github.com/h1v3-io/remedyctl/internal/notify"
)

// lazyNotifier builds the configured sinks on first use so a successful run
// never contacts the notification services.
type lazyNotifier struct {
	cfg    config.NotifyConfig
	logger *slog.Logger

	once  sync.Once
	multi *notify.Multi
}

func newLazyNotifier(cfg config.NotifyConfig, logger *slog.Logger) *lazyNotifier {
	return &lazyNotifier{cfg: cfg, logger: logger}
}

func (l *lazyNotifier) Notify(ctx context.Context, msg notify.Message) error {
	l.once.Do(func() { l.multi = buildNotifier(l.cfg, l.logger) })
	return l.multi.Notify(ctx, msg)
}

// buildNotifier creates one sink per configured destination. A sink that
// cannot be initialized is logged and left out.
func buildNotifier(cfg config.NotifyConfig, logger *slog.Logger) *notify.Multi {
	var sinks []notify.Notifier

	if m := cfg.Mail; m != nil {
		sinks = append(sinks, notify.NewMail(notify.MailConfig{
			Server:     m.Server,
			Port:       m.Port,
			Sender:     m.Sender,
			Recipients: m.Recipients,
			CC:         m.CC,
		}, logger))
	}
	if sl := cfg.Slack; sl != nil {
		s, err := notify.NewSlack(sl.WebhookURL)
		if err != nil {
			logger.Warn("slack notifier disabled", "error", err)
		} else {
			sinks = append(sinks, s)
		}
	}
	if tg := cfg.Telegram; tg != nil {
		t, err := notify.NewTelegram(notify.TelegramConfig{Token: tg.Token, ChatID: tg.ChatID})
		if err != nil {
			logger.Warn("telegram notifier disabled", "error", err)
		} else {
			sinks = append(sinks, t)
		}
	}
	return notify.NewMulti(logger, sinks...)
}
