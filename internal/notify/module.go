package notify

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"delta_bot/internal/modules/config"
)

// Module provides a Telegram notifier when a token and chat are configured,
// the log notifier otherwise.
func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(
			func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) Notifier {
				if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
					log.Info("telegram not configured, notifications go to the log")
					return NewLog(log)
				}
				tg, err := NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, log.Named("telegram"))
				if err != nil {
					log.Error("telegram init failed, notifications go to the log", zap.Error(err))
					return NewLog(log)
				}

				ctx, cancel := context.WithCancel(context.Background())
				lc.Append(fx.Hook{
					OnStart: func(context.Context) error {
						return tg.Start(ctx)
					},
					OnStop: func(stopCtx context.Context) error {
						cancel()
						tg.Stop(stopCtx)
						return nil
					},
				})
				return tg
			},
		),
	)
}
