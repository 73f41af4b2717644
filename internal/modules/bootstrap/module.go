package bootstrap

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	bootstrap "delta_bot/internal/modules/bootstrap/service"
	"delta_bot/internal/modules/config"
	delta "delta_bot/internal/modules/delta_client/service"
	strategy "delta_bot/internal/modules/strategy/service"
	"delta_bot/internal/notify"
)

func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(
			func(c *delta.RetryingCandles, s strategy.Crossover, cat *config.Catalog, n notify.Notifier, log *zap.Logger) *bootstrap.Warmuper {
				return bootstrap.NewWarmuper(c, s, cat, n, log)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, wu *bootstrap.Warmuper) {
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						// failures are reported; trading still starts
						_, _ = wu.Warmup(ctx, cfg.Engine.Symbols, cfg.Engine.Interval)
					}()
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}
