package delta_client

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"delta_bot/internal/modules/config"
	"delta_bot/internal/modules/delta_client/service"
	health "delta_bot/internal/modules/health/service"
)

func Module() fx.Option {
	return fx.Module("delta_client",
		fx.Provide(
			service.NewClient,
			func(cfg *config.Config, c *service.Client, log *zap.Logger) *service.RetryingCandles {
				return service.NewRetryingCandles(c, cfg.Delta.CandleRetries, 0, log)
			},
			func(cfg *config.Config, catalog *config.Catalog, state *health.State, log *zap.Logger) *service.TickerStream {
				if !cfg.Delta.TickerEnabled || cfg.Delta.WSURL == "" {
					return nil
				}
				s := service.NewTickerStream(cfg.Delta.WSURL, catalog.Symbols(), log)
				s.OnConnection = state.SetWSConnected
				return s
			},
			func(cfg *config.Config, s *service.TickerStream, candles *service.RetryingCandles) *service.PriceFeed {
				if s == nil {
					return service.NewPriceFeed(nil, candles, 0)
				}
				return service.NewPriceFeed(s, candles, cfg.Delta.TickerMaxAge)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, s *service.TickerStream) {
			if s == nil {
				return
			}
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						defer close(done)
						s.Run(ctx)
					}()
					return nil
				},
				OnStop: func(stopCtx context.Context) error {
					cancel()
					select {
					case <-done:
					case <-stopCtx.Done():
					}
					return nil
				},
			})
		}),
	)
}
