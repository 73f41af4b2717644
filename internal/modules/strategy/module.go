package strategy

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"delta_bot/internal/modules/strategy/service"
)

func Module() fx.Option {
	return fx.Module("strategy",
		fx.Provide(
			service.NewCrossover,
		),
		fx.Invoke(func(c service.Crossover, log *zap.Logger) {
			log.Info("strategy configured",
				zap.String("name", c.Name()),
				zap.Int("min_candles", c.MinCandles))
		}),
	)
}
