package service

import (
	"delta_bot/internal/modules/config"
)

func NewCrossover(cfg *config.Config) Crossover {
	return Crossover{
		FastSpan:   cfg.Strategy.FastSpan,
		SlowSpan:   cfg.Strategy.SlowSpan,
		MinCandles: cfg.Strategy.MinCandles,
	}
}
