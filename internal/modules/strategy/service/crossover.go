package service

import (
	"fmt"

	"delta_bot/internal/models"
)

// Crossover emits BUY/SELL when the fast EMA crosses the slow EMA between
// the last two closes of a series.
type Crossover struct {
	FastSpan   int
	SlowSpan   int
	MinCandles int
}

func (c Crossover) Name() string {
	return fmt.Sprintf("ema_cross_%d_%d", c.FastSpan, c.SlowSpan)
}

func (c Crossover) Generate(series models.CandleSeries) (models.Signal, error) {
	need := c.MinCandles
	if need < 2 {
		need = 2
	}
	if len(series) < need {
		return models.SignalHold, fmt.Errorf("%d candles, need %d: %w", len(series), need, models.ErrInsufficientHistory)
	}

	closes := series.Closes()
	fast := emaSeries(closes, c.FastSpan)
	slow := emaSeries(closes, c.SlowSpan)

	n := len(closes)
	prevFast, prevSlow := fast[n-2], slow[n-2]
	curFast, curSlow := fast[n-1], slow[n-1]

	switch {
	case prevFast < prevSlow && curFast > curSlow:
		return models.SignalBuy, nil
	case prevFast > prevSlow && curFast < curSlow:
		return models.SignalSell, nil
	}
	return models.SignalHold, nil
}
