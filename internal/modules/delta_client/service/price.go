package service

import (
	"context"
	"fmt"
	"time"

	"delta_bot/internal/models"
)

type lastQuoter interface {
	Last(symbol string) (float64, time.Time, bool)
}

// PriceFeed answers the monitor's price polls: a fresh streamed quote when
// one exists, otherwise the close of the latest candle.
type PriceFeed struct {
	stream  lastQuoter
	candles candleFetcher
	maxAge  time.Duration
	now     func() time.Time
}

func NewPriceFeed(stream lastQuoter, candles candleFetcher, maxAge time.Duration) *PriceFeed {
	return &PriceFeed{stream: stream, candles: candles, maxAge: maxAge, now: time.Now}
}

func (p *PriceFeed) LastPrice(ctx context.Context, inst models.Instrument, interval string) (float64, error) {
	if p.stream != nil && p.maxAge > 0 {
		if px, at, ok := p.stream.Last(inst.Symbol); ok && px > 0 && p.now().Sub(at) <= p.maxAge {
			return px, nil
		}
	}
	series, err := p.candles.Candles(ctx, inst, interval)
	if err != nil {
		return 0, err
	}
	last, ok := series.Last()
	if !ok {
		return 0, fmt.Errorf("%w: empty series for %s", models.ErrDataFetch, inst.Symbol)
	}
	return last.Close, nil
}
