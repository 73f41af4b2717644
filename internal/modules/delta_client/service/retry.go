package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"delta_bot/internal/models"
)

type candleFetcher interface {
	Candles(ctx context.Context, inst models.Instrument, interval string) (models.CandleSeries, error)
}

// RetryingCandles retries candle reads with exponential backoff. Orders are
// never routed through it.
type RetryingCandles struct {
	src     candleFetcher
	retries uint64
	initial time.Duration
	log     *zap.Logger
}

func NewRetryingCandles(src candleFetcher, retries uint64, initial time.Duration, log *zap.Logger) *RetryingCandles {
	if log == nil {
		log = zap.NewNop()
	}
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	return &RetryingCandles{src: src, retries: retries, initial: initial, log: log}
}

func (r *RetryingCandles) Candles(ctx context.Context, inst models.Instrument, interval string) (models.CandleSeries, error) {
	var out models.CandleSeries
	attempt := 0
	op := func() error {
		attempt++
		s, err := r.src.Candles(ctx, inst, interval)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return backoff.Permanent(err)
			}
			r.log.Debug("candle fetch failed",
				zap.String("symbol", inst.Symbol),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		out = s
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.initial
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, r.retries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return out, nil
}
