package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"delta_bot/internal/models"
)

type candleSource interface {
	Candles(ctx context.Context, inst models.Instrument, interval string) (models.CandleSeries, error)
}

type signalGenerator interface {
	Generate(series models.CandleSeries) (models.Signal, error)
}

type catalog interface {
	Lookup(symbol string) (models.Instrument, error)
}

type notifier interface {
	Send(msg string)
}

// Report is the outcome of a warmup for one symbol.
type Report struct {
	Symbol  string
	Candles int
	Signal  models.Signal
	Err     error
}

// Warmuper checks at boot that every configured symbol resolves in the
// catalog and has enough candle history for a signal.
type Warmuper struct {
	candles candleSource
	signals signalGenerator
	catalog catalog
	n       notifier
	log     *zap.Logger

	// caps parallel candle requests
	sem chan struct{}
}

func NewWarmuper(candles candleSource, signals signalGenerator, cat catalog, n notifier, log *zap.Logger) *Warmuper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Warmuper{
		candles: candles,
		signals: signals,
		catalog: cat,
		n:       n,
		log:     log.Named("warmup"),
		sem:     make(chan struct{}, 4),
	}
}

// Warmup returns one report per symbol, sorted by symbol, and the first error.
func (w *Warmuper) Warmup(ctx context.Context, symbols []string, interval string) ([]Report, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	reports := make([]Report, len(symbols))
	var wg sync.WaitGroup
	for i, sym := range symbols {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.sem <- struct{}{}
			defer func() { <-w.sem }()
			reports[i] = w.check(ctx, sym, interval)
		}()
	}
	wg.Wait()

	sort.Slice(reports, func(i, j int) bool { return reports[i].Symbol < reports[j].Symbol })

	var firstErr error
	var b strings.Builder
	fmt.Fprintf(&b, "warmup %s:", interval)
	for _, r := range reports {
		if r.Err != nil {
			if firstErr == nil {
				firstErr = r.Err
			}
			fmt.Fprintf(&b, " %s=error(%s)", r.Symbol, models.FailureKind(r.Err))
			w.log.Warn("warmup failed", zap.String("symbol", r.Symbol),
				zap.String("failure_kind", models.FailureKind(r.Err)), zap.Error(r.Err))
			continue
		}
		fmt.Fprintf(&b, " %s=%d/%s", r.Symbol, r.Candles, r.Signal)
		w.log.Info("warmup ok", zap.String("symbol", r.Symbol),
			zap.Int("candles", r.Candles), zap.String("signal", string(r.Signal)))
	}
	if w.n != nil {
		w.n.Send(b.String())
	}
	return reports, firstErr
}

func (w *Warmuper) check(ctx context.Context, sym, interval string) Report {
	r := Report{Symbol: sym}
	inst, err := w.catalog.Lookup(sym)
	if err != nil {
		r.Err = err
		return r
	}
	series, err := w.candles.Candles(ctx, inst, interval)
	if err != nil {
		r.Err = fmt.Errorf("warmup %s: %w", sym, err)
		return r
	}
	r.Candles = len(series)
	if r.Signal, err = w.signals.Generate(series); err != nil {
		r.Err = fmt.Errorf("warmup %s: %w", sym, err)
	}
	return r
}
