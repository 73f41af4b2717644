package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"delta_bot/internal/models"
)

type fakeCatalog map[string]models.Instrument

func (f fakeCatalog) Lookup(symbol string) (models.Instrument, error) {
	it, ok := f[symbol]
	if !ok {
		return models.Instrument{}, fmt.Errorf("%s: %w", symbol, models.ErrUnknownInstrument)
	}
	return it, nil
}

var testCatalog = fakeCatalog{
	"ETHUSD": {Symbol: "ETHUSD", ProductID: 3136},
	"BTCUSD": {Symbol: "BTCUSD", ProductID: 27},
}

type fakeCandles struct {
	mu     sync.Mutex
	series map[string]models.CandleSeries
	err    error
	calls  int
	// gate, if set, blocks every call until it is closed.
	gate     chan struct{}
	inflight int
	peak     int
}

func (f *fakeCandles) Candles(_ context.Context, inst models.Instrument, _ string) (models.CandleSeries, error) {
	f.mu.Lock()
	f.calls++
	f.inflight++
	if f.inflight > f.peak {
		f.peak = f.inflight
	}
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inflight--
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.series[inst.Symbol]
	if !ok {
		return nil, models.ErrDataFetch
	}
	return s, nil
}

func (f *fakeCandles) stats() (calls, peak int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, f.peak
}

// fakeSignals returns the same signal for every series.
type fakeSignals struct {
	sig models.Signal
	err error
}

func (f fakeSignals) Generate(models.CandleSeries) (models.Signal, error) {
	return f.sig, f.err
}

type fakePrices struct {
	mu     sync.Mutex
	prices []float64
	errs   []error
	calls  int
}

func (f *fakePrices) LastPrice(context.Context, models.Instrument, string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return 0, f.errs[i]
	}
	if len(f.prices) == 0 {
		return 0, models.ErrDataFetch
	}
	if i >= len(f.prices) {
		return f.prices[len(f.prices)-1], nil
	}
	return f.prices[i], nil
}

func (f *fakePrices) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeOrders struct {
	mu     sync.Mutex
	orders []models.OrderRequest
	// reject lists 1-based call numbers to reject.
	reject map[int]bool
}

func (f *fakeOrders) Submit(_ context.Context, o models.OrderRequest) (models.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, o)
	if f.reject[len(f.orders)] {
		return models.OrderResult{StatusCode: 400}, fmt.Errorf("%w: http 400", models.ErrOrderRejected)
	}
	return models.OrderResult{Accepted: true, StatusCode: 200, OrderID: fmt.Sprint(len(f.orders))}, nil
}

func (f *fakeOrders) all() []models.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.OrderRequest(nil), f.orders...)
}

type fakeLedger struct {
	mu      sync.Mutex
	records []models.TradeRecord
	err     error
}

func (f *fakeLedger) Append(_ context.Context, r *models.TradeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	r.ID = int64(len(f.records) + 1)
	f.records = append(f.records, *r)
	return nil
}

func (f *fakeLedger) all() []models.TradeRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.TradeRecord(nil), f.records...)
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (f *fakeNotifier) Send(msg string) {
	f.mu.Lock()
	f.msgs = append(f.msgs, msg)
	f.mu.Unlock()
}

func (f *fakeNotifier) Sendf(format string, args ...any) { f.Send(fmt.Sprintf(format, args...)) }

func (f *fakeNotifier) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.msgs...)
}

var errBoom = errors.New("boom")

func closes(vals ...float64) models.CandleSeries {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make(models.CandleSeries, len(vals))
	for i, v := range vals {
		out[i] = models.Candle{Timestamp: t0.Add(time.Duration(i) * 5 * time.Minute), Open: v, High: v, Low: v, Close: v}
	}
	return out
}
