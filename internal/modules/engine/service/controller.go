package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"go.uber.org/zap"

	"delta_bot/internal/metrics"
	"delta_bot/internal/models"
)

// Settings are the fixed trading parameters of the controller.
type Settings struct {
	RiskPct      float64
	StopPct      float64
	TargetPct    float64
	MinBalance   float64
	CycleSleep   time.Duration
	Cooldown     time.Duration
	PollInterval time.Duration
	MaxPolls     int
}

type Deps struct {
	Candles  CandleSource
	Prices   PriceSource
	Orders   OrderGateway
	Signals  SignalGenerator
	Ledger   TradeLedger
	Catalog  Catalog
	Notifier Notifier
	Log      *zap.Logger
}

// Controller owns the engine state (STOPPED/RUNNING) and the single worker
// goroutine that runs trading cycles.
type Controller struct {
	candles  CandleSource
	prices   PriceSource
	orders   OrderGateway
	signals  SignalGenerator
	ledger   TradeLedger
	catalog  Catalog
	notifier Notifier
	monitor  *Monitor
	sizer    Sizer
	settings Settings
	log      *zap.Logger
	now      func() time.Time

	// OnCycle and OnRunning are optional observers.
	OnCycle   func(time.Time)
	OnRunning func(bool)

	mu      sync.Mutex
	cfg     models.EngineConfig
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

func NewController(d Deps, s Settings, sizer Sizer, defaults models.EngineConfig) *Controller {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	defaults.Running = false
	return &Controller{
		candles:  d.Candles,
		prices:   d.Prices,
		orders:   d.Orders,
		signals:  d.Signals,
		ledger:   d.Ledger,
		catalog:  d.Catalog,
		notifier: d.Notifier,
		monitor:  NewMonitor(d.Prices, s.PollInterval, s.MaxPolls, log),
		sizer:    sizer,
		settings: s,
		log:      log.Named("engine"),
		now:      time.Now,
		cfg:      defaults.Clone(),
	}
}

// Start applies the given parameters and launches the worker. While running
// it only updates the configuration. Empty instruments or interval keep the
// current values; a None balance keeps the current balance.
func (c *Controller) Start(instruments []string, interval string, balance optional.Option[float64]) models.EngineConfig {
	c.mu.Lock()
	if syms := normalizeSymbols(instruments); len(syms) > 0 {
		c.cfg.Instruments = syms
	}
	if interval = strings.TrimSpace(interval); interval != "" {
		c.cfg.Interval = interval
	}
	if balance.IsSome() {
		c.cfg.AccountBalance = balance.Unwrap()
	}

	if c.running {
		snap := c.cfg.Clone()
		c.mu.Unlock()
		c.log.Info("engine already running, config updated",
			zap.Strings("symbols", snap.Instruments),
			zap.String("interval", snap.Interval))
		return snap
	}

	prev := c.done
	stop := make(chan struct{})
	done := make(chan struct{})
	c.stopCh, c.done = stop, done
	c.running = true
	c.cfg.Running = true
	snap := c.cfg.Clone()
	c.mu.Unlock()

	c.setRunning(true)
	c.log.Info("engine started",
		zap.Strings("symbols", snap.Instruments),
		zap.String("interval", snap.Interval),
		zap.Float64("balance", snap.AccountBalance))

	go c.loop(stop, done, prev)
	return snap
}

// Stop signals the worker; the current attempt finishes its exit path.
func (c *Controller) Stop() models.EngineConfig {
	c.mu.Lock()
	if c.running {
		close(c.stopCh)
		c.running = false
		c.cfg.Running = false
	}
	snap := c.cfg.Clone()
	c.mu.Unlock()

	c.setRunning(false)
	c.log.Info("engine stop requested")
	return snap
}

// Status returns a snapshot of the current configuration.
func (c *Controller) Status() models.EngineConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Clone()
}

// Shutdown stops the engine and waits for the worker or ctx.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.Stop()
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) setRunning(v bool) {
	if v {
		metrics.Running.Set(1)
	} else {
		metrics.Running.Set(0)
	}
	if c.OnRunning != nil {
		c.OnRunning(v)
	}
}

func (c *Controller) loop(stop, done chan struct{}, prev <-chan struct{}) {
	defer close(done)

	if prev != nil {
		select {
		case <-prev:
		case <-stop:
			return
		}
	}

	ctx := context.Background()
	for {
		select {
		case <-stop:
			c.log.Info("engine stopped")
			return
		default:
		}

		wait := c.Cycle(ctx, stop)
		if !sleep(wait, stop) {
			c.log.Info("engine stopped")
			return
		}
	}
}

// Cycle runs one pass over the configured instruments and returns how long
// to wait before the next one.
func (c *Controller) Cycle(ctx context.Context, stop <-chan struct{}) time.Duration {
	cfg := c.Status()

	if cfg.AccountBalance < c.settings.MinBalance {
		metrics.SkippedCycles.WithLabelValues("min_balance").Inc()
		c.log.Info("balance below minimum, cooling down",
			zap.Float64("balance", cfg.AccountBalance),
			zap.Float64("min_balance", c.settings.MinBalance))
		return c.settings.Cooldown
	}

	for _, sym := range cfg.Instruments {
		if stopped(stop) {
			return 0
		}
		if err := c.attempt(ctx, stop, cfg, sym); err != nil {
			kind := models.FailureKind(err)
			metrics.Failures.WithLabelValues(kind).Inc()
			c.log.Warn("instrument skipped",
				zap.String("symbol", sym),
				zap.String("failure_kind", kind),
				zap.Error(err))
		}
	}

	metrics.Cycles.Inc()
	if c.OnCycle != nil {
		c.OnCycle(c.now())
	}
	return c.settings.CycleSleep
}

// attempt runs one trading attempt for sym. Returned errors abandoned the
// instrument before a position existed; failures after entry are reported
// here and not returned.
func (c *Controller) attempt(ctx context.Context, stop <-chan struct{}, cfg models.EngineConfig, sym string) (err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "engine.attempt")
	span.SetTag("symbol", sym)
	defer func() {
		if err != nil {
			ext.Error.Set(span, true)
			span.SetTag("failure_kind", models.FailureKind(err))
		}
		span.Finish()
	}()

	inst, err := c.catalog.Lookup(sym)
	if err != nil {
		return err
	}

	series, err := c.candles.Candles(ctx, inst, cfg.Interval)
	if err != nil {
		return fmt.Errorf("candles %s: %w", sym, err)
	}

	sig, err := c.signals.Generate(series)
	if err != nil {
		return fmt.Errorf("signal %s: %w", sym, err)
	}
	span.SetTag("signal", string(sig))

	side, ok := sig.Side()
	if !ok {
		c.log.Debug("hold", zap.String("symbol", sym))
		return nil
	}

	last, _ := series.Last()
	entry := last.Close
	stopPx, targetPx := Levels(side, entry, c.settings.StopPct, c.settings.TargetPct)
	qty := c.sizer.ForInstrument(inst).Size(cfg.AccountBalance, entry, stopPx, c.settings.RiskPct)

	entryRes, err := c.orders.Submit(ctx, models.OrderRequest{
		ProductID: inst.ProductID,
		Symbol:    inst.Symbol,
		Side:      side,
		Size:      qty,
		Kind:      models.OrderMarket,
	})
	if err == nil && !entryRes.Accepted {
		err = models.ErrOrderRejected
	}
	if err != nil {
		metrics.Orders.WithLabelValues("entry", string(side), "rejected").Inc()
		return fmt.Errorf("entry %s %s: %w", side, sym, err)
	}
	metrics.Orders.WithLabelValues("entry", string(side), "accepted").Inc()

	pos := models.OpenPosition{
		Symbol:      inst.Symbol,
		ProductID:   inst.ProductID,
		Side:        side,
		EntryPrice:  entry,
		StopPrice:   stopPx,
		TargetPrice: targetPx,
		Quantity:    qty,
		OpenedAt:    c.now(),
	}
	c.log.Info("position opened",
		zap.String("symbol", pos.Symbol),
		zap.String("side", string(side)),
		zap.Float64("entry", entry),
		zap.Float64("stop", stopPx),
		zap.Float64("target", targetPx),
		zap.Float64("qty", qty),
		zap.String("order_id", entryRes.OrderID))

	result := c.monitor.Watch(ctx, pos, inst, cfg.Interval, stop)
	c.close(ctx, pos, inst, cfg.Interval, result)
	return nil
}

// close sends the exit order and journals the trade. It ignores ctx
// cancellation: an open position is always closed.
func (c *Controller) close(ctx context.Context, pos models.OpenPosition, inst models.Instrument, interval string, result MonitorResult) {
	ctx = context.WithoutCancel(ctx)
	exitSide := pos.Side.Opposite()

	if !result.Observed {
		result = c.finalPrice(ctx, pos, inst, interval, result)
	}

	status := models.TradeClosed
	exitRes, err := c.orders.Submit(ctx, models.OrderRequest{
		ProductID: pos.ProductID,
		Symbol:    pos.Symbol,
		Side:      exitSide,
		Size:      pos.Quantity,
		Kind:      models.OrderMarket,
	})
	if err == nil && !exitRes.Accepted {
		err = models.ErrOrderRejected
	}
	if err != nil {
		status = models.TradeExitRejected
		metrics.Orders.WithLabelValues("exit", string(exitSide), "rejected").Inc()
		metrics.Failures.WithLabelValues(models.FailureKind(err)).Inc()
		c.log.Error("exit order rejected, position may still be open",
			zap.String("symbol", pos.Symbol),
			zap.String("side", string(exitSide)),
			zap.Float64("qty", pos.Quantity),
			zap.String("failure_kind", models.FailureKind(err)),
			zap.Error(err))
		c.alert("EXIT REJECTED %s %s qty=%.6f: %v. Position may still be open.",
			pos.Symbol, exitSide, pos.Quantity, err)
	} else {
		metrics.Orders.WithLabelValues("exit", string(exitSide), "accepted").Inc()
	}

	if !result.Observed {
		kind := unobservedKind(result)
		metrics.Failures.WithLabelValues(kind).Inc()
		c.log.Warn("no exit price observed, closing at entry",
			zap.String("symbol", pos.Symbol),
			zap.Int("polls", result.Polls),
			zap.String("exit_reason", string(result.Reason)),
			zap.String("failure_kind", kind))
		if status == models.TradeClosed {
			status = models.TradePriceUnobserved
		}
		if result.Polls == 0 {
			c.alert("%s: closed before any price poll and the final price fetch failed, trade recorded at entry price %.4f",
				pos.Symbol, pos.EntryPrice)
		} else {
			c.alert("%s: every price poll failed, trade recorded at entry price %.4f", pos.Symbol, pos.EntryPrice)
		}
	}

	rec := models.NewTradeRecord(c.now(), pos, result.ExitPrice, result.Reason, status)
	if err := c.ledger.Append(ctx, &rec); err != nil {
		if !errors.Is(err, models.ErrPersistence) {
			err = fmt.Errorf("%w: %w", models.ErrPersistence, err)
		}
		metrics.Failures.WithLabelValues(models.FailureKind(err)).Inc()
		c.log.Error("trade not persisted",
			zap.String("failure_kind", models.FailureKind(err)),
			zap.Time("ts_utc", rec.Timestamp),
			zap.String("symbol", rec.Symbol),
			zap.String("side", string(rec.Side)),
			zap.Float64("entry", rec.EntryPrice),
			zap.Float64("exit", rec.ExitPrice),
			zap.Float64("qty", rec.Quantity),
			zap.Float64("pnl", rec.PnL),
			zap.String("exit_reason", string(rec.ExitReason)),
			zap.String("status", string(rec.Status)),
			zap.Error(err))
		c.alert("TRADE NOT PERSISTED %s %s entry=%.4f exit=%.4f qty=%.6f pnl=%.4f: %v",
			rec.Symbol, rec.Side, rec.EntryPrice, rec.ExitPrice, rec.Quantity, rec.PnL, err)
		return
	}

	metrics.Trades.WithLabelValues(string(rec.Status)).Inc()
	c.log.Info("trade recorded",
		zap.Int64("id", rec.ID),
		zap.String("symbol", rec.Symbol),
		zap.String("side", string(rec.Side)),
		zap.String("exit_reason", string(rec.ExitReason)),
		zap.Float64("pnl", rec.PnL))
	c.alert("%s %s closed (%s): entry=%.4f exit=%.4f qty=%.6f pnl=%.4f",
		rec.Symbol, rec.Side, rec.ExitReason, rec.EntryPrice, rec.ExitPrice, rec.Quantity, rec.PnL)
}

// finalPrice makes one last price fetch for a position the monitor never
// priced. The exit reason is kept.
func (c *Controller) finalPrice(ctx context.Context, pos models.OpenPosition, inst models.Instrument, interval string, result MonitorResult) MonitorResult {
	if c.prices == nil {
		return result
	}
	px, err := c.prices.LastPrice(ctx, inst, interval)
	if err != nil || px <= 0 {
		c.log.Warn("final price fetch failed",
			zap.String("symbol", pos.Symbol),
			zap.Error(err))
		return result
	}
	result.ExitPrice = px
	result.Observed = true
	return result
}

// unobservedKind separates a position closed before its first poll from
// one whose every poll failed.
func unobservedKind(result MonitorResult) string {
	if result.Polls == 0 {
		return "price_unpolled"
	}
	return "price_unobserved"
}

func (c *Controller) alert(format string, args ...any) {
	if c.notifier != nil {
		c.notifier.Sendf(format, args...)
	}
}

func normalizeSymbols(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func stopped(stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}

// sleep waits d unless stop closes first; it reports whether to continue.
func sleep(d time.Duration, stop <-chan struct{}) bool {
	if d <= 0 {
		return !stopped(stop)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-stop:
		return false
	case <-t.C:
		return true
	}
}
