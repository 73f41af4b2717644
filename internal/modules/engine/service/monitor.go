package service

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"delta_bot/internal/models"
)

type MonitorState string

const (
	StateEntered    MonitorState = "ENTERED"
	StateMonitoring MonitorState = "MONITORING"
	StateStopHit    MonitorState = "STOP_HIT"
	StateTargetHit  MonitorState = "TARGET_HIT"
	StateTimedOut   MonitorState = "TIMED_OUT"
	StateClosed     MonitorState = "CLOSED"
)

// MonitorResult tells the controller how and where to close.
type MonitorResult struct {
	State  MonitorState
	Reason models.ExitReason
	// ExitPrice is the triggering or last observed price, or the entry price
	// when no poll succeeded (Observed=false).
	ExitPrice float64
	Observed  bool
	Polls     int
	Failures  int
}

// Monitor polls the price of an open position until stop, target or the
// attempt budget.
type Monitor struct {
	prices   PriceSource
	interval time.Duration
	maxPolls int
	log      *zap.Logger
}

func NewMonitor(prices PriceSource, interval time.Duration, maxPolls int, log *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if maxPolls <= 0 {
		maxPolls = 24
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Monitor{prices: prices, interval: interval, maxPolls: maxPolls, log: log}
}

// Watch blocks until an exit condition. A closed stop channel or a done ctx
// ends it at the next poll boundary with reason interrupted.
func (m *Monitor) Watch(ctx context.Context, pos models.OpenPosition, inst models.Instrument, interval string, stop <-chan struct{}) MonitorResult {
	res := MonitorResult{State: StateEntered}
	last := optional.None[float64]()

	finish := func(state MonitorState, reason models.ExitReason, px optional.Option[float64]) MonitorResult {
		res.State = state
		res.Reason = reason
		res.Observed = px.IsSome()
		res.ExitPrice = pos.EntryPrice
		if px.IsSome() {
			res.ExitPrice = px.Unwrap()
		}
		return res
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	res.State = StateMonitoring
	for res.Polls < m.maxPolls {
		select {
		case <-ctx.Done():
			return finish(StateTimedOut, models.ExitInterrupted, last)
		case <-stop:
			return finish(StateTimedOut, models.ExitInterrupted, last)
		case <-ticker.C:
		}

		res.Polls++
		px, err := m.prices.LastPrice(ctx, inst, interval)
		if err != nil || px <= 0 {
			res.Failures++
			m.log.Debug("price poll failed",
				zap.String("symbol", pos.Symbol),
				zap.Int("poll", res.Polls),
				zap.Error(err))
			continue
		}
		last = optional.Some(px)

		if pos.StopHit(px) {
			return finish(StateStopHit, models.ExitStop, last)
		}
		if pos.TargetHit(px) {
			return finish(StateTargetHit, models.ExitTarget, last)
		}
	}
	return finish(StateTimedOut, models.ExitTimeout, last)
}
