package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/moznion/go-optional"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"delta_bot/internal/models"
	"delta_bot/internal/modules/config"
	delta "delta_bot/internal/modules/delta_client/service"
	"delta_bot/internal/modules/engine/service"
	health "delta_bot/internal/modules/health/service"
	ledger "delta_bot/internal/modules/ledger/service"
	strategy "delta_bot/internal/modules/strategy/service"
	"delta_bot/internal/notify"
)

type Params struct {
	fx.In

	Config   *config.Config
	Catalog  *config.Catalog
	Client   *delta.Client
	Candles  *delta.RetryingCandles
	Prices   *delta.PriceFeed
	Signals  strategy.Crossover
	Ledger   ledger.Store
	Notifier notify.Notifier
	State    *health.State
	Log      *zap.Logger
}

func NewController(p Params) *service.Controller {
	cfg := p.Config
	c := service.NewController(
		service.Deps{
			Candles:  p.Candles,
			Prices:   p.Prices,
			Orders:   p.Client,
			Signals:  p.Signals,
			Ledger:   p.Ledger,
			Catalog:  p.Catalog,
			Notifier: p.Notifier,
			Log:      p.Log,
		},
		service.Settings{
			RiskPct:      cfg.Risk.RiskPercent,
			StopPct:      cfg.Risk.StopLossPercent,
			TargetPct:    cfg.Risk.TargetPercent,
			MinBalance:   cfg.Risk.MinBalance,
			CycleSleep:   cfg.Engine.CycleSleep,
			Cooldown:     cfg.Engine.Cooldown,
			PollInterval: cfg.Engine.PollInterval,
			MaxPolls:     cfg.Engine.MaxPolls,
		},
		service.NewSizer(cfg.Risk.StopFloorPercent),
		models.EngineConfig{
			Instruments:    cfg.Engine.Symbols,
			Interval:       cfg.Engine.Interval,
			AccountBalance: cfg.Engine.Balance,
		},
	)
	c.OnCycle = p.State.TouchCycle
	c.OnRunning = p.State.SetEngineRunning
	return c
}

// registerCommands exposes the controller to the Telegram chat.
func registerCommands(n notify.Notifier, c *service.Controller) {
	tg, ok := n.(*notify.Telegram)
	if !ok {
		return
	}
	tg.Handle("status", func(context.Context, string) string {
		return describe(c.Status())
	})
	tg.Handle("start", func(_ context.Context, args string) string {
		return describe(c.Start(strings.Fields(args), "", optional.None[float64]()))
	})
	tg.Handle("stop", func(context.Context, string) string {
		return describe(c.Stop())
	})
}

func describe(cfg models.EngineConfig) string {
	state := "stopped"
	if cfg.Running {
		state = "running"
	}
	return fmt.Sprintf("engine %s: %s @ %s, balance %.2f",
		state, strings.Join(cfg.Instruments, ","), cfg.Interval, cfg.AccountBalance)
}

func Module() fx.Option {
	return fx.Module("engine",
		fx.Provide(
			NewController,
		),
		fx.Invoke(registerCommands),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, c *service.Controller, state *health.State) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					state.SetReady(true)
					if cfg.Engine.Autostart {
						c.Start(nil, "", optional.None[float64]())
					}
					return nil
				},
				OnStop: func(ctx context.Context) error {
					state.SetReady(false)
					return c.Shutdown(ctx)
				},
			})
		}),
	)
}
