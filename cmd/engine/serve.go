package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"delta_bot/internal/modules/api"
	"delta_bot/internal/modules/bootstrap"
	"delta_bot/internal/modules/config"
	"delta_bot/internal/modules/delta_client"
	"delta_bot/internal/modules/engine"
	"delta_bot/internal/modules/health"
	"delta_bot/internal/modules/ledger"
	"delta_bot/internal/modules/postgres"
	"delta_bot/internal/modules/strategy"
	"delta_bot/internal/notify"
	"delta_bot/pkg/logger"
	"delta_bot/pkg/tracing"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the engine with its HTTP control API",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "autostart",
				Usage: "start trading at boot with the configured defaults",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if name := cmd.String("config"); name != "" {
				_ = os.Setenv("CONFIG_FILE", name)
			}
			autostart := cmd.Bool("autostart")

			app := fx.New(
				fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
					return &fxevent.ZapLogger{Logger: l.Named("fx")}
				}),
				config.Module(),
				fx.Decorate(func(cfg *config.Config) *config.Config {
					if autostart {
						cfg.Engine.Autostart = true
					}
					return cfg
				}),
				fx.Provide(newLogger),
				fx.Invoke(initTracing),
				health.Module(),
				postgres.Module(),
				ledger.Module(),
				delta_client.Module(),
				strategy.Module(),
				notify.Module(),
				bootstrap.Module(),
				engine.Module(),
				api.Module(),
			)
			app.Run()
			return app.Err()
		},
	}
}

func newLogger(lc fx.Lifecycle, cfg *config.Config) (*zap.Logger, error) {
	l, err := logger.New(cfg.Service.LogLevel, cfg.Service.Name)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = l.Sync()
			return nil
		},
	})
	return l, nil
}

func initTracing(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) error {
	tracing.SetServiceName(cfg.Service.Name)
	_, closeTracer, err := tracing.InitTracer(cfg.Tracing)
	if err != nil {
		return err
	}
	if cfg.Tracing.Enabled {
		log.Info("tracing enabled", zap.String("host", cfg.Tracing.Host), zap.Int("port", cfg.Tracing.Port))
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closeTracer()
			return nil
		},
	})
	return nil
}
