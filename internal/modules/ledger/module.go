package ledger

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"delta_bot/internal/modules/config"
	"delta_bot/internal/modules/ledger/service"
	"delta_bot/pkg/db"
)

const openTimeout = 10 * time.Second

// Open returns the store for the configured driver. tm is only used for
// postgres.
func Open(ctx context.Context, cfg *config.Config, tm *db.PgTxManager) (service.Store, error) {
	if cfg.Ledger.Driver == "postgres" {
		return service.NewPgStore(ctx, tm)
	}
	return service.NewSQLiteStore(ctx, cfg.Ledger.DSN)
}

func Module() fx.Option {
	return fx.Module("ledger",
		fx.Provide(
			func(lc fx.Lifecycle, cfg *config.Config, tm *db.PgTxManager, log *zap.Logger) (service.Store, error) {
				ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
				defer cancel()

				store, err := Open(ctx, cfg, tm)
				if err != nil {
					return nil, err
				}
				log.Info("ledger opened", zap.String("driver", cfg.Ledger.Driver))

				lc.Append(fx.Hook{
					OnStop: func(context.Context) error {
						if cfg.Ledger.Driver == "postgres" {
							// pool is closed by the postgres module
							return nil
						}
						return store.Close()
					},
				})
				return store, nil
			},
		),
	)
}
