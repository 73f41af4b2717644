package postgres

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"

	"delta_bot/internal/modules/config"
	"delta_bot/pkg/db"
)

const connectTimeout = 10 * time.Second

// NewTxManager connects a pool for dsn and checks it with a ping.
func NewTxManager(ctx context.Context, dsn string) (*db.PgTxManager, error) {
	poolMaster, err := db.NewPool(ctx, db.PoolConfig{
		DSN: dsn,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poolMaster: %w", err)
	}

	if err := poolMaster.Ping(ctx); err != nil {
		poolMaster.Close()
		return nil, err
	}

	return db.NewPgTxManager(poolMaster), nil
}

// Module provides the pool only when the ledger runs on postgres; otherwise
// the provided manager is nil.
func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(lc fx.Lifecycle, cfg *config.Config) (*db.PgTxManager, error) {
				if cfg.Ledger.Driver != "postgres" {
					return nil, nil
				}
				ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
				defer cancel()

				tm, err := NewTxManager(ctx, cfg.Ledger.DSN)
				if err != nil {
					return nil, err
				}
				lc.Append(fx.Hook{
					OnStop: func(context.Context) error {
						tm.Close()
						return nil
					},
				})
				return tm, nil
			},
		),
	)
}
