package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"delta_bot/internal/modules/config"
	engine "delta_bot/internal/modules/engine/service"
	healthsvc "delta_bot/internal/modules/health/service"
	ledger "delta_bot/internal/modules/ledger/service"
)

func newServer(c *engine.Controller, store ledger.Store, state *healthsvc.State, log *zap.Logger) *Server {
	return NewServer(c, store, state, log.Named("api"))
}

func RunHTTP(lc fx.Lifecycle, cfg *config.Config, s *Server, log *zap.Logger) {
	addr := fmt.Sprintf(":%d", cfg.Service.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			log.Info("http server listening", zap.String("addr", addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	gin.SetMode(gin.ReleaseMode)
	return fx.Module("api",
		fx.Provide(
			newServer,
		),
		fx.Invoke(RunHTTP),
	)
}
