package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/moznion/go-optional"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"delta_bot/internal/helper"
	"delta_bot/internal/models"
	"delta_bot/internal/modules/health"
	healthsvc "delta_bot/internal/modules/health/service"
)

const (
	defaultTradesLimit = 40
	defaultStatsDays   = 7
)

type EngineControl interface {
	Start(instruments []string, interval string, balance optional.Option[float64]) models.EngineConfig
	Stop() models.EngineConfig
	Status() models.EngineConfig
}

type TradeReader interface {
	Recent(ctx context.Context, n int) ([]models.TradeRecord, error)
	Since(ctx context.Context, t time.Time) ([]models.TradeRecord, error)
	Stats(ctx context.Context, since time.Time) (models.TradeStats, error)
}

// Server exposes engine control, ledger queries, health and metrics.
type Server struct {
	Router *gin.Engine
	engine EngineControl
	trades TradeReader
	log    *zap.Logger
	now    func() time.Time
}

func NewServer(engine EngineControl, trades TradeReader, state *healthsvc.State, log *zap.Logger) *Server {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))

	s := &Server{
		Router: r,
		engine: engine,
		trades: trades,
		log:    log,
		now:    time.Now,
	}
	health.Register(r, state)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.Router.Group("/api")
	{
		api.POST("/start", s.start)
		api.POST("/stop", s.stop)
		api.GET("/status", s.status)
		api.GET("/trades", s.recentTrades)
		api.GET("/stats", s.stats)
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

type startRequest struct {
	Symbols        []string `json:"symbols" binding:"omitempty,dive,required"`
	Interval       string   `json:"interval"`
	AccountBalance *float64 `json:"account_balance" binding:"omitempty,gte=0"`
}

type statusResponse struct {
	Running        bool     `json:"running"`
	Symbols        []string `json:"symbols"`
	Interval       string   `json:"interval"`
	AccountBalance float64  `json:"account_balance"`
}

func toStatus(cfg models.EngineConfig) statusResponse {
	return statusResponse{
		Running:        cfg.Running,
		Symbols:        cfg.Instruments,
		Interval:       cfg.Interval,
		AccountBalance: cfg.AccountBalance,
	}
}

func (s *Server) start(c *gin.Context) {
	var req startRequest
	// an empty body starts with the current configuration
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Interval != "" {
		norm, ok := helper.NormInterval(req.Interval)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported interval " + req.Interval})
			return
		}
		req.Interval = norm
	}

	balance := optional.None[float64]()
	if req.AccountBalance != nil {
		balance = optional.Some(*req.AccountBalance)
	}
	cfg := s.engine.Start(req.Symbols, req.Interval, balance)
	c.JSON(http.StatusOK, toStatus(cfg))
}

func (s *Server) stop(c *gin.Context) {
	c.JSON(http.StatusOK, toStatus(s.engine.Stop()))
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, toStatus(s.engine.Status()))
}

type tradesQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=1000"`
}

func (s *Server) recentTrades(c *gin.Context) {
	var q tradesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.Limit == 0 {
		q.Limit = defaultTradesLimit
	}

	rows, err := s.trades.Recent(c.Request.Context(), q.Limit)
	if err != nil {
		s.log.Error("recent trades", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ledger unavailable"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

type statsQuery struct {
	Days int `form:"days" binding:"omitempty,min=1,max=365"`
}

type statsResponse struct {
	models.TradeStats
	Rows []models.TradeRecord `json:"rows"`
}

func (s *Server) stats(c *gin.Context) {
	var q statsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.Days == 0 {
		q.Days = defaultStatsDays
	}
	since := s.now().UTC().Add(-time.Duration(q.Days) * 24 * time.Hour)

	rows, err := s.trades.Since(c.Request.Context(), since)
	if err != nil {
		s.log.Error("trades since", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ledger unavailable"})
		return
	}
	c.JSON(http.StatusOK, statsResponse{TradeStats: models.Summarize(rows), Rows: rows})
}
