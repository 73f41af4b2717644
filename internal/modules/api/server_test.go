package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"delta_bot/internal/models"
	healthsvc "delta_bot/internal/modules/health/service"
)

type fakeEngine struct {
	cfg     models.EngineConfig
	starts  int
	balance optional.Option[float64]
}

func (f *fakeEngine) Start(instruments []string, interval string, balance optional.Option[float64]) models.EngineConfig {
	f.starts++
	f.balance = balance
	if len(instruments) > 0 {
		f.cfg.Instruments = instruments
	}
	if interval != "" {
		f.cfg.Interval = interval
	}
	if balance.IsSome() {
		f.cfg.AccountBalance = balance.Unwrap()
	}
	f.cfg.Running = true
	return f.cfg
}

func (f *fakeEngine) Stop() models.EngineConfig {
	f.cfg.Running = false
	return f.cfg
}

func (f *fakeEngine) Status() models.EngineConfig { return f.cfg }

type fakeTrades struct {
	rows      []models.TradeRecord
	lastLimit int
	lastSince time.Time
}

func (f *fakeTrades) Recent(_ context.Context, n int) ([]models.TradeRecord, error) {
	f.lastLimit = n
	return f.rows, nil
}

func (f *fakeTrades) Since(_ context.Context, t time.Time) ([]models.TradeRecord, error) {
	f.lastSince = t
	return f.rows, nil
}

func (f *fakeTrades) Stats(context.Context, time.Time) (models.TradeStats, error) {
	return models.Summarize(f.rows), nil
}

func newTestServer() (*Server, *fakeEngine, *fakeTrades) {
	gin.SetMode(gin.TestMode)
	eng := &fakeEngine{cfg: models.EngineConfig{Instruments: []string{"ETHUSD"}, Interval: "5m", AccountBalance: 300}}
	trades := &fakeTrades{rows: []models.TradeRecord{
		{ID: 2, Symbol: "ETHUSD", Side: models.SideBuy, EntryPrice: 100, ExitPrice: 102, Quantity: 1, PnL: 2},
		{ID: 1, Symbol: "BTCUSD", Side: models.SideSell, EntryPrice: 100, ExitPrice: 101, Quantity: 1, PnL: -1},
	}}
	s := NewServer(eng, trades, healthsvc.NewState(), zap.NewNop())
	return s, eng, trades
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	}
	var req *http.Request
	if rd != nil {
		req = httptest.NewRequest(method, path, rd)
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func TestStartWithBody(t *testing.T) {
	s, eng, _ := newTestServer()

	w := do(s, http.MethodPost, "/api/start", `{"symbols":["BTCUSD"],"interval":"1m","account_balance":500}`)
	require.Equal(t, http.StatusOK, w.Code)

	var got statusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.Running)
	assert.Equal(t, []string{"BTCUSD"}, got.Symbols)
	assert.Equal(t, "1m", got.Interval)
	assert.Equal(t, 500.0, got.AccountBalance)
	assert.True(t, eng.balance.IsSome())
}

func TestStartWithoutBodyKeepsBalance(t *testing.T) {
	s, eng, _ := newTestServer()

	w := do(s, http.MethodPost, "/api/start", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, eng.balance.IsNone())
	assert.Equal(t, 300.0, eng.cfg.AccountBalance)
}

func TestStartRejectsInvalidBody(t *testing.T) {
	s, eng, _ := newTestServer()

	w := do(s, http.MethodPost, "/api/start", `{"account_balance":-1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(s, http.MethodPost, "/api/start", `{"interval":"7s"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, eng.starts)
}

func TestStopAndStatus(t *testing.T) {
	s, _, _ := newTestServer()
	do(s, http.MethodPost, "/api/start", "")

	w := do(s, http.MethodPost, "/api/stop", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"running":false`)

	w = do(s, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got statusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.False(t, got.Running)
	assert.Equal(t, []string{"ETHUSD"}, got.Symbols)
	assert.Equal(t, 300.0, got.AccountBalance)
}

func TestTradesDefaultsAndLimit(t *testing.T) {
	s, _, trades := newTestServer()

	w := do(s, http.MethodGet, "/api/trades", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 40, trades.lastLimit)

	var rows []models.TradeRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	assert.Len(t, rows, 2)

	do(s, http.MethodGet, "/api/trades?limit=5", "")
	assert.Equal(t, 5, trades.lastLimit)

	w = do(s, http.MethodGet, "/api/trades?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatsWindow(t *testing.T) {
	s, _, trades := newTestServer()
	now := time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	w := do(s, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, trades.lastSince.Equal(now.Add(-7*24*time.Hour)))

	var got struct {
		TotalPnL    float64              `json:"total_pnl"`
		TotalTrades int                  `json:"total_trades"`
		Wins        int                  `json:"wins"`
		Losses      int                  `json:"losses"`
		Rows        []models.TradeRecord `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 1.0, got.TotalPnL)
	assert.Equal(t, 2, got.TotalTrades)
	assert.Equal(t, 1, got.Wins)
	assert.Equal(t, 1, got.Losses)
	assert.Len(t, got.Rows, 2)

	do(s, http.MethodGet, "/api/stats?days=1", "")
	assert.True(t, trades.lastSince.Equal(now.Add(-24*time.Hour)))
}

func TestMetricsAndHealthMounted(t *testing.T) {
	s, _, _ := newTestServer()

	w := do(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "go_goroutines"))

	w = do(s, http.MethodGet, "/livez", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
