package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delta_bot/internal/models"
	"delta_bot/internal/modules/config"
)

func testClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return newClient(config.DeltaConfig{
		BaseURL:     srv.URL,
		APIKey:      "key",
		APISecret:   "secret",
		Timeout:     2 * time.Second,
		RateLimit:   1000,
		Burst:       10,
		CandleLimit: 60,
	}, nil)
}

func TestGetCandlesSortsAndDedupes(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/candles", r.URL.Path)
		assert.Equal(t, "3136", r.URL.Query().Get("symbol"))
		assert.Equal(t, "5m", r.URL.Query().Get("resolution"))
		assert.Equal(t, "60", r.URL.Query().Get("limit"))
		_, _ = io.WriteString(w, `{"success":true,"result":[
			{"time":1700000600,"open":"3","high":"3","low":"3","close":"3","volume":1},
			{"time":1700000000,"open":1,"high":1,"low":1,"close":1,"volume":1},
			{"timestamp":1700000300,"open":2,"high":2,"low":2,"close":2,"volume":1},
			{"time":1700000600,"open":3,"high":3,"low":3,"close":3.5,"volume":1}
		]}`)
	}))

	s, err := c.Candles(context.Background(), models.Instrument{Symbol: "ETHUSD", ProductID: 3136}, "5m")
	require.NoError(t, err)
	require.Len(t, s, 3)
	assert.Equal(t, 1.0, s[0].Close)
	assert.Equal(t, 2.0, s[1].Close)
	assert.Equal(t, time.Unix(1700000600, 0).UTC(), s[2].Timestamp)
	for i := 1; i < len(s); i++ {
		assert.True(t, s[i-1].Timestamp.Before(s[i].Timestamp))
	}
}

func TestGetCandlesFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"http error": func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		},
		"empty result": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"success":true,"result":[]}`)
		},
		"bad json": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"result":`)
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			c := testClient(t, h)
			_, err := c.GetCandles(context.Background(), 27, "1m", 10)
			assert.ErrorIs(t, err, models.ErrDataFetch)
		})
	}
}

func TestSubmitSignsAndSendsMarketOrder(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/orders", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		ts := r.Header.Get("timestamp")
		mac := hmac.New(sha256.New, []byte("secret"))
		mac.Write([]byte("POST" + ts + "/v2/orders" + string(body)))
		assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), r.Header.Get("signature"))
		assert.Equal(t, "key", r.Header.Get("api-key"))

		var got map[string]any
		assert.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, float64(3136), got["product_id"])
		assert.Equal(t, "buy", got["side"])
		assert.Equal(t, "market", got["order_type"])
		assert.Equal(t, 0.15, got["size"])
		assert.NotEmpty(t, got["client_order_id"])

		_, _ = io.WriteString(w, `{"success":true,"result":{"id":991,"state":"closed"}}`)
	}))
	c.now = func() time.Time { return time.UnixMilli(1700000000123) }

	res, err := c.Submit(context.Background(), models.OrderRequest{
		ProductID: 3136, Symbol: "ETHUSD", Side: models.SideBuy, Size: 0.15,
	})
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, "991", res.OrderID)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.NotEmpty(t, res.ClientID)
	assert.EqualValues(t, 1, calls.Load())
}

func TestSubmitRejectionIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"success":false,"error":{"code":"insufficient_margin"}}`)
	}))

	res, err := c.Submit(context.Background(), models.OrderRequest{
		ProductID: 27, Symbol: "BTCUSD", Side: models.SideSell, Size: 1,
	})
	assert.ErrorIs(t, err, models.ErrOrderRejected)
	assert.False(t, res.Accepted)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.EqualValues(t, 1, calls.Load())
}

func TestSubmitRejectsNonPositiveSize(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected")
	}))
	_, err := c.Submit(context.Background(), models.OrderRequest{ProductID: 27, Side: models.SideBuy})
	assert.ErrorIs(t, err, models.ErrOrderRejected)
}
