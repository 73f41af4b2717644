package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickerStreamCachesPrices(t *testing.T) {
	up := websocket.Upgrader{}
	subscribed := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub map[string]any
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		subscribed <- sub

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"subscriptions"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"v2/ticker","symbol":"ETHUSD","close":2001.5,"mark_price":"2001.4"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"v2/ticker","symbol":"BTCUSD","close":0,"mark_price":"43000"}`))

		// hold the connection until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	s := NewTickerStream("ws"+strings.TrimPrefix(srv.URL, "http"), []string{"ethusd", "btcusd"}, nil)
	connected := make(chan bool, 4)
	s.OnConnection = func(v bool) { connected <- v }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	select {
	case sub := <-subscribed:
		assert.Equal(t, "subscribe", sub["type"])
	case <-time.After(2 * time.Second):
		t.Fatal("no subscription")
	}
	assert.True(t, <-connected)

	require.Eventually(t, func() bool {
		_, _, okEth := s.Last("ETHUSD")
		_, _, okBtc := s.Last("BTCUSD")
		return okEth && okBtc
	}, 2*time.Second, 10*time.Millisecond)

	px, _, _ := s.Last("ethusd")
	assert.Equal(t, 2001.5, px)
	px, _, _ = s.Last("BTCUSD")
	assert.Equal(t, 43000.0, px)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop")
	}
}
