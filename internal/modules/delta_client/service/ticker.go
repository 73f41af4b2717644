package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const tickerChannel = "v2/ticker"

type tickerQuote struct {
	price float64
	at    time.Time
}

type tickerFrame struct {
	Type      string    `json:"type"`
	Symbol    string    `json:"symbol"`
	Close     flexFloat `json:"close"`
	MarkPrice flexFloat `json:"mark_price"`
}

// TickerStream keeps the latest traded price per symbol from the public
// websocket feed, reconnecting until its context ends.
type TickerStream struct {
	url     string
	symbols []string
	dialer  *websocket.Dialer
	log     *zap.Logger

	// OnConnection, if set, is called on every connect and disconnect.
	OnConnection func(connected bool)

	mu     sync.RWMutex
	quotes map[string]tickerQuote
	now    func() time.Time
}

func NewTickerStream(url string, symbols []string, log *zap.Logger) *TickerStream {
	if log == nil {
		log = zap.NewNop()
	}
	up := make([]string, 0, len(symbols))
	for _, s := range symbols {
		up = append(up, strings.ToUpper(s))
	}
	return &TickerStream{
		url:     url,
		symbols: up,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:     log.Named("ticker"),
		quotes:  make(map[string]tickerQuote),
		now:     time.Now,
	}
}

// Last returns the cached price for symbol and when it was seen.
func (s *TickerStream) Last(symbol string) (float64, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[strings.ToUpper(symbol)]
	return q.price, q.at, ok
}

func (s *TickerStream) store(symbol string, price float64) {
	s.mu.Lock()
	s.quotes[strings.ToUpper(symbol)] = tickerQuote{price: price, at: s.now()}
	s.mu.Unlock()
}

func (s *TickerStream) setConnected(v bool) {
	if s.OnConnection != nil {
		s.OnConnection(v)
	}
}

// Run blocks until ctx is done.
func (s *TickerStream) Run(ctx context.Context) {
	if len(s.symbols) == 0 {
		return
	}
	wait := backoff.NewExponentialBackOff()
	wait.InitialInterval = time.Second
	wait.MaxInterval = 30 * time.Second
	wait.MaxElapsedTime = 0

	for {
		err := s.session(ctx, wait.Reset)
		s.setConnected(false)
		if ctx.Err() != nil {
			return
		}
		d := wait.NextBackOff()
		s.log.Warn("ticker stream disconnected", zap.Error(err), zap.Duration("retry_in", d))
		select {
		case <-ctx.Done():
			return
		case <-time.After(d):
		}
	}
}

func (s *TickerStream) session(ctx context.Context, onConnected func()) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	sub := map[string]any{
		"type": "subscribe",
		"payload": map[string]any{
			"channels": []map[string]any{
				{"name": tickerChannel, "symbols": s.symbols},
			},
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}
	s.log.Info("ticker stream subscribed", zap.Strings("symbols", s.symbols))
	s.setConnected(true)
	onConnected()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var f tickerFrame
		if err := sonic.Unmarshal(msg, &f); err != nil {
			continue
		}
		if f.Type != tickerChannel || f.Symbol == "" {
			continue
		}
		price := float64(f.Close)
		if price <= 0 {
			price = float64(f.MarkPrice)
		}
		if price > 0 {
			s.store(f.Symbol, price)
		}
	}
}
