package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"delta_bot/internal/modules/config"
)

const userAgent = "delta-engine/1.0"

// Client talks to the Delta Exchange REST API.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	log     *zap.Logger

	baseURL     string
	apiKey      string
	apiSecret   string
	candleLimit int

	now func() time.Time
}

func NewClient(cfg *config.Config, log *zap.Logger) *Client {
	return newClient(cfg.Delta, log)
}

func newClient(cfg config.DeltaConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	limit := cfg.CandleLimit
	if limit < 2 {
		limit = 60
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:        &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(rate.Limit(rps), burst),
		log:         log.Named("delta"),
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		apiSecret:   cfg.APISecret,
		candleLimit: limit,
		now:         time.Now,
	}
}

// sign is hex(HMAC-SHA256(secret, method+timestamp+path+body)).
func (c *Client) sign(method, ts, path, body string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(strings.ToUpper(method) + ts + path + body))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Client) generateRequest(ctx context.Context, method, requestPath string, body []byte, signed bool) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, rd)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if signed {
		ts := strconv.FormatInt(c.now().UnixMilli(), 10)
		req.Header.Set("api-key", c.apiKey)
		req.Header.Set("timestamp", ts)
		req.Header.Set("signature", c.sign(method, ts, requestPath, string(body)))
	}
	return req, nil
}

// do waits for the rate limiter, sends req and returns status and body.
func (c *Client) do(req *http.Request) (int, []byte, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return 0, nil, fmt.Errorf("rate limit: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, data, nil
}
