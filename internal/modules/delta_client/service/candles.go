package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/bytedance/sonic"

	"delta_bot/internal/models"
)

type candleRow struct {
	Time      flexFloat `json:"time"`
	Timestamp flexFloat `json:"timestamp"`
	Open      flexFloat `json:"open"`
	High      flexFloat `json:"high"`
	Low       flexFloat `json:"low"`
	Close     flexFloat `json:"close"`
	Volume    flexFloat `json:"volume"`
}

type candlesResponse struct {
	Success *bool       `json:"success"`
	Result  []candleRow `json:"result"`
}

// GetCandles fetches up to limit candles for productID. The result is sorted
// ascending and de-duplicated by timestamp; any failure wraps ErrDataFetch.
func (c *Client) GetCandles(ctx context.Context, productID int, resolution string, limit int) (models.CandleSeries, error) {
	q := url.Values{}
	q.Set("symbol", strconv.Itoa(productID))
	q.Set("resolution", resolution)
	q.Set("limit", strconv.Itoa(limit))

	req, err := c.generateRequest(ctx, http.MethodGet, "/v2/candles?"+q.Encode(), nil, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDataFetch, err)
	}
	status, data, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDataFetch, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: http %d: %s", models.ErrDataFetch, status, truncate(data))
	}

	var payload candlesResponse
	if err := sonic.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", models.ErrDataFetch, err)
	}
	if payload.Success != nil && !*payload.Success {
		return nil, fmt.Errorf("%w: unsuccessful response: %s", models.ErrDataFetch, truncate(data))
	}

	series := normalize(payload.Result)
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: no candles for product %d", models.ErrDataFetch, productID)
	}
	return series, nil
}

// Candles fetches the configured history depth for inst.
func (c *Client) Candles(ctx context.Context, inst models.Instrument, interval string) (models.CandleSeries, error) {
	return c.GetCandles(ctx, inst.ProductID, interval, c.candleLimit)
}

func normalize(rows []candleRow) models.CandleSeries {
	byTS := make(map[int64]models.Candle, len(rows))
	for _, r := range rows {
		raw := float64(r.Time)
		if raw == 0 {
			raw = float64(r.Timestamp)
		}
		if raw <= 0 || r.Close <= 0 {
			continue
		}
		ts := toTime(raw)
		byTS[ts.UnixNano()] = models.Candle{
			Timestamp: ts,
			Open:      float64(r.Open),
			High:      float64(r.High),
			Low:       float64(r.Low),
			Close:     float64(r.Close),
			Volume:    float64(r.Volume),
		}
	}

	out := make(models.CandleSeries, 0, len(byTS))
	for _, c := range byTS {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// toTime reads epoch seconds, milliseconds or microseconds.
func toTime(v float64) time.Time {
	n := int64(v)
	switch {
	case n > 1e15:
		return time.UnixMicro(n).UTC()
	case n > 1e12:
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}

func truncate(b []byte) string {
	const limit = 256
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
