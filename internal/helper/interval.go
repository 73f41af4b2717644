package helper

import "strings"

var resolutions = map[string]string{
	"1m": "1m", "3m": "3m", "5m": "5m", "15m": "15m", "30m": "30m",
	"60m": "1h", "1h": "1h", "2h": "2h", "4h": "4h", "6h": "6h",
	"1d": "1d", "24h": "1d", "1w": "1w", "7d": "1w",
}

// NormInterval maps user input like "60M" or "candle5m" to a Delta candle
// resolution. ok is false for unsupported values.
func NormInterval(raw string) (string, bool) {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.TrimPrefix(s, "candle")
	r, ok := resolutions[s]
	return r, ok
}
