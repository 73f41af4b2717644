package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delta_bot/internal/models"
)

func series(closes ...float64) models.CandleSeries {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make(models.CandleSeries, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{Timestamp: t0.Add(time.Duration(i) * 5 * time.Minute), Open: c, High: c, Low: c, Close: c}
	}
	return out
}

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestEMASeriesSeedsWithFirstClose(t *testing.T) {
	got := emaSeries([]float64{10, 20}, 9)
	require.Len(t, got, 2)
	assert.Equal(t, 10.0, got[0])
	assert.InDelta(t, 12.0, got[1], 1e-12)
}

func TestCrossover(t *testing.T) {
	gen := Crossover{FastSpan: 9, SlowSpan: 15, MinCandles: 2}

	cases := []struct {
		name   string
		closes []float64
		want   models.Signal
	}{
		{"bullish cross", append(flat(20, 100), 99, 100, 102), models.SignalBuy},
		{"bearish cross", append(flat(20, 100), 101, 100, 98), models.SignalSell},
		{"fast still below", append(flat(20, 100), 99, 100), models.SignalHold},
		{"flat", flat(30, 100), models.SignalHold},
		{"two candles", []float64{100, 101}, models.SignalHold},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := gen.Generate(series(tc.closes...))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCrossoverInsufficientHistory(t *testing.T) {
	gen := Crossover{FastSpan: 9, SlowSpan: 15}

	_, err := gen.Generate(series(100))
	assert.ErrorIs(t, err, models.ErrInsufficientHistory)

	_, err = gen.Generate(nil)
	assert.ErrorIs(t, err, models.ErrInsufficientHistory)

	strict := Crossover{FastSpan: 9, SlowSpan: 15, MinCandles: 30}
	_, err = strict.Generate(series(flat(29, 100)...))
	assert.ErrorIs(t, err, models.ErrInsufficientHistory)
}

func TestCrossoverIsDeterministic(t *testing.T) {
	gen := Crossover{FastSpan: 9, SlowSpan: 15}
	s := series(append(flat(20, 100), 99, 100, 102)...)

	first, err := gen.Generate(s)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := gen.Generate(s)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
