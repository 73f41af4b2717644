package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"delta_bot/internal/models"
)

func TestSizeScenario(t *testing.T) {
	s := NewSizer(1)
	assert.Equal(t, 0.15, s.Size(300, 2000, 1980, 1))
}

func TestSizeZeroDistanceUsesFloor(t *testing.T) {
	s := NewSizer(1)

	qty := s.Size(300, 2000, 2000, 1)
	assert.False(t, math.IsInf(qty, 0) || math.IsNaN(qty))
	// risk 3 over floor distance 20
	assert.Equal(t, 0.15, qty)

	custom := s.ForInstrument(models.Instrument{StopFloorPct: 0.5})
	assert.Equal(t, 0.3, custom.Size(300, 2000, 2000, 1))
}

func TestSizeDegenerateInputsStayPositive(t *testing.T) {
	s := NewSizer(1)
	cases := []struct {
		name                       string
		balance, entry, stop, risk float64
	}{
		{"zero entry and stop", 300, 0, 0, 1},
		{"negative entry", 300, -5, -5, 1},
		{"zero balance", 0, 2000, 1980, 1},
		{"nan price", 300, math.NaN(), 1980, 1},
		{"inf balance", math.Inf(1), 2000, 1980, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			qty := s.Size(tc.balance, tc.entry, tc.stop, tc.risk)
			assert.Equal(t, 1e-6, qty)
		})
	}
}

func TestSizeRoundsToSixDecimals(t *testing.T) {
	s := NewSizer(1)
	// 3 / 7 = 0.428571428...
	assert.Equal(t, 0.428571, s.Size(300, 100, 93, 1))
	// tiny quantities are floored at one tick
	assert.Equal(t, 1e-6, s.Size(1, 1e9, 1, 0.0001))
}

func TestSizeMonotonic(t *testing.T) {
	s := NewSizer(1)

	prev := 0.0
	for balance := 0.0; balance <= 5000; balance += 137 {
		q := s.Size(balance, 2000, 1980, 1)
		assert.GreaterOrEqual(t, q, prev, "balance %.0f", balance)
		prev = q
	}

	prev = 0
	for risk := 0.0; risk <= 10; risk += 0.25 {
		q := s.Size(300, 2000, 1980, risk)
		assert.GreaterOrEqual(t, q, prev, "risk %.2f", risk)
		prev = q
	}
}

func TestLevels(t *testing.T) {
	stop, target := Levels(models.SideBuy, 102, 1, 2)
	assert.InDelta(t, 100.98, stop, 1e-9)
	assert.InDelta(t, 104.04, target, 1e-9)

	stop, target = Levels(models.SideSell, 2000, 1, 2)
	assert.InDelta(t, 2020, stop, 1e-9)
	assert.InDelta(t, 1960, target, 1e-9)
}

func TestPnLSign(t *testing.T) {
	assert.Greater(t, models.PnL(models.SideBuy, 100, 110, 1), 0.0)
	assert.Less(t, models.PnL(models.SideBuy, 100, 90, 1), 0.0)
	assert.Greater(t, models.PnL(models.SideSell, 100, 90, 1), 0.0)
	assert.Less(t, models.PnL(models.SideSell, 100, 110, 1), 0.0)
	assert.InDelta(t, 0.612, models.PnL(models.SideBuy, 102, 104.04, 0.3), 1e-12)
}
