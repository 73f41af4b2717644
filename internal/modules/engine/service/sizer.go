package service

import (
	"math"

	"github.com/shopspring/decimal"

	"delta_bot/internal/models"
)

const (
	defaultFloorPct  = 1.0
	defaultMinQty    = 1e-6
	defaultPrecision = 6
)

// Sizer turns account risk into an order quantity.
type Sizer struct {
	// FloorPct replaces a zero stop distance with entry*FloorPct/100.
	FloorPct  float64
	MinQty    float64
	Precision int32
}

func NewSizer(floorPct float64) Sizer {
	if floorPct <= 0 {
		floorPct = defaultFloorPct
	}
	return Sizer{FloorPct: floorPct, MinQty: defaultMinQty, Precision: defaultPrecision}
}

// ForInstrument applies the instrument's floor override, if any.
func (s Sizer) ForInstrument(inst models.Instrument) Sizer {
	if inst.StopFloorPct > 0 {
		s.FloorPct = inst.StopFloorPct
	}
	return s
}

// Size returns round(balance*riskPct/100 / |entry-stop|, Precision), never
// below MinQty. Non-finite intermediates collapse to MinQty.
func (s Sizer) Size(balance, entry, stop, riskPct float64) float64 {
	minQty := s.MinQty
	if minQty <= 0 {
		minQty = defaultMinQty
	}
	floor := s.FloorPct
	if floor <= 0 {
		floor = defaultFloorPct
	}

	diff := math.Abs(entry - stop)
	if diff == 0 {
		diff = entry * floor / 100
	}
	risk := balance * riskPct / 100
	qty := risk / diff
	if math.IsNaN(qty) || math.IsInf(qty, 0) || qty <= 0 {
		return minQty
	}

	rounded := decimal.NewFromFloat(qty).Round(s.Precision).InexactFloat64()
	if rounded < minQty {
		return minQty
	}
	return rounded
}

// Levels returns stop and target for a position entered at entry.
// BUY: entry*(1-stop%), entry*(1+target%); SELL mirrored.
func Levels(side models.Side, entry, stopPct, targetPct float64) (stop, target float64) {
	e := decimal.NewFromFloat(entry)
	hundred := decimal.NewFromInt(100)
	sp := decimal.NewFromFloat(stopPct).Div(hundred)
	tp := decimal.NewFromFloat(targetPct).Div(hundred)
	one := decimal.NewFromInt(1)

	if side == models.SideSell {
		return e.Mul(one.Add(sp)).InexactFloat64(), e.Mul(one.Sub(tp)).InexactFloat64()
	}
	return e.Mul(one.Sub(sp)).InexactFloat64(), e.Mul(one.Add(tp)).InexactFloat64()
}
