package models

import "time"

// OpenPosition lives for exactly one trading attempt: created on an accepted
// entry order, dropped once the exit order was sent and the trade recorded.
type OpenPosition struct {
	Symbol      string
	ProductID   int
	Side        Side
	EntryPrice  float64
	StopPrice   float64
	TargetPrice float64
	Quantity    float64
	OpenedAt    time.Time
}

// StopHit reports whether last crossed the stop threshold.
func (p OpenPosition) StopHit(last float64) bool {
	if p.Side == SideBuy {
		return last <= p.StopPrice
	}
	return last >= p.StopPrice
}

// TargetHit reports whether last crossed the target threshold.
func (p OpenPosition) TargetHit(last float64) bool {
	if p.Side == SideBuy {
		return last >= p.TargetPrice
	}
	return last <= p.TargetPrice
}
