package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExitReason tells why a position was closed.
type ExitReason string

const (
	ExitStop        ExitReason = "stop"
	ExitTarget      ExitReason = "target"
	ExitTimeout     ExitReason = "timeout"
	ExitInterrupted ExitReason = "interrupted"
)

// TradeStatus flags records whose close did not go through cleanly.
type TradeStatus string

const (
	TradeClosed          TradeStatus = "closed"
	TradeExitRejected    TradeStatus = "exit_rejected"
	TradePriceUnobserved TradeStatus = "price_unobserved"
)

// TradeRecord is one completed trade. Immutable once appended.
type TradeRecord struct {
	ID         int64       `json:"id"`
	Timestamp  time.Time   `json:"ts_utc"`
	Symbol     string      `json:"symbol"`
	Side       Side        `json:"side"`
	EntryPrice float64     `json:"entry"`
	ExitPrice  float64     `json:"exit"`
	Quantity   float64     `json:"qty"`
	PnL        float64     `json:"pnl"`
	ExitReason ExitReason  `json:"exit_reason"`
	Status     TradeStatus `json:"status"`
}

// PnL is (exit-entry)*qty for BUY and (entry-exit)*qty for SELL.
func PnL(side Side, entry, exit, qty float64) float64 {
	e := decimal.NewFromFloat(entry)
	x := decimal.NewFromFloat(exit)
	q := decimal.NewFromFloat(qty)
	diff := x.Sub(e)
	if side == SideSell {
		diff = e.Sub(x)
	}
	return diff.Mul(q).InexactFloat64()
}

// TimestampPrecision is the finest resolution the ledgers keep.
const TimestampPrecision = time.Microsecond

// NewTradeRecord closes pos at exit and computes the realized PnL.
func NewTradeRecord(ts time.Time, pos OpenPosition, exit float64, reason ExitReason, status TradeStatus) TradeRecord {
	return TradeRecord{
		Timestamp:  ts.UTC().Truncate(TimestampPrecision),
		Symbol:     pos.Symbol,
		Side:       pos.Side,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exit,
		Quantity:   pos.Quantity,
		PnL:        PnL(pos.Side, pos.EntryPrice, exit, pos.Quantity),
		ExitReason: reason,
		Status:     status,
	}
}

// TradeStats aggregates a window of trades. A win is pnl > 0.
type TradeStats struct {
	TotalPnL    float64 `json:"total_pnl"`
	TotalTrades int     `json:"total_trades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
}

// Summarize folds records into TradeStats.
func Summarize(records []TradeRecord) TradeStats {
	total := decimal.Zero
	st := TradeStats{TotalTrades: len(records)}
	for _, r := range records {
		total = total.Add(decimal.NewFromFloat(r.PnL))
		if r.PnL > 0 {
			st.Wins++
		} else {
			st.Losses++
		}
	}
	st.TotalPnL = total.InexactFloat64()
	return st
}
