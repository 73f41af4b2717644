package models

// EngineConfig is what Start/Stop mutate and every cycle reads.
type EngineConfig struct {
	Instruments    []string `json:"symbols"`
	Interval       string   `json:"interval"`
	AccountBalance float64  `json:"account_balance"`
	Running        bool     `json:"running"`
}

// Clone returns a copy that does not share the instrument slice.
func (c EngineConfig) Clone() EngineConfig {
	out := c
	out.Instruments = append([]string(nil), c.Instruments...)
	return out
}

// OrderKind is fixed to market; no other order types are placed.
type OrderKind string

const OrderMarket OrderKind = "market"

type OrderRequest struct {
	ProductID int
	Symbol    string
	Side      Side
	Size      float64
	Kind      OrderKind
}

type OrderResult struct {
	Accepted   bool
	StatusCode int
	OrderID    string
	ClientID   string
	Status     string
}
