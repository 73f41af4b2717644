package models

// Instrument is a catalog entry: the exchange product behind a symbol.
type Instrument struct {
	Symbol    string `yaml:"symbol"`
	ProductID int    `yaml:"product_id"`
	// StopFloorPct overrides the sizer's zero-distance floor, percent of price.
	StopFloorPct float64 `yaml:"stop_floor_pct"`
}
