package service

import (
	"context"

	"delta_bot/internal/models"
)

type CandleSource interface {
	Candles(ctx context.Context, inst models.Instrument, interval string) (models.CandleSeries, error)
}

type PriceSource interface {
	LastPrice(ctx context.Context, inst models.Instrument, interval string) (float64, error)
}

type OrderGateway interface {
	Submit(ctx context.Context, o models.OrderRequest) (models.OrderResult, error)
}

type SignalGenerator interface {
	Generate(series models.CandleSeries) (models.Signal, error)
}

type TradeLedger interface {
	Append(ctx context.Context, r *models.TradeRecord) error
}

type Catalog interface {
	Lookup(symbol string) (models.Instrument, error)
}

type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
}
