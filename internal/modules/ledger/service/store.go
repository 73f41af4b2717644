package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"delta_bot/internal/models"
)

const tradesTable = "trades"

var tradeColumns = []string{"id", "ts_utc", "symbol", "side", "entry", "exit", "qty", "pnl", "exit_reason", "status"}

// insertColumns is tradeColumns without the generated id.
var insertColumns = tradeColumns[1:]

// Store is the append-only trade journal.
type Store interface {
	// Append persists r durably and sets r.ID.
	Append(ctx context.Context, r *models.TradeRecord) error
	// Recent returns up to n records, newest first.
	Recent(ctx context.Context, n int) ([]models.TradeRecord, error)
	// Since returns records with Timestamp >= t in chronological order.
	Since(ctx context.Context, t time.Time) ([]models.TradeRecord, error)
	Stats(ctx context.Context, since time.Time) (models.TradeStats, error)
	Close() error
}

func persistErr(err error, msg string) error {
	return fmt.Errorf("%w: %w", models.ErrPersistence, errors.Wrap(err, msg))
}

func validate(r *models.TradeRecord) error {
	switch {
	case r == nil:
		return errors.New("nil trade record")
	case r.Symbol == "":
		return errors.New("trade record without symbol")
	case r.Quantity <= 0:
		return errors.Errorf("trade record %s: quantity %.8f", r.Symbol, r.Quantity)
	}
	return nil
}

func withDefaults(r *models.TradeRecord) {
	if r.Status == "" {
		r.Status = models.TradeClosed
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	r.Timestamp = r.Timestamp.UTC().Truncate(models.TimestampPrecision)
}
