package models

import "errors"

var (
	ErrDataFetch           = errors.New("data fetch failed")
	ErrInsufficientHistory = errors.New("insufficient history")
	ErrOrderRejected       = errors.New("order rejected")
	ErrPersistence         = errors.New("persistence failed")
	ErrUnknownInstrument   = errors.New("unknown instrument")
)

// FailureKind is the metric/log label for err.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDataFetch):
		return "data_fetch"
	case errors.Is(err, ErrInsufficientHistory):
		return "insufficient_history"
	case errors.Is(err, ErrOrderRejected):
		return "order_rejected"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	case errors.Is(err, ErrUnknownInstrument):
		return "unknown_instrument"
	}
	return "other"
}
