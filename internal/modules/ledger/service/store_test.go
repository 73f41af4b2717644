package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"delta_bot/internal/models"
)

// storeSuite holds the cases every Store implementation must pass. The
// embedding suite opens a fresh, empty store in SetupTest.
type storeSuite struct {
	suite.Suite
	store Store
	ctx   context.Context
	t0    time.Time
}

func (s *storeSuite) record(offset time.Duration, symbol string, pnl float64) *models.TradeRecord {
	return &models.TradeRecord{
		Timestamp:  s.t0.Add(offset),
		Symbol:     symbol,
		Side:       models.SideBuy,
		EntryPrice: 100,
		ExitPrice:  100 + pnl,
		Quantity:   1,
		PnL:        pnl,
		ExitReason: models.ExitTarget,
		Status:     models.TradeClosed,
	}
}

func (s *storeSuite) TestAppendThenRecentRoundTrip() {
	pos := models.OpenPosition{
		Symbol:     "ETHUSD",
		ProductID:  3136,
		Side:       models.SideSell,
		EntryPrice: 2000.5,
		Quantity:   0.15,
	}
	in := models.NewTradeRecord(s.t0.Add(123456789*time.Nanosecond), pos, 1980.25,
		models.ExitStop, models.TradeExitRejected)
	s.Require().NoError(s.store.Append(s.ctx, &in))
	s.NotZero(in.ID)

	got, err := s.store.Recent(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(in, got[0])
}

func (s *storeSuite) TestAppendTruncatesRawTimestamp() {
	in := s.record(987654321*time.Nanosecond, "BTCUSD", 4)
	s.Require().NoError(s.store.Append(s.ctx, in))
	s.Equal(s.t0.Add(987654*time.Microsecond), in.Timestamp)

	got, err := s.store.Recent(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(*in, got[0])
}

func (s *storeSuite) TestRecentIsNewestFirstAndBounded() {
	for i, sym := range []string{"A", "B", "C"} {
		s.Require().NoError(s.store.Append(s.ctx, s.record(time.Duration(i)*time.Minute, sym, 1)))
	}

	got, err := s.store.Recent(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("C", got[0].Symbol)
	s.Equal("B", got[1].Symbol)

	none, err := s.store.Recent(s.ctx, 0)
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *storeSuite) TestSinceAndStats() {
	s.Require().NoError(s.store.Append(s.ctx, s.record(-48*time.Hour, "OLD", 50)))
	s.Require().NoError(s.store.Append(s.ctx, s.record(time.Hour, "ETHUSD", 2.5)))
	s.Require().NoError(s.store.Append(s.ctx, s.record(2*time.Hour, "ETHUSD", -1)))
	s.Require().NoError(s.store.Append(s.ctx, s.record(3*time.Hour, "BTCUSD", 0)))

	got, err := s.store.Since(s.ctx, s.t0)
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	s.Equal(2.5, got[0].PnL)
	s.Equal("BTCUSD", got[2].Symbol)

	st, err := s.store.Stats(s.ctx, s.t0)
	s.Require().NoError(err)
	s.Equal(3, st.TotalTrades)
	s.Equal(1, st.Wins)
	s.Equal(2, st.Losses)
	s.InDelta(1.5, st.TotalPnL, 1e-9)
	s.Equal(models.Summarize(got), st)
}

func (s *storeSuite) TestStatsOnEmptyLedger() {
	st, err := s.store.Stats(s.ctx, s.t0)
	s.Require().NoError(err)
	s.Equal(models.TradeStats{}, st)
}

func (s *storeSuite) TestAppendRejectsInvalidRecord() {
	err := s.store.Append(s.ctx, &models.TradeRecord{Symbol: "ETHUSD"})
	s.ErrorIs(err, models.ErrPersistence)
}
