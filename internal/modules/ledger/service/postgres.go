package service

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"delta_bot/internal/models"
	"delta_bot/pkg/db"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS trades (
	id          BIGSERIAL PRIMARY KEY,
	ts_utc      TIMESTAMPTZ      NOT NULL,
	symbol      TEXT             NOT NULL,
	side        TEXT             NOT NULL,
	entry       DOUBLE PRECISION NOT NULL,
	exit        DOUBLE PRECISION NOT NULL,
	qty         DOUBLE PRECISION NOT NULL,
	pnl         DOUBLE PRECISION NOT NULL,
	exit_reason TEXT             NOT NULL DEFAULT '',
	status      TEXT             NOT NULL DEFAULT 'closed'
)`

const pgIndex = `CREATE INDEX IF NOT EXISTS idx_trades_ts_utc ON trades(ts_utc)`

type PgStore struct {
	tm *db.PgTxManager
	sq squirrel.StatementBuilderType
}

// NewPgStore creates the schema on the pool behind tm.
func NewPgStore(ctx context.Context, tm *db.PgTxManager) (*PgStore, error) {
	err := tm.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		for _, stmt := range []string{pgSchema, pgIndex} {
			if _, err := tx.Exec(ctxTx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, persistErr(err, "create schema")
	}
	return &PgStore{
		tm: tm,
		sq: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

func (s *PgStore) Append(ctx context.Context, r *models.TradeRecord) error {
	if err := validate(r); err != nil {
		return persistErr(err, "append")
	}
	withDefaults(r)

	query, args, err := s.sq.Insert(tradesTable).
		Columns(insertColumns...).
		Values(r.Timestamp.UTC(), r.Symbol, string(r.Side), r.EntryPrice, r.ExitPrice,
			r.Quantity, r.PnL, string(r.ExitReason), string(r.Status)).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return persistErr(err, "build insert")
	}

	var id int64
	err = s.tm.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		return tx.QueryRow(ctxTx, query, args...).Scan(&id)
	})
	if err != nil {
		return persistErr(err, "insert trade")
	}
	r.ID = id
	return nil
}

func (s *PgStore) Recent(ctx context.Context, n int) ([]models.TradeRecord, error) {
	if n <= 0 {
		return []models.TradeRecord{}, nil
	}
	return s.query(ctx, s.sq.Select(tradeColumns...).
		From(tradesTable).
		OrderBy("id DESC").
		Limit(uint64(n)))
}

func (s *PgStore) Since(ctx context.Context, t time.Time) ([]models.TradeRecord, error) {
	return s.query(ctx, s.sq.Select(tradeColumns...).
		From(tradesTable).
		Where(squirrel.GtOrEq{"ts_utc": t.UTC()}).
		OrderBy("ts_utc ASC", "id ASC"))
}

func (s *PgStore) Stats(ctx context.Context, since time.Time) (models.TradeStats, error) {
	query, args, err := s.sq.Select(
		"COALESCE(SUM(pnl), 0)",
		"COUNT(*)",
		"COUNT(*) FILTER (WHERE pnl > 0)",
	).
		From(tradesTable).
		Where(squirrel.GtOrEq{"ts_utc": since.UTC()}).
		ToSql()
	if err != nil {
		return models.TradeStats{}, persistErr(err, "build stats")
	}

	var (
		st          models.TradeStats
		total, wins int64
	)
	if err := s.tm.Conn().QueryRow(ctx, query, args...).Scan(&st.TotalPnL, &total, &wins); err != nil {
		return models.TradeStats{}, persistErr(err, "stats")
	}
	st.TotalTrades = int(total)
	st.Wins = int(wins)
	st.Losses = st.TotalTrades - st.Wins
	return st, nil
}

func (s *PgStore) Close() error {
	s.tm.Close()
	return nil
}

func (s *PgStore) query(ctx context.Context, b squirrel.SelectBuilder) ([]models.TradeRecord, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, persistErr(err, "build select")
	}
	rows, err := s.tm.Conn().Query(ctx, query, args...)
	if err != nil {
		return nil, persistErr(err, "select trades")
	}
	defer rows.Close()

	out := make([]models.TradeRecord, 0)
	for rows.Next() {
		var r models.TradeRecord
		var side, reason, status string
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.Symbol, &side, &r.EntryPrice, &r.ExitPrice,
			&r.Quantity, &r.PnL, &reason, &status); err != nil {
			return nil, persistErr(err, "scan trade")
		}
		r.Timestamp = r.Timestamp.UTC()
		r.Side = models.Side(side)
		r.ExitReason = models.ExitReason(reason)
		r.Status = models.TradeStatus(status)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr(err, "iterate trades")
	}
	return out, nil
}
