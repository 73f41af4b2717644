package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"

	"delta_bot/internal/models"
	"delta_bot/pkg/db"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS trades (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	ts_utc      TEXT    NOT NULL,
	symbol      TEXT    NOT NULL,
	side        TEXT    NOT NULL,
	entry       REAL    NOT NULL,
	exit        REAL    NOT NULL,
	qty         REAL    NOT NULL,
	pnl         REAL    NOT NULL,
	exit_reason TEXT    NOT NULL DEFAULT '',
	status      TEXT    NOT NULL DEFAULT 'closed'
);
CREATE INDEX IF NOT EXISTS idx_trades_ts_utc ON trades(ts_utc);
`

type SQLiteStore struct {
	db *sql.DB
	sq squirrel.StatementBuilderType
}

// NewSQLiteStore opens path (":memory:" works) and creates the schema.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	conn, err := db.OpenSQLite(ctx, path)
	if err != nil {
		return nil, persistErr(err, "open ledger")
	}
	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		_ = conn.Close()
		return nil, persistErr(err, "create schema")
	}
	return &SQLiteStore{
		db: conn,
		sq: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, r *models.TradeRecord) error {
	if err := validate(r); err != nil {
		return persistErr(err, "append")
	}
	withDefaults(r)

	res, err := s.sq.Insert(tradesTable).
		Columns(insertColumns...).
		Values(db.FormatTime(r.Timestamp), r.Symbol, string(r.Side), r.EntryPrice, r.ExitPrice,
			r.Quantity, r.PnL, string(r.ExitReason), string(r.Status)).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return persistErr(err, "insert trade")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return persistErr(err, "last insert id")
	}
	r.ID = id
	return nil
}

func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]models.TradeRecord, error) {
	if n <= 0 {
		return []models.TradeRecord{}, nil
	}
	q := s.sq.Select(tradeColumns...).
		From(tradesTable).
		OrderBy("id DESC").
		Limit(uint64(n))
	return s.query(ctx, q)
}

func (s *SQLiteStore) Since(ctx context.Context, t time.Time) ([]models.TradeRecord, error) {
	q := s.sq.Select(tradeColumns...).
		From(tradesTable).
		Where(squirrel.GtOrEq{"ts_utc": db.FormatTime(t)}).
		OrderBy("ts_utc ASC", "id ASC")
	return s.query(ctx, q)
}

func (s *SQLiteStore) Stats(ctx context.Context, since time.Time) (models.TradeStats, error) {
	var st models.TradeStats
	err := s.sq.Select(
		"COALESCE(SUM(pnl), 0)",
		"COUNT(*)",
		"COALESCE(SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END), 0)",
	).
		From(tradesTable).
		Where(squirrel.GtOrEq{"ts_utc": db.FormatTime(since)}).
		RunWith(s.db).
		QueryRowContext(ctx).
		Scan(&st.TotalPnL, &st.TotalTrades, &st.Wins)
	if err != nil {
		return models.TradeStats{}, persistErr(err, "stats")
	}
	st.Losses = st.TotalTrades - st.Wins
	return st, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) query(ctx context.Context, q squirrel.SelectBuilder) ([]models.TradeRecord, error) {
	rows, err := q.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, persistErr(err, "select trades")
	}
	defer rows.Close()

	out := make([]models.TradeRecord, 0)
	for rows.Next() {
		var r models.TradeRecord
		var ts, side, reason, status string
		if err := rows.Scan(&r.ID, &ts, &r.Symbol, &side, &r.EntryPrice, &r.ExitPrice,
			&r.Quantity, &r.PnL, &reason, &status); err != nil {
			return nil, persistErr(err, "scan trade")
		}
		if r.Timestamp, err = db.ParseTime(ts); err != nil {
			return nil, persistErr(err, "parse ts_utc")
		}
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
