package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/bytedance/sonic"
	"github.com/urfave/cli/v3"

	"delta_bot/internal/models"
	"delta_bot/internal/modules/config"
	"delta_bot/internal/modules/ledger"
	ledgersvc "delta_bot/internal/modules/ledger/service"
	"delta_bot/internal/modules/postgres"
	"delta_bot/pkg/db"
)

var jsonFlag = &cli.BoolFlag{Name: "json", Usage: "print JSON instead of a table"}

func tradesCommand() *cli.Command {
	return &cli.Command{
		Name:  "trades",
		Usage: "print the most recent trades",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 40, Usage: "number of trades"},
			jsonFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			limit := int(cmd.Int("limit"))
			if limit <= 0 {
				return fmt.Errorf("limit must be positive")
			}
			return withStore(ctx, cmd, func(store ledgersvc.Store) error {
				rows, err := store.Recent(ctx, limit)
				if err != nil {
					return err
				}
				if cmd.Bool("json") {
					return printJSON(os.Stdout, rows)
				}
				printTrades(os.Stdout, rows)
				return nil
			})
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "print trade statistics over a trailing window",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "days", Value: 7, Usage: "window in days"},
			jsonFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			days := int(cmd.Int("days"))
			if days <= 0 {
				return fmt.Errorf("days must be positive")
			}
			since := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
			return withStore(ctx, cmd, func(store ledgersvc.Store) error {
				st, err := store.Stats(ctx, since)
				if err != nil {
					return err
				}
				if cmd.Bool("json") {
					return printJSON(os.Stdout, st)
				}
				fmt.Printf("window:  last %d days\ntrades:  %d\nwins:    %d\nlosses:  %d\npnl:     %.4f\n",
					days, st.TotalTrades, st.Wins, st.Losses, st.TotalPnL)
				return nil
			})
		},
	}
}

func withStore(ctx context.Context, cmd *cli.Command, fn func(ledgersvc.Store) error) error {
	if name := cmd.String("config"); name != "" {
		_ = os.Setenv("CONFIG_FILE", name)
	}
	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}

	var tm *db.PgTxManager
	if cfg.Ledger.Driver == "postgres" {
		if tm, err = postgres.NewTxManager(ctx, cfg.Ledger.DSN); err != nil {
			return err
		}
	}
	store, err := ledger.Open(ctx, cfg, tm)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func printJSON(w io.Writer, v any) error {
	b, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func printTrades(w io.Writer, rows []models.TradeRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTS_UTC\tSYMBOL\tSIDE\tENTRY\tEXIT\tQTY\tPNL\tREASON\tSTATUS")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.4f\t%.4f\t%.6f\t%.4f\t%s\t%s\n",
			r.ID, r.Timestamp.Format(time.RFC3339), r.Symbol, r.Side, r.EntryPrice, r.ExitPrice,
			r.Quantity, r.PnL, r.ExitReason, r.Status)
	}
	_ = tw.Flush()
}
