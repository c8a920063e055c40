package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"paperdash/internal/app"
	"paperdash/internal/config"
	"paperdash/internal/journal"
	"paperdash/internal/logging"
	"paperdash/internal/trading"
	"paperdash/internal/types"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// rootConfig is filled in by the root command before any subcommand runs.
type rootConfig struct {
	svc *trading.Service
	// closeJournal releases the journal pool, if any.
	closeJournal func()
	// memoryJournal is set when JOURNAL_DSN is empty; the journal then only
	// holds what this process did.
	memoryJournal bool
	now           func() time.Time
}

func newRootCmd() *cobra.Command {
	return newRootCmdFor(&rootConfig{now: time.Now, closeJournal: func() {}})
}

// newRootCmdFor builds the command tree over rc. A preset rc.svc skips
// loading configuration.
func newRootCmdFor(rc *rootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tradectl",
		Short:         "Terminal client for the Alpaca paper trading account",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if rc.svc != nil {
				return nil
			}
			app.LoadEnv()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logging.New(cfg.LogLevel, "console")
			client, err := app.NewBroker(cfg, nil, log)
			if err != nil {
				return err
			}
			store, pool, err := app.NewJournal(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if pool != nil {
				rc.closeJournal = pool.Close
			}
			rc.memoryJournal = pool == nil
			rc.svc = trading.NewService(client, store, log)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			rc.closeJournal()
		},
	}
	cmd.AddCommand(
		newAccountCmd(rc),
		newPositionsCmd(rc),
		newOrdersCmd(rc),
		newOpenOrdersCmd(rc),
		newOrderCmd(rc),
		newSubmitCmd(rc, types.OrderSideBuy),
		newSubmitCmd(rc, types.OrderSideSell),
		newCancelCmd(rc),
		newCancelAllCmd(rc),
		newCloseCmd(rc),
		newCloseAllCmd(rc),
		newActivityCmd(rc),
	)
	return cmd
}

func newAccountCmd(rc *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "account",
		Short: "Show buying power, cash and trading status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := rc.svc.Account(cmd.Context())
			if v.Error != "" {
				return errors.New(v.Error)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Basic Info")
			printFields(out, v.Basic)
			fmt.Fprintln(out, "\nTrading Status")
			printFields(out, v.Status)
			return nil
		},
	}
}

func newPositionsCmd(rc *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "positions",
		Short: "List open positions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printTable(cmd.OutOrStdout(), rc.svc.Positions(cmd.Context()), "No open positions")
		},
	}
}

func newOrdersCmd(rc *rootConfig) *cobra.Command {
	var start, end, status, side, symbol string
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List order history in a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to := trading.DefaultHistoryDays(rc.now())
			if start != "" {
				d, err := time.Parse("2006-01-02", start)
				if err != nil {
					return fmt.Errorf("invalid --start %q, expected YYYY-MM-DD", start)
				}
				from = d
			}
			if end != "" {
				d, err := time.Parse("2006-01-02", end)
				if err != nil {
					return fmt.Errorf("invalid --end %q, expected YYYY-MM-DD", end)
				}
				to = d
			}
			lo, hi := trading.HistoryWindow(from, to)
			t := rc.svc.Orders(cmd.Context(), trading.OrderQuery{Start: lo, End: hi})
			if t.Failed() {
				return errors.New(t.Error)
			}
			if t.Empty() {
				fmt.Fprintln(cmd.OutOrStdout(), "No orders in the selected date range")
				return nil
			}
			t.Records = trading.FilterOrders(t.Records, trading.OrderFilter{Status: status, Side: side, Symbol: symbol})
			return printTable(cmd.OutOrStdout(), t, "No orders match the selected filters")
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD (default yesterday)")
	cmd.Flags().StringVar(&end, "end", "", "last day, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&status, "status", "All Orders", "status filter: "+strings.Join(trading.StatusFilterOptions, ", "))
	cmd.Flags().StringVar(&side, "side", "All", "side filter: "+strings.Join(trading.SideFilterOptions, ", "))
	cmd.Flags().StringVar(&symbol, "symbol", "", "symbol substring filter")
	return cmd
}

func newOpenOrdersCmd(rc *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "open-orders",
		Short: "List orders still working",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printTable(cmd.OutOrStdout(), rc.svc.OpenOrders(cmd.Context()), "No open orders")
		},
	}
}

func newOrderCmd(rc *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "order <order-id>",
		Short: "Show one order and the actions available for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := rc.svc.Order(cmd.Context(), args[0])
			if d.Error != "" {
				return errors.New(d.Error)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Order Details")
			printFields(out, d.Details)
			fmt.Fprintln(out, "\nOrder Timing")
			printFields(out, d.Timing)
			fmt.Fprintln(out)
			switch {
			case d.CanCancel:
				fmt.Fprintf(out, "Available: tradectl cancel %s\n", d.Order.ID)
			case d.CanClose:
				fmt.Fprintf(out, "Available: tradectl close %s\n", d.Order.Symbol)
			default:
				fmt.Fprintln(out, d.Notice)
			}
			return nil
		},
	}
}

func newSubmitCmd(rc *rootConfig, side types.OrderSide) *cobra.Command {
	return &cobra.Command{
		Use:   string(side) + " <symbol> <qty>",
		Short: "Place a GTC market " + string(side) + " order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := decimal.NewFromString(args[1])
			if err != nil {
				return errors.New(trading.InvalidOrderInput)
			}
			return printResult(cmd.OutOrStdout(), rc.svc.SubmitMarketOrder(cmd.Context(), args[0], qty, side))
		},
	}
}

func newCancelCmd(rc *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <order-id>",
		Short: "Cancel one order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printResult(cmd.OutOrStdout(), rc.svc.CancelOrder(cmd.Context(), args[0]))
		},
	}
}

func newCancelAllCmd(rc *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel-all",
		Short: "Cancel every open order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printResult(cmd.OutOrStdout(), rc.svc.CancelAllOrders(cmd.Context()))
		},
	}
}

func newCloseCmd(rc *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "close <symbol>",
		Short: "Close one position at market",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printResult(cmd.OutOrStdout(), rc.svc.ClosePosition(cmd.Context(), args[0]))
		},
	}
}

func newCloseAllCmd(rc *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "close-all",
		Short: "Close every position and cancel open orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printResult(cmd.OutOrStdout(), rc.svc.CloseAllPositions(cmd.Context()))
		},
	}
}

func newActivityCmd(rc *rootConfig) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show recently journaled actions (needs JOURNAL_DSN to see other runs)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rc.memoryJournal {
				fmt.Fprintln(cmd.ErrOrStderr(), "note: JOURNAL_DSN is not set; the in-memory journal only holds actions from this run")
			}
			entries, err := rc.svc.Activity(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("Error fetching activity: %w", err)
			}
			printActivity(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "entries to show")
	return cmd
}

func printFields(w io.Writer, fields []trading.Field) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, f := range fields {
		fmt.Fprintf(tw, "  %s:\t%s\n", f.Label, f.Value)
	}
	tw.Flush()
}

func printTable(w io.Writer, t trading.Table, empty string) error {
	if t.Failed() {
		return errors.New(t.Error)
	}
	if t.Empty() {
		fmt.Fprintln(w, empty)
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Columns, "\t"))
	for _, row := range t.Rows() {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func printResult(w io.Writer, res trading.Result) error {
	if res.Failed {
		return errors.New(res.Message)
	}
	fmt.Fprintln(w, res.Message)
	return nil
}

func printActivity(w io.Writer, entries []journal.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No recent activity")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Time\tAction\tMessage")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.At.UTC().Format("2006-01-02 15:04:05"), e.Action, e.Message)
	}
	tw.Flush()
}
