package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vikiirv21/kite-algo-trader/internal/journal"
	"github.com/vikiirv21/kite-algo-trader/internal/store"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the per-symbol order journal summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := store.LoadConfig(cfgPath)
		if err != nil {
			return err
		}
		sums, err := journal.Summarize(cfg.Journal.Dir)
		if err != nil {
			return err
		}
		if len(sums) == 0 {
			fmt.Println("no journaled orders")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SYMBOL\tORDERS\tBUY QTY\tBUY VALUE\tSELL QTY\tSELL VALUE")
		for _, s := range sums {
			fmt.Fprintf(w, "%s\t%d\t%d\t%.2f\t%d\t%.2f\n",
				s.Symbol, s.Orders, s.BuyQty, s.BuyValue, s.SellQty, s.SellValue)
		}
		return w.Flush()
	},
}
