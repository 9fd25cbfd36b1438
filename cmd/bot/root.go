package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vikiirv21/kite-algo-trader/internal/logger"
	"github.com/vikiirv21/kite-algo-trader/internal/trace"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "bot",
	Short: "Algorithmic trading bot for NSE equities via Zerodha Kite",
	Long: `bot runs a polling trading loop against the Zerodha Kite API.

PAPER mode simulates fills locally, REPLAY runs a strategy over recorded
candles and LIVE places real orders. All modes journal signals and orders
and checkpoint the position book to disk.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Missing .env is fine: credentials may come from the real environment.
		_ = godotenv.Load()
		if err := logger.Init(); err != nil {
			return err
		}
		return trace.Init()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "path to config file")
	rootCmd.AddCommand(runCmd, summaryCmd, versionCmd)
}
