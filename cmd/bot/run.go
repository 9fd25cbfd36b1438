package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vikiirv21/kite-algo-trader/internal/broker/brokerobs"
	"github.com/vikiirv21/kite-algo-trader/internal/broker/replay"
	"github.com/vikiirv21/kite-algo-trader/internal/broker/zerodha"
	"github.com/vikiirv21/kite-algo-trader/internal/dashboard"
	"github.com/vikiirv21/kite-algo-trader/internal/engine"
	"github.com/vikiirv21/kite-algo-trader/internal/engine/engineobs"
	"github.com/vikiirv21/kite-algo-trader/internal/execution"
	"github.com/vikiirv21/kite-algo-trader/internal/interfaces"
	"github.com/vikiirv21/kite-algo-trader/internal/journal"
	"github.com/vikiirv21/kite-algo-trader/internal/logger"
	"github.com/vikiirv21/kite-algo-trader/internal/paper"
	"github.com/vikiirv21/kite-algo-trader/internal/recon"
	"github.com/vikiirv21/kite-algo-trader/internal/risk"
	"github.com/vikiirv21/kite-algo-trader/internal/store"
	"github.com/vikiirv21/kite-algo-trader/internal/strategy"
	"github.com/vikiirv21/kite-algo-trader/internal/trace"
)

var modeOverride string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	runCmd.Flags().StringVar(&modeOverride, "mode", "", "override configured mode (PAPER, REPLAY or LIVE)")
}

func run(parent context.Context) error {
	cfg, err := store.LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	if modeOverride != "" {
		cfg.Mode = modeOverride
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := trace.Shutdown(shutdownCtx); err != nil {
			logger.Warn(shutdownCtx, "Tracer shutdown failed", "error", err)
		}
	}()

	logger.Info(ctx, "Starting trading bot",
		"mode", cfg.Mode, "exchange", cfg.Exchange, "universe", cfg.Universe)

	broker, err := buildBroker(cfg)
	if err != nil {
		return err
	}
	broker = brokerobs.Wrap(broker)
	if err := broker.Start(ctx, cfg.Universe); err != nil {
		return fmt.Errorf("broker start: %w", err)
	}
	defer broker.Stop(ctx)

	states := store.NewStateStore(cfg.State.CheckpointPath)
	book := paper.NewBroker()
	restoreBook(ctx, states, book)

	tracker := execution.NewTracker()
	router := execution.NewRouter(cfg.Mode, book, broker, tracker)

	recorder, err := buildRecorder(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := recorder.Close(); err != nil {
			logger.Warn(ctx, "Recorder close failed", "error", err)
		}
	}()

	sizer := risk.DynamicPositionSizer{
		RiskPerTradePct:     cfg.Sizer.RiskPerTradePct,
		MaxOrderNotionalPct: cfg.Sizer.MaxOrderNotionalPct,
		MinOrderNotional:    cfg.Sizer.MinOrderNotional,
		MaxTrades:           cfg.Sizer.MaxTrades,
		RiskScaleMin:        cfg.Sizer.RiskScaleMin,
		RiskScaleMax:        cfg.Sizer.RiskScaleMax,
		RiskDownThreshold:   cfg.Sizer.RiskDownThreshold,
		RiskUpThreshold:     cfg.Sizer.RiskUpThreshold,
		CapitalBase:         cfg.CapitalBase,
	}
	costs := risk.CostModel{
		BrokerageFlat: cfg.Costs.BrokerageFlat,
		TurnoverPct:   cfg.Costs.TurnoverPct,
		STTPct:        cfg.Costs.STTPct,
		GSTPct:        cfg.Costs.GSTPct,
		StampDutyPct:  cfg.Costs.StampDutyPct,
		OtherPct:      cfg.Costs.OtherPct,
	}
	quality := risk.NewTradeQualityFilter(
		cfg.Quality.MinEdgeAfterCostsBps,
		cfg.Quality.MaxTradesPerSymbolPerDay,
		cfg.Quality.CooldownAfterLossTrades,
	)

	eng, err := engine.New(engine.Params{
		Mode:       cfg.Mode,
		MinCandles: cfg.Strategy.MinCandles,
		Broker:     broker,
		Strategy:   buildStrategy(cfg),
		Router:     router,
		Recorder:   recorder,
		Book:       book,
		States:     states,
		Sizer:      sizer,
		Costs:      costs,
		Quality:    quality,
		LotSize:    cfg.LotSize,
	})
	if err != nil {
		return err
	}

	var source recon.OrderSource = recon.NewLocalSource(tracker, book)
	if cfg.Mode == "LIVE" {
		source = broker
	}
	reconEngine := recon.New(recon.Params{
		Mode:     cfg.Mode,
		Broker:   source,
		Book:     book,
		Tracker:  tracker,
		States:   states,
		Prices:   eng,
		Interval: time.Duration(cfg.ReconInterval() * float64(time.Second)),
		Backoff: recon.Backoff{
			Initial:    time.Duration(cfg.Recon.BackoffInitialSecs * float64(time.Second)),
			Max:        time.Duration(cfg.Recon.BackoffMaxSecs * float64(time.Second)),
			Multiplier: cfg.Recon.BackoffMultiplier,
		},
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		reconEngine.Run(ctx)
	}()

	if cfg.Dashboard.Enabled {
		srv := dashboard.New(dashboard.Params{
			Addr:        cfg.Dashboard.Addr,
			Mode:        cfg.Mode,
			CapitalBase: cfg.CapitalBase,
			JournalDir:  cfg.Journal.Dir,
			States:      states,
			Tracker:     tracker,
			Recon:       reconEngine,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(ctx); err != nil {
				logger.ErrorWithErr(ctx, "Dashboard server failed", err)
			}
		}()
	}

	engine.Loop(ctx, engineobs.Wrap(eng), cfg.Universe, time.Duration(cfg.PollSeconds)*time.Second)
	wg.Wait()
	logger.Info(context.Background(), "Trading bot stopped")
	return nil
}

func buildBroker(cfg *store.Config) (interfaces.Broker, error) {
	if cfg.Mode == "REPLAY" {
		return replay.Load(cfg.Replay.CandleFile)
	}
	return zerodha.NewZerodha(zerodha.Params{
		Mode:        cfg.Mode,
		APIKey:      os.Getenv("KITE_API_KEY"),
		AccessToken: os.Getenv("KITE_ACCESS_TOKEN"),
		Exchange:    cfg.Exchange,
	}), nil
}

func buildStrategy(cfg *store.Config) interfaces.Strategy {
	return strategy.NewEMATrend(
		cfg.Strategy.FastEMA,
		cfg.Strategy.SlowEMA,
		cfg.Strategy.ATRPeriod,
		cfg.Strategy.MinCandles,
		cfg.Strategy.EdgeBps,
	)
}

func buildRecorder(cfg *store.Config) (interfaces.Recorder, error) {
	if cfg.Journal.Backend == "SQLITE" {
		return journal.NewSQLiteRecorder(cfg.Journal.SQLitePath)
	}
	return journal.NewCSVRecorder(cfg.Journal.Dir)
}

// restoreBook seeds the in-memory book from the last checkpoint so a
// restart picks up open positions and booked PnL.
func restoreBook(ctx context.Context, states *store.StateStore, book *paper.Broker) {
	cp := states.Load(ctx)
	if len(cp.Broker.Positions) == 0 {
		return
	}
	positions := make([]paper.Position, 0, len(cp.Broker.Positions))
	for _, p := range cp.Broker.Positions {
		positions = append(positions, paper.Position{
			Symbol:      p.Symbol,
			Qty:         p.Qty,
			AvgPrice:    p.AvgPrice,
			RealizedPnL: p.RealizedPnL,
		})
	}
	book.ReplaceBook(positions)
	logger.Info(ctx, "Position book restored from checkpoint",
		"positions", len(positions), "as_of", cp.Timestamp.Format(time.RFC3339))
}
