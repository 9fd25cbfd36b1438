package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode        string   `yaml:"mode"` // PAPER, REPLAY or LIVE
	Exchange    string   `yaml:"exchange"`
	PollSeconds int      `yaml:"poll_seconds"`
	Universe    []string `yaml:"universe"`
	CapitalBase float64  `yaml:"capital_base"`

	LotSizes map[string]int `yaml:"lot_sizes"`

	Sizer struct {
		RiskPerTradePct     float64 `yaml:"risk_per_trade_pct"`
		MaxOrderNotionalPct float64 `yaml:"max_order_notional_pct"`
		MinOrderNotional    float64 `yaml:"min_order_notional"`
		MaxTrades           int     `yaml:"max_trades"`
		RiskScaleMin        float64 `yaml:"risk_scale_min"`
		RiskScaleMax        float64 `yaml:"risk_scale_max"`
		RiskDownThreshold   float64 `yaml:"risk_down_threshold"`
		RiskUpThreshold     float64 `yaml:"risk_up_threshold"`
	} `yaml:"sizer"`

	Costs struct {
		BrokerageFlat float64 `yaml:"brokerage_flat"`
		TurnoverPct   float64 `yaml:"turnover_pct"`
		STTPct        float64 `yaml:"stt_pct"`
		GSTPct        float64 `yaml:"gst_pct"`
		StampDutyPct  float64 `yaml:"stamp_duty_pct"`
		OtherPct      float64 `yaml:"other_pct"`
	} `yaml:"costs"`

	Quality struct {
		MinEdgeAfterCostsBps     float64 `yaml:"min_edge_after_costs_bps"`
		MaxTradesPerSymbolPerDay int     `yaml:"max_trades_per_symbol_per_day"`
		CooldownAfterLossTrades  int     `yaml:"cooldown_after_loss_trades"`
	} `yaml:"quality"`

	Recon struct {
		LiveIntervalSeconds  float64 `yaml:"live_interval_seconds"`
		PaperIntervalSeconds float64 `yaml:"paper_interval_seconds"`
		BackoffInitialSecs   float64 `yaml:"backoff_initial_seconds"`
		BackoffMaxSecs       float64 `yaml:"backoff_max_seconds"`
		BackoffMultiplier    float64 `yaml:"backoff_multiplier"`
	} `yaml:"recon"`

	Journal struct {
		Dir        string `yaml:"dir"`
		Backend    string `yaml:"backend"` // CSV or SQLITE
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"journal"`

	State struct {
		CheckpointPath string `yaml:"checkpoint_path"`
	} `yaml:"state"`

	Strategy struct {
		FastEMA    int     `yaml:"fast_ema"`
		SlowEMA    int     `yaml:"slow_ema"`
		ATRPeriod  int     `yaml:"atr_period"`
		MinCandles int     `yaml:"min_candles"`
		EdgeBps    float64 `yaml:"edge_bps"`
	} `yaml:"strategy"`

	Dashboard struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"dashboard"`

	Replay struct {
		CandleFile string `yaml:"candle_file"`
	} `yaml:"replay"`
}

func (c *Config) Validate() error {
	switch c.Mode {
	case "PAPER", "REPLAY", "LIVE":
	default:
		return fmt.Errorf("invalid mode '%s': must be 'PAPER', 'REPLAY' or 'LIVE'", c.Mode)
	}
	if len(c.Universe) == 0 {
		return fmt.Errorf("universe cannot be empty")
	}
	if c.CapitalBase <= 0 {
		return fmt.Errorf("capital_base must be positive, got %.2f", c.CapitalBase)
	}
	if c.Sizer.RiskPerTradePct <= 0 || c.Sizer.RiskPerTradePct > 1 {
		return fmt.Errorf("sizer.risk_per_trade_pct must be in (0,1], got %.4f", c.Sizer.RiskPerTradePct)
	}
	if c.Sizer.RiskScaleMin > c.Sizer.RiskScaleMax {
		return fmt.Errorf("sizer.risk_scale_min %.2f exceeds risk_scale_max %.2f",
			c.Sizer.RiskScaleMin, c.Sizer.RiskScaleMax)
	}
	if c.Sizer.RiskDownThreshold >= c.Sizer.RiskUpThreshold {
		return fmt.Errorf("sizer.risk_down_threshold must be below risk_up_threshold")
	}
	if c.Journal.Backend != "CSV" && c.Journal.Backend != "SQLITE" {
		return fmt.Errorf("journal.backend must be 'CSV' or 'SQLITE', got '%s'", c.Journal.Backend)
	}
	if c.Mode == "REPLAY" && c.Replay.CandleFile == "" {
		return fmt.Errorf("replay.candle_file is required in REPLAY mode")
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "PAPER"
	}
	if c.Exchange == "" {
		c.Exchange = "NSE"
	}
	if c.PollSeconds == 0 {
		c.PollSeconds = 15
	}
	if c.CapitalBase == 0 {
		c.CapitalBase = 1000000 // 10 lakhs
	}
	if c.Sizer.RiskPerTradePct == 0 {
		c.Sizer.RiskPerTradePct = 0.02
	}
	if c.Sizer.MaxOrderNotionalPct == 0 {
		c.Sizer.MaxOrderNotionalPct = 0.25
	}
	if c.Sizer.MinOrderNotional == 0 {
		c.Sizer.MinOrderNotional = 5000
	}
	if c.Sizer.MaxTrades == 0 {
		c.Sizer.MaxTrades = 3
	}
	if c.Sizer.RiskScaleMin == 0 {
		c.Sizer.RiskScaleMin = 0.5
	}
	if c.Sizer.RiskScaleMax == 0 {
		c.Sizer.RiskScaleMax = 1.0
	}
	if c.Sizer.RiskDownThreshold == 0 && c.Sizer.RiskUpThreshold == 0 {
		c.Sizer.RiskDownThreshold = -0.02
		c.Sizer.RiskUpThreshold = 0.01
	}
	if c.Costs.BrokerageFlat == 0 {
		c.Costs.BrokerageFlat = 20
	}
	if c.Quality.MinEdgeAfterCostsBps == 0 {
		c.Quality.MinEdgeAfterCostsBps = 5
	}
	if c.Quality.MaxTradesPerSymbolPerDay == 0 {
		c.Quality.MaxTradesPerSymbolPerDay = 6
	}
	if c.Quality.CooldownAfterLossTrades == 0 {
		c.Quality.CooldownAfterLossTrades = 3
	}
	if c.Recon.LiveIntervalSeconds == 0 {
		c.Recon.LiveIntervalSeconds = 2
	}
	if c.Recon.PaperIntervalSeconds == 0 {
		c.Recon.PaperIntervalSeconds = 5
	}
	if c.Recon.BackoffInitialSecs == 0 {
		c.Recon.BackoffInitialSecs = 3
	}
	if c.Recon.BackoffMaxSecs == 0 {
		c.Recon.BackoffMaxSecs = 30
	}
	if c.Recon.BackoffMultiplier == 0 {
		c.Recon.BackoffMultiplier = 1.5
	}
	if c.Journal.Dir == "" {
		c.Journal.Dir = "journal"
	}
	if c.Journal.Backend == "" {
		c.Journal.Backend = "CSV"
	}
	if c.Journal.SQLitePath == "" {
		c.Journal.SQLitePath = "journal/trades.db"
	}
	if c.State.CheckpointPath == "" {
		c.State.CheckpointPath = "paper_state.json"
	}
	if c.Strategy.FastEMA == 0 {
		c.Strategy.FastEMA = 9
	}
	if c.Strategy.SlowEMA == 0 {
		c.Strategy.SlowEMA = 21
	}
	if c.Strategy.ATRPeriod == 0 {
		c.Strategy.ATRPeriod = 14
	}
	if c.Strategy.MinCandles == 0 {
		c.Strategy.MinCandles = 50
	}
	if c.Strategy.EdgeBps == 0 {
		c.Strategy.EdgeBps = 25
	}
	if c.Dashboard.Addr == "" {
		c.Dashboard.Addr = ":8080"
	}
	if c.LotSizes == nil {
		c.LotSizes = map[string]int{}
	}
}

// LotSize returns the configured lot size for a symbol, defaulting to 1
// (cash equities trade in single units).
func (c *Config) LotSize(symbol string) int {
	if n, ok := c.LotSizes[symbol]; ok && n > 0 {
		return n
	}
	return 1
}

// ReconInterval returns the reconciliation poll interval for the mode.
func (c *Config) ReconInterval() float64 {
	if c.Mode == "LIVE" {
		return c.Recon.LiveIntervalSeconds
	}
	return c.Recon.PaperIntervalSeconds
}
