package risk

import (
	"context"
	"math"

	"github.com/vikiirv21/kite-algo-trader/internal/logger"
	"github.com/vikiirv21/kite-algo-trader/internal/types"
)

// DynamicPositionSizer converts a signal plus the portfolio snapshot into a
// signed order quantity. It is a conservative sizing heuristic, not an
// optimizer: it caps notional per trade and per portfolio and shrinks size
// after losing days.
type DynamicPositionSizer struct {
	RiskPerTradePct     float64 // fraction of equity risked per trade
	MaxOrderNotionalPct float64 // hard cap on one order's notional, fraction of equity
	MinOrderNotional    float64 // skip orders smaller than this
	MaxTrades           int     // max simultaneously open symbols
	RiskScaleMin        float64
	RiskScaleMax        float64
	RiskDownThreshold   float64 // day PnL pct at which scale bottoms out
	RiskUpThreshold     float64 // day PnL pct at which scale tops out
	CapitalBase         float64
}

// SizeOrder returns the signed quantity to place, or 0 to skip the order.
// The result is always a whole number of lots and never NaN.
func (s DynamicPositionSizer) SizeOrder(ctx context.Context, state types.PortfolioState, symbol string, lastPrice float64, side string, lotSize int) int {
	if lastPrice <= 0 || state.Equity <= 0 {
		return 0
	}
	if state.FreeNotional < s.MinOrderNotional {
		logger.Debug(ctx, "Sizer skip: free notional below minimum",
			"symbol", symbol, "free_notional", state.FreeNotional, "min", s.MinOrderNotional)
		return 0
	}
	if _, open := state.Positions[symbol]; !open && state.OpenPositions >= s.MaxTrades {
		logger.Debug(ctx, "Sizer skip: max open trades reached",
			"symbol", symbol, "open_positions", state.OpenPositions, "max", s.MaxTrades)
		return 0
	}
	if lotSize <= 0 {
		lotSize = 1
	}

	scale := s.riskScale(state.DayPnLPct(s.CapitalBase))
	target := s.RiskPerTradePct * state.Equity * scale
	target = math.Min(target, state.FreeNotional)
	target = math.Min(target, s.MaxOrderNotionalPct*state.Equity)

	lots := math.Floor(target / (lastPrice * float64(lotSize)))
	if lots <= 0 {
		return 0
	}

	qty := int(lots) * lotSize
	if side == "SELL" {
		qty = -qty
	}
	logger.Debug(ctx, "Order sized",
		"symbol", symbol, "side", side, "qty", qty,
		"risk_scale", scale, "target_notional", target, "lot_size", lotSize)
	return qty
}

// riskScale interpolates linearly between the min and max multiplier based
// on today's PnL percentage, clamped to the configured band.
func (s DynamicPositionSizer) riskScale(dayPnLPct float64) float64 {
	span := s.RiskUpThreshold - s.RiskDownThreshold
	if span <= 0 {
		return s.RiskScaleMin
	}
	t := (dayPnLPct - s.RiskDownThreshold) / span
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return s.RiskScaleMin + t*(s.RiskScaleMax-s.RiskScaleMin)
}
