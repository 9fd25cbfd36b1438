// Package strategy produces trade signals from candle history. Strategies
// are black boxes to the execution path: a signal is action, reason and
// confidence, nothing more.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/vikiirv21/kite-algo-trader/internal/interfaces"
	"github.com/vikiirv21/kite-algo-trader/internal/logger"
	"github.com/vikiirv21/kite-algo-trader/internal/ta"
	"github.com/vikiirv21/kite-algo-trader/internal/types"
)

// EMATrend signals on fast/slow EMA crossovers, with confidence scaled by
// the spread between the averages relative to ATR.
type EMATrend struct {
	Fast       int
	Slow       int
	ATRPeriod  int
	MinCandles int
	EdgeBps    float64 // assumed gross edge attached to a crossover signal
}

var _ interfaces.Strategy = (*EMATrend)(nil)

func NewEMATrend(fast, slow, atrPeriod, minCandles int, edgeBps float64) *EMATrend {
	return &EMATrend{Fast: fast, Slow: slow, ATRPeriod: atrPeriod, MinCandles: minCandles, EdgeBps: edgeBps}
}

func (s *EMATrend) Evaluate(ctx context.Context, symbol string, candles []types.Candle) (types.Signal, error) {
	if len(candles) < s.MinCandles {
		return types.Signal{}, errors.New("not enough candles")
	}

	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	fastNow := ta.EMA(closes, s.Fast)
	slowNow := ta.EMA(closes, s.Slow)
	fastPrev := ta.EMA(closes[:len(closes)-1], s.Fast)
	slowPrev := ta.EMA(closes[:len(closes)-1], s.Slow)
	atr := ta.ATR(highs, lows, closes, s.ATRPeriod)

	if math.IsNaN(fastNow) || math.IsNaN(slowNow) || math.IsNaN(fastPrev) || math.IsNaN(slowPrev) {
		return types.Signal{}, errors.New("indicator window larger than candle history")
	}

	sig := types.Signal{Action: "HOLD", Reason: "no crossover"}
	switch {
	case fastPrev <= slowPrev && fastNow > slowNow:
		sig = types.Signal{
			Action:     "BUY",
			Reason:     fmt.Sprintf("fast EMA(%d) crossed above slow EMA(%d)", s.Fast, s.Slow),
			Confidence: crossConfidence(fastNow, slowNow, atr),
			EdgeBps:    s.EdgeBps,
		}
	case fastPrev >= slowPrev && fastNow < slowNow:
		sig = types.Signal{
			Action:     "SELL",
			Reason:     fmt.Sprintf("fast EMA(%d) crossed below slow EMA(%d)", s.Fast, s.Slow),
			Confidence: crossConfidence(fastNow, slowNow, atr),
			EdgeBps:    s.EdgeBps,
		}
	}

	logger.Debug(ctx, "EMA trend evaluated",
		"symbol", symbol, "fast", fastNow, "slow", slowNow, "atr", atr, "action", sig.Action)
	return sig, nil
}

// crossConfidence maps the EMA spread in ATR units onto (0,1].
func crossConfidence(fast, slow, atr float64) float64 {
	if math.IsNaN(atr) || atr <= 0 {
		return 0.5
	}
	spread := math.Abs(fast-slow) / atr
	if spread > 1 {
		spread = 1
	}
	return 0.5 + spread/2
}
