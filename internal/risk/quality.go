package risk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vikiirv21/kite-algo-trader/internal/logger"
	"github.com/vikiirv21/kite-algo-trader/internal/types"
)

// TradeQualityFilter is the last gate before execution: an edge-after-cost
// threshold, a per-symbol daily trade cap and a loss-streak cooldown that
// raises the bar instead of blocking outright.
type TradeQualityFilter struct {
	MinEdgeAfterCostsBps     float64
	MaxTradesPerSymbolPerDay int
	CooldownAfterLossTrades  int

	mu         sync.Mutex
	dayCounts  map[string]int // keyed "SYMBOL|2006-01-02"; never pruned, reset by restart
	lossStreak map[string]int
	now        func() time.Time
}

func NewTradeQualityFilter(minEdgeBps float64, maxPerDay, cooldownTrades int) *TradeQualityFilter {
	return &TradeQualityFilter{
		MinEdgeAfterCostsBps:     minEdgeBps,
		MaxTradesPerSymbolPerDay: maxPerDay,
		CooldownAfterLossTrades:  cooldownTrades,
		dayCounts:                map[string]int{},
		lossStreak:               map[string]int{},
		now:                      istNow,
	}
}

func istNow() time.Time {
	return time.Now().In(time.FixedZone("IST", 19800))
}

func (f *TradeQualityFilter) dayKey(symbol string) string {
	return symbol + "|" + f.now().Format("2006-01-02")
}

// Evaluate decides whether a sized proposal is worth executing. Accepting a
// proposal counts against the symbol's daily cap as a side effect.
func (f *TradeQualityFilter) Evaluate(ctx context.Context, proposal types.TradeProposal, costs types.CostBreakdown) types.TradeDecision {
	if proposal.Qty <= 0 || proposal.Notional() <= 0 {
		return types.TradeDecision{Approved: false, Reason: "empty proposal"}
	}

	notional := proposal.Notional()
	netEdgeBps := (proposal.EdgeBps/10000*notional - costs.Total) / notional * 10000

	if netEdgeBps < f.MinEdgeAfterCostsBps {
		logger.Risk(ctx, proposal.Symbol, "TRADE_REJECTED_EDGE",
			"net_edge_bps", netEdgeBps, "min_edge_bps", f.MinEdgeAfterCostsBps, "cost_total", costs.Total)
		return types.TradeDecision{
			Approved:   false,
			Reason:     fmt.Sprintf("net edge %.1f bps below minimum %.1f", netEdgeBps, f.MinEdgeAfterCostsBps),
			NetEdgeBps: netEdgeBps,
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := f.dayKey(proposal.Symbol)
	if f.dayCounts[key] >= f.MaxTradesPerSymbolPerDay {
		logger.Risk(ctx, proposal.Symbol, "TRADE_REJECTED_DAILY_CAP",
			"count", f.dayCounts[key], "cap", f.MaxTradesPerSymbolPerDay)
		return types.TradeDecision{
			Approved:   false,
			Reason:     fmt.Sprintf("daily trade cap %d reached", f.MaxTradesPerSymbolPerDay),
			NetEdgeBps: netEdgeBps,
		}
	}

	// Cooldown raises the edge bar by 1.5x rather than blocking.
	if f.lossStreak[proposal.Symbol] >= f.CooldownAfterLossTrades &&
		netEdgeBps < 1.5*f.MinEdgeAfterCostsBps {
		logger.Risk(ctx, proposal.Symbol, "TRADE_REJECTED_COOLDOWN",
			"loss_streak", f.lossStreak[proposal.Symbol], "net_edge_bps", netEdgeBps)
		return types.TradeDecision{
			Approved:   false,
			Reason:     "loss-streak cooldown: edge below raised threshold",
			NetEdgeBps: netEdgeBps,
		}
	}

	f.dayCounts[key]++
	return types.TradeDecision{Approved: true, Reason: "ok", NetEdgeBps: netEdgeBps}
}

// RecordLoss bumps the symbol's loss streak; RecordWin resets it.
//
// TODO: nothing calls these yet. Hooking them into realized-PnL deltas
// from the paper broker needs a decision on what counts as a losing
// trade (per fill vs per round trip).
func (f *TradeQualityFilter) RecordLoss(symbol string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lossStreak[symbol]++
}

func (f *TradeQualityFilter) RecordWin(symbol string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lossStreak[symbol] = 0
}

// TradesToday reports the symbol's count against the daily cap.
func (f *TradeQualityFilter) TradesToday(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dayCounts[f.dayKey(symbol)]
}
