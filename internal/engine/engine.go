// Package engine runs the per-symbol decision cycle: quote, signal, size,
// cost-gate, route, journal, checkpoint.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vikiirv21/kite-algo-trader/internal/interfaces"
	"github.com/vikiirv21/kite-algo-trader/internal/logger"
	"github.com/vikiirv21/kite-algo-trader/internal/paper"
	"github.com/vikiirv21/kite-algo-trader/internal/risk"
	"github.com/vikiirv21/kite-algo-trader/internal/store"
	"github.com/vikiirv21/kite-algo-trader/internal/types"
)

type Params struct {
	Mode       string
	MinCandles int

	Broker   interfaces.Broker
	Strategy interfaces.Strategy
	Router   interfaces.OrderRouter
	Recorder interfaces.Recorder
	Book     *paper.Broker
	States   *store.StateStore

	Sizer   risk.DynamicPositionSizer
	Costs   risk.CostModel
	Quality *risk.TradeQualityFilter

	LotSize func(symbol string) int
}

// Engine drives one decision cycle per symbol per poll. It owns the
// last-price cache used for checkpoint marking.
type Engine struct {
	p Params

	mu         sync.RWMutex
	lastPrices map[string]float64
}

var _ interfaces.Engine = (*Engine)(nil)

func New(p Params) (*Engine, error) {
	if p.Broker == nil || p.Strategy == nil || p.Router == nil {
		return nil, fmt.Errorf("engine requires broker, strategy and router")
	}
	if p.Book == nil || p.States == nil {
		return nil, fmt.Errorf("engine requires a position book and state store")
	}
	if p.MinCandles <= 0 {
		p.MinCandles = 50
	}
	if p.LotSize == nil {
		p.LotSize = func(string) int { return 1 }
	}
	return &Engine{p: p, lastPrices: map[string]float64{}}, nil
}

// LastPrices returns a copy of the most recent quote per symbol.
func (e *Engine) LastPrices() map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]float64, len(e.lastPrices))
	for k, v := range e.lastPrices {
		out[k] = v
	}
	return out
}

func (e *Engine) setLastPrice(symbol string, price float64) {
	e.mu.Lock()
	e.lastPrices[symbol] = price
	e.mu.Unlock()
}

// Loop polls the universe until the context is cancelled, one Step per
// symbol per tick. A failed step logs and moves on; it never stops the loop.
func Loop(ctx context.Context, stepper interfaces.Engine, universe []string, poll time.Duration) {
	logger.Info(ctx, "Engine loop started", "universe", universe, "poll", poll.String())
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Engine loop stopped")
			return
		case <-ticker.C:
			for _, symbol := range universe {
				if ctx.Err() != nil {
					return
				}
				if _, err := stepper.Step(ctx, symbol); err != nil {
					logger.ErrorWithErr(ctx, "Symbol step failed", err, "symbol", symbol)
				}
			}
		}
	}
}

// Step runs one decision cycle for a symbol.
func (e *Engine) Step(ctx context.Context, symbol string) (*types.StepResult, error) {
	price, err := e.p.Broker.LTP(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("ltp %s: %w", symbol, err)
	}
	e.setLastPrice(symbol, price)

	candles, err := e.p.Broker.RecentCandles(ctx, symbol, e.p.MinCandles)
	if err != nil {
		return nil, fmt.Errorf("candles %s: %w", symbol, err)
	}

	sig, err := e.p.Strategy.Evaluate(ctx, symbol, candles)
	if err != nil {
		return nil, fmt.Errorf("strategy %s: %w", symbol, err)
	}

	result := &types.StepResult{
		Symbol: symbol,
		Signal: sig,
		Price:  price,
		Time:   time.Now().Unix(),
	}

	logger.Signal(ctx, symbol, sig.Action, sig.Confidence, sig.Reason, "price", price)
	if e.p.Recorder != nil {
		if err := e.p.Recorder.RecordSignal(symbol, sig, price); err != nil {
			logger.Warn(ctx, "Failed to journal signal", "symbol", symbol, "error", err)
		}
	}

	if sig.Action != "BUY" && sig.Action != "SELL" {
		result.Reason = "hold"
		return result, nil
	}

	state := e.p.States.LoadPortfolioState(ctx, e.p.Sizer.CapitalBase)
	qty := e.p.Sizer.SizeOrder(ctx, state, symbol, price, sig.Action, e.p.LotSize(symbol))
	if qty == 0 {
		result.Reason = "sized to zero"
		return result, nil
	}
	absQty := qty
	if absQty < 0 {
		absQty = -absQty
	}

	costs := e.p.Costs.Estimate(absQty, price)
	decision := e.p.Quality.Evaluate(ctx, types.TradeProposal{
		Symbol:  symbol,
		Side:    sig.Action,
		Qty:     absQty,
		Price:   price,
		EdgeBps: sig.EdgeBps,
	}, costs)
	if !decision.Approved {
		result.Reason = decision.Reason
		return result, nil
	}

	req := types.OrderReq{Symbol: symbol, Side: sig.Action, Qty: absQty, Price: price, Tag: sig.Reason}
	resp, err := e.p.Router.Route(ctx, req)
	if err != nil {
		result.Reason = "order routing failed"
		return result, fmt.Errorf("route %s: %w", symbol, err)
	}
	result.Orders = append(result.Orders, resp)
	result.Reason = "executed"

	if e.p.Recorder != nil {
		if err := e.p.Recorder.RecordOrder(req, resp); err != nil {
			logger.Warn(ctx, "Failed to journal order", "symbol", symbol, "error", err)
		}
	}
	e.checkpoint(ctx)
	return result, nil
}

// checkpoint persists the book after a fill. Failure logs and trading
// continues on in-memory state.
func (e *Engine) checkpoint(ctx context.Context) {
	if e.p.States == nil {
		return
	}
	cp := store.Checkpoint{
		Broker: e.p.Book.Snapshot(e.LastPrices()),
		Meta:   map[string]any{"mode": e.p.Mode, "source": "engine"},
	}
	if err := e.p.States.Save(ctx, cp); err != nil {
		logger.ErrorWithErr(ctx, "Failed to save checkpoint", err)
	}
}
