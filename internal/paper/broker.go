// Package paper implements the in-memory paper-trading broker: an order
// journal plus a position book with realized/unrealized PnL accounting.
package paper

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/vikiirv21/kite-algo-trader/internal/logger"
	"github.com/vikiirv21/kite-algo-trader/internal/store"
)

// Position is the net book entry for one symbol. Qty is signed: positive is
// net long, negative net short, zero flat. AvgPrice is meaningful only while
// Qty != 0. RealizedPnL accumulates for the broker's whole lifetime.
type Position struct {
	Symbol      string  `json:"symbol"`
	Qty         int     `json:"qty"`
	AvgPrice    float64 `json:"avg_price"`
	RealizedPnL float64 `json:"realized_pnl"`
}

// Order is an entry in the append-only fill journal. Paper orders fill
// immediately at the requested price.
type Order struct {
	OrderID string    `json:"order_id"`
	Symbol  string    `json:"symbol"`
	Side    string    `json:"side"`
	Qty     int       `json:"qty"`
	Price   float64   `json:"price"`
	Status  string    `json:"status"`
	Ts      time.Time `json:"ts"`
}

const StatusFilled = "FILLED"

// Broker owns the paper position book. A single engine writes to it; the
// mutex exists because the reconciliation loop and checkpointing read
// snapshots concurrently.
type Broker struct {
	mu        sync.Mutex
	positions map[string]*Position
	orders    []Order
}

func NewBroker() *Broker {
	return &Broker{positions: map[string]*Position{}}
}

// PlaceOrder validates, journals and immediately fills an order, then
// updates the position book.
func (b *Broker) PlaceOrder(ctx context.Context, symbol, side string, qty int, price float64) (Order, error) {
	if qty <= 0 {
		return Order{}, fmt.Errorf("paper order quantity must be positive, got %d", qty)
	}
	side = strings.ToUpper(side)
	if side != "BUY" && side != "SELL" {
		return Order{}, fmt.Errorf("paper order side must be BUY or SELL, got %q", side)
	}

	order := Order{
		OrderID: "PAPER-" + ulid.Make().String(),
		Symbol:  symbol,
		Side:    side,
		Qty:     qty,
		Price:   price,
		Status:  StatusFilled,
		Ts:      time.Now(),
	}

	b.mu.Lock()
	b.orders = append(b.orders, order)
	b.updatePosition(symbol, side, qty, price)
	pos := *b.positions[symbol]
	b.mu.Unlock()

	logger.Trade(ctx, symbol, side, qty, price, order.OrderID,
		"position_qty", pos.Qty,
		"position_avg", pos.AvgPrice,
		"realized_pnl", pos.RealizedPnL,
	)
	return order, nil
}

// ApplyFill updates the position book for a fill that was confirmed
// externally (reconciliation), without journaling a new paper order.
func (b *Broker) ApplyFill(ctx context.Context, symbol, side string, qty int, price float64) error {
	if qty <= 0 {
		return fmt.Errorf("fill quantity must be positive, got %d", qty)
	}
	side = strings.ToUpper(side)
	if side != "BUY" && side != "SELL" {
		return fmt.Errorf("fill side must be BUY or SELL, got %q", side)
	}
	b.mu.Lock()
	b.updatePosition(symbol, side, qty, price)
	b.mu.Unlock()
	logger.Debug(ctx, "External fill applied", "symbol", symbol, "side", side, "qty", qty, "price", price)
	return nil
}

// updatePosition applies a signed fill to the book. Callers hold b.mu.
//
// Rules, in order:
//   - flat book opens at the fill price
//   - same-direction fills move the average, never the realized PnL
//   - opposite fills book PnL on the reduced quantity; a partial exit keeps
//     the average, a full exit zeroes it, and a flip re-enters at the fill
//     price on the other side
func (b *Broker) updatePosition(symbol, side string, qty int, price float64) {
	delta := qty
	if side == "SELL" {
		delta = -qty
	}

	pos := b.positions[symbol]
	if pos == nil {
		pos = &Position{Symbol: symbol}
		b.positions[symbol] = pos
	}

	oldQty := pos.Qty
	switch {
	case oldQty == 0:
		pos.Qty = delta
		pos.AvgPrice = price

	case sameSign(oldQty, delta):
		oldAbs := math.Abs(float64(oldQty))
		addAbs := math.Abs(float64(delta))
		pos.AvgPrice = (pos.AvgPrice*oldAbs + price*addAbs) / (oldAbs + addAbs)
		pos.Qty = oldQty + delta

	default:
		pnlPerUnit := price - pos.AvgPrice
		if oldQty < 0 {
			pnlPerUnit = pos.AvgPrice - price
		}
		closeQty := math.Min(math.Abs(float64(delta)), math.Abs(float64(oldQty)))
		pos.RealizedPnL += pnlPerUnit * closeQty

		remaining := oldQty + delta
		pos.Qty = remaining
		if remaining == 0 {
			pos.AvgPrice = 0
		} else if !sameSign(oldQty, remaining) {
			// flip: the exit price is the entry of the new side
			pos.AvgPrice = price
		}
	}
}

func sameSign(a, b int) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

// Position returns a copy of the book entry for a symbol; the zero value if
// the symbol has never traded.
func (b *Broker) Position(symbol string) Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p := b.positions[symbol]; p != nil {
		return *p
	}
	return Position{Symbol: symbol}
}

// Orders returns a copy of the fill journal.
func (b *Broker) Orders() []Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Order, len(b.orders))
	copy(out, b.orders)
	return out
}

// ReplaceBook discards the local position book and installs the broker's
// reported one. Realized PnL on surviving symbols is preserved; reported
// symbols the book never saw start at zero realized.
func (b *Broker) ReplaceBook(positions []Position) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fresh := make(map[string]*Position, len(positions))
	for _, p := range positions {
		np := p
		if old := b.positions[np.Symbol]; old != nil && np.RealizedPnL == 0 {
			np.RealizedPnL = old.RealizedPnL
		}
		fresh[np.Symbol] = &np
	}
	b.positions = fresh
}

// Snapshot produces the serializable broker state for the checkpoint file.
// Unrealized PnL marks each position against lastPrices, falling back to the
// entry average when no quote is available. The signed-quantity convention
// makes the same formula correct for shorts. Reading mutates nothing.
func (b *Broker) Snapshot(lastPrices map[string]float64) store.BrokerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := store.BrokerState{
		Positions: make([]store.PositionState, 0, len(b.positions)),
		Orders:    make([]store.OrderState, 0, len(b.orders)),
	}
	for _, p := range b.positions {
		last, ok := lastPrices[p.Symbol]
		if !ok || last == 0 {
			last = p.AvgPrice
		}
		state.Positions = append(state.Positions, store.PositionState{
			Symbol:        p.Symbol,
			Qty:           p.Qty,
			AvgPrice:      p.AvgPrice,
			LastPrice:     last,
			RealizedPnL:   p.RealizedPnL,
			UnrealizedPnL: (last - p.AvgPrice) * float64(p.Qty),
		})
	}
	sort.Slice(state.Positions, func(i, j int) bool {
		return state.Positions[i].Symbol < state.Positions[j].Symbol
	})
	for _, o := range b.orders {
		state.Orders = append(state.Orders, store.OrderState{
			OrderID: o.OrderID,
			Symbol:  o.Symbol,
			Side:    o.Side,
			Qty:     o.Qty,
			Price:   o.Price,
			Status:  o.Status,
			Ts:      o.Ts,
		})
	}
	return state
}
