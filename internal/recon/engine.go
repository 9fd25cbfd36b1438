package recon

import (
	"context"
	"strings"
	"time"

	"github.com/vikiirv21/kite-algo-trader/internal/execution"
	"github.com/vikiirv21/kite-algo-trader/internal/logger"
	"github.com/vikiirv21/kite-algo-trader/internal/paper"
	"github.com/vikiirv21/kite-algo-trader/internal/store"
	itrace "github.com/vikiirv21/kite-algo-trader/internal/trace"
	"github.com/vikiirv21/kite-algo-trader/internal/types"
)

// PriceSource supplies last-seen quotes for checkpoint marking.
type PriceSource interface {
	LastPrices() map[string]float64
}

// OrderSource is the minimal broker surface a reconciliation pass polls.
// In LIVE mode this is the real broker; in PAPER and REPLAY modes a local
// view over the tracker and paper book stands in, so the same pass runs
// (and stays a no-op when nothing drifted).
type OrderSource interface {
	Orders(ctx context.Context) ([]types.BrokerOrder, error)
	Positions(ctx context.Context) ([]types.BrokerPosition, error)
}

// Backoff configures the broker-poll retry schedule.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// Engine reconciles the local order tracker and paper book against the
// broker's reported state once per polling interval.
type Engine struct {
	mode     string
	broker   OrderSource
	book     *paper.Broker
	tracker  *execution.Tracker
	states   *store.StateStore
	prices   PriceSource
	interval time.Duration
	backoff  Backoff

	events   *eventLog
	handlers []func(Event)
}

type Params struct {
	Mode     string // PAPER, REPLAY or LIVE
	Broker   OrderSource
	Book     *paper.Broker
	Tracker  *execution.Tracker
	States   *store.StateStore
	Prices   PriceSource
	Interval time.Duration
	Backoff  Backoff
}

func New(p Params) *Engine {
	if p.Interval <= 0 {
		p.Interval = 5 * time.Second
	}
	if p.Backoff.Initial <= 0 {
		p.Backoff = Backoff{Initial: 3 * time.Second, Max: 30 * time.Second, Multiplier: 1.5}
	}
	return &Engine{
		mode:     p.Mode,
		broker:   p.Broker,
		book:     p.Book,
		tracker:  p.Tracker,
		states:   p.States,
		prices:   p.Prices,
		interval: p.Interval,
		backoff:  p.Backoff,
		events:   newEventLog(256),
	}
}

// OnEvent registers a handler invoked synchronously for every emitted event.
func (e *Engine) OnEvent(fn func(Event)) {
	e.handlers = append(e.handlers, fn)
}

// RecentEvents returns the tail of the event log.
func (e *Engine) RecentEvents() []Event {
	return e.events.recent()
}

// Run polls until the context is cancelled. Errors never stop the loop: a
// failed cycle logs, backs off and retries.
func (e *Engine) Run(ctx context.Context) {
	logger.Info(ctx, "Reconciliation loop started", "mode", e.mode, "interval", e.interval.String())
	wait := e.backoff.Initial
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Reconciliation loop stopped")
			return
		case <-ticker.C:
			if err := e.safeCycle(ctx); err != nil {
				logger.ErrorWithErr(ctx, "Reconciliation cycle failed", err, "retry_in", wait.String())
				select {
				case <-ctx.Done():
					return
				case <-time.After(wait):
				}
				wait = time.Duration(float64(wait) * e.backoff.Multiplier)
				if wait > e.backoff.Max {
					wait = e.backoff.Max
				}
				continue
			}
			wait = e.backoff.Initial
		}
	}
}

// safeCycle shields the loop from panics inside a cycle.
func (e *Engine) safeCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "Reconciliation cycle panicked", "panic", r)
			time.Sleep(time.Second)
		}
	}()
	return e.ReconcileOnce(ctx)
}

// ReconcileOnce runs a single reconciliation pass: orders, then (LIVE only)
// positions. Applying the same broker snapshot to an already-matching local
// state produces zero events.
func (e *Engine) ReconcileOnce(ctx context.Context) error {
	ctx, span := itrace.StartSpan(ctx, "recon.ReconcileOnce")
	defer span.End()

	remote, err := e.broker.Orders(ctx)
	if err != nil {
		return err
	}

	byID := make(map[string]types.BrokerOrder, len(remote))
	for _, ro := range remote {
		byID[ro.OrderID] = ro
	}

	seen := map[string]bool{}
	for _, local := range e.tracker.All() {
		seen[local.OrderID] = true
		ro, ok := byID[local.OrderID]
		if !ok {
			// No broker counterpart yet; keep the order and retry next cycle.
			if !local.Status.IsTerminal() && local.Status != execution.StatusFilled {
				logger.Debug(ctx, "Order not yet visible at broker", "order_id", local.OrderID)
			}
			continue
		}
		e.resolveOrder(ctx, local, ro)
	}

	// Broker orders with no local counterpart are adopted wholesale.
	for _, ro := range remote {
		if !seen[ro.OrderID] {
			e.adoptOrder(ctx, ro)
		}
	}

	if e.mode == "LIVE" {
		if err := e.reconcilePositions(ctx); err != nil {
			return err
		}
	}
	return nil
}

// resolveOrder applies the discrepancy-resolution rules for one order pair.
func (e *Engine) resolveOrder(ctx context.Context, local *execution.Order, remote types.BrokerOrder) {
	before := string(local.Status)
	remoteStatus := normalizeStatus(remote.Status)

	switch remoteStatus {
	case execution.StatusOpen:
		if local.Status == execution.StatusCreated || local.Status == execution.StatusSubmitted {
			local.Transition(execution.StatusOpen, "confirmed open at broker")
			e.emit(ctx, eventFor(EventOrderUpdated, local, before))
			e.emitDiscrepancy(ctx, local, before, "order acknowledged by broker")
		}

	case execution.StatusFilled:
		if local.Status == execution.StatusFilled && local.FilledQty == remote.FilledQty {
			return // idempotent no-op
		}
		delta := remote.FilledQty - local.FilledQty
		local.FilledQty = remote.FilledQty
		local.AvgPrice = remote.AvgPrice
		local.Transition(execution.StatusFilled, "fill confirmed by broker")
		ev := eventFor(EventOrderFilled, local, before)
		ev.Qty = remote.FilledQty
		ev.Price = remote.AvgPrice
		e.emit(ctx, ev)
		e.applyFill(ctx, local, delta, remote.AvgPrice)
		e.emitDiscrepancy(ctx, local, before, "full fill applied")
		e.checkpoint(ctx)

	case execution.StatusPartial:
		if local.FilledQty == remote.FilledQty {
			return // already caught up
		}
		delta := remote.FilledQty - local.FilledQty
		local.FilledQty = remote.FilledQty
		local.AvgPrice = remote.AvgPrice
		local.Transition(execution.StatusPartial, "partial fill reported by broker")
		ev := eventFor(EventOrderFilled, local, before)
		ev.Qty = delta // delta quantity only
		ev.Price = remote.AvgPrice
		e.emit(ctx, ev)
		e.applyFill(ctx, local, delta, remote.AvgPrice)
		e.emitDiscrepancy(ctx, local, before, "partial fill applied")

	case execution.StatusCancelled:
		if local.Status == execution.StatusCancelled {
			return
		}
		local.Transition(execution.StatusCancelled, "cancelled at broker")
		e.emit(ctx, eventFor(EventOrderCancelled, local, before))
		e.emitDiscrepancy(ctx, local, before, "order cancelled")

	case execution.StatusRejected:
		if local.Status == execution.StatusRejected {
			return
		}
		local.Transition(execution.StatusRejected, "rejected by broker")
		e.emit(ctx, eventFor(EventOrderRejected, local, before))
		// A rejection the local side did not expect is a risk alert.
		logger.Risk(ctx, local.Symbol, "ORDER_REJECTED", "order_id", local.OrderID, "before_status", before)
		e.emitDiscrepancy(ctx, local, before, "order rejected by broker")

	default:
		logger.Debug(ctx, "Unrecognized broker order status", "order_id", local.OrderID, "status", remote.Status)
	}
}

// adoptOrder pulls a broker order the local tracker has never seen into
// local tracking as-is.
func (e *Engine) adoptOrder(ctx context.Context, ro types.BrokerOrder) {
	adopted := &execution.Order{
		OrderID:   ro.OrderID,
		Symbol:    ro.Symbol,
		Side:      ro.Side,
		Qty:       ro.Qty,
		Price:     ro.AvgPrice,
		FilledQty: ro.FilledQty,
		AvgPrice:  ro.AvgPrice,
	}
	adopted.Transition(normalizeStatus(ro.Status), "adopted from broker order book")
	e.tracker.Track(adopted)

	logger.Warn(ctx, "Adopted broker order with no local counterpart",
		"order_id", ro.OrderID, "symbol", ro.Symbol, "status", ro.Status)
	ev := newEvent(EventDiscrepancy)
	ev.OrderID = ro.OrderID
	ev.Symbol = ro.Symbol
	ev.AfterStatus = string(normalizeStatus(ro.Status))
	ev.Message = "broker order absent locally; adopted"
	e.emit(ctx, ev)
}

// applyFill folds a confirmed fill delta into the paper book.
func (e *Engine) applyFill(ctx context.Context, o *execution.Order, deltaQty int, price float64) {
	if deltaQty <= 0 || price <= 0 {
		return
	}
	if err := e.book.ApplyFill(ctx, o.Symbol, o.Side, deltaQty, price); err != nil {
		logger.ErrorWithErr(ctx, "Failed to apply reconciled fill", err,
			"order_id", o.OrderID, "symbol", o.Symbol, "qty", deltaQty)
	}
}

// reconcilePositions compares the local book against the broker's. Any
// single mismatch replaces the whole local book with the broker's: broker
// is truth, no merging.
func (e *Engine) reconcilePositions(ctx context.Context) error {
	remote, err := e.broker.Positions(ctx)
	if err != nil {
		return err
	}

	local := e.book.Snapshot(nil)
	localQty := make(map[string]int, len(local.Positions))
	for _, p := range local.Positions {
		if p.Qty != 0 {
			localQty[p.Symbol] = p.Qty
		}
	}
	remoteQty := make(map[string]int, len(remote))
	for _, p := range remote {
		if p.Qty != 0 {
			remoteQty[p.Symbol] = p.Qty
		}
	}

	if !sameBook(localQty, remoteQty) {
		replacement := make([]paper.Position, 0, len(remote))
		for _, p := range remote {
			replacement = append(replacement, paper.Position{
				Symbol:   p.Symbol,
				Qty:      p.Qty,
				AvgPrice: p.AvgPrice,
			})
		}
		e.book.ReplaceBook(replacement)
		logger.Warn(ctx, "Local position book replaced by broker state",
			"local_positions", len(localQty), "broker_positions", len(remoteQty))

		ev := newEvent(EventPositionSynced)
		ev.Message = "position mismatch: local book replaced wholesale"
		e.emit(ctx, ev)
		e.checkpoint(ctx)
	}
	return nil
}

func sameBook(a, b map[string]int) bool {
	if len(a) != len(b) {
		return false
	}
	for sym, qty := range a {
		if b[sym] != qty {
			return false
		}
	}
	return true
}

func (e *Engine) checkpoint(ctx context.Context) {
	if e.states == nil {
		return
	}
	var last map[string]float64
	if e.prices != nil {
		last = e.prices.LastPrices()
	}
	cp := store.Checkpoint{
		Broker: e.book.Snapshot(last),
		Meta:   map[string]any{"mode": e.mode, "source": "recon"},
	}
	if err := e.states.Save(ctx, cp); err != nil {
		logger.ErrorWithErr(ctx, "Failed to save checkpoint after reconciliation", err)
	}
}

func (e *Engine) emit(ctx context.Context, ev Event) {
	e.events.add(ev)
	for _, fn := range e.handlers {
		fn(ev)
	}
	logger.Info(ctx, "Reconciliation event",
		"event", string(ev.Type), "order_id", ev.OrderID, "symbol", ev.Symbol,
		"before", ev.BeforeStatus, "after", ev.AfterStatus, "qty", ev.Qty)
}

// emitDiscrepancy emits the generic before/after audit event accompanying
// every applied resolution.
func (e *Engine) emitDiscrepancy(ctx context.Context, o *execution.Order, before, msg string) {
	ev := newEvent(EventDiscrepancy)
	ev.OrderID = o.OrderID
	ev.Symbol = o.Symbol
	ev.BeforeStatus = before
	ev.AfterStatus = string(o.Status)
	ev.Message = msg
	e.emit(ctx, ev)
}

func eventFor(t EventType, o *execution.Order, before string) Event {
	ev := newEvent(t)
	ev.OrderID = o.OrderID
	ev.Symbol = o.Symbol
	ev.BeforeStatus = before
	ev.AfterStatus = string(o.Status)
	return ev
}

// normalizeStatus maps Kite's order-status vocabulary onto the local
// lifecycle states.
func normalizeStatus(s string) execution.OrderStatus {
	switch strings.ToUpper(s) {
	case "PLACED", "OPEN", "SUBMITTED", "TRIGGER PENDING", "OPEN PENDING":
		return execution.StatusOpen
	case "COMPLETE", "FILLED":
		return execution.StatusFilled
	case "PARTIAL", "PARTIALLY FILLED":
		return execution.StatusPartial
	case "CANCELLED", "CANCELLED AMO":
		return execution.StatusCancelled
	case "REJECTED":
		return execution.StatusRejected
	default:
		return execution.OrderStatus(strings.ToUpper(s))
	}
}
