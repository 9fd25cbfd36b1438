package recon

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikiirv21/kite-algo-trader/internal/execution"
	"github.com/vikiirv21/kite-algo-trader/internal/paper"
	"github.com/vikiirv21/kite-algo-trader/internal/types"
)

type fakeSource struct {
	orders    []types.BrokerOrder
	positions []types.BrokerPosition
}

func (f *fakeSource) Orders(ctx context.Context) ([]types.BrokerOrder, error) {
	return f.orders, nil
}

func (f *fakeSource) Positions(ctx context.Context) ([]types.BrokerPosition, error) {
	return f.positions, nil
}

type fixture struct {
	engine  *Engine
	source  *fakeSource
	book    *paper.Broker
	tracker *execution.Tracker
}

func newFixture(t *testing.T, mode string) *fixture {
	t.Helper()
	src := &fakeSource{}
	book := paper.NewBroker()
	tracker := execution.NewTracker()
	eng := New(Params{
		Mode:    mode,
		Broker:  src,
		Book:    book,
		Tracker: tracker,
	})
	return &fixture{engine: eng, source: src, book: book, tracker: tracker}
}

func trackedOrder(tracker *execution.Tracker, id, symbol, side string, qty int, status execution.OrderStatus) *execution.Order {
	o := &execution.Order{OrderID: id, Symbol: symbol, Side: side, Qty: qty, Price: 100}
	o.Transition(status, "test setup")
	tracker.Track(o)
	return o
}

func TestReconcileAcknowledgesOpenOrder(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, "PAPER")
	local := trackedOrder(fx.tracker, "X1", "RELIANCE", "BUY", 10, execution.StatusSubmitted)
	fx.source.orders = []types.BrokerOrder{
		{OrderID: "X1", Symbol: "RELIANCE", Side: "BUY", Status: "OPEN", Qty: 10},
	}

	require.NoError(t, fx.engine.ReconcileOnce(context.Background()))
	assert.Equal(t, execution.StatusOpen, local.Status)

	events := fx.engine.RecentEvents()
	require.Len(t, events, 2)
	assert.Equal(t, EventOrderUpdated, events[0].Type)
	assert.Equal(t, EventDiscrepancy, events[1].Type)
}

func TestReconcileAppliesFullFill(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, "PAPER")
	local := trackedOrder(fx.tracker, "X2", "TCS", "BUY", 10, execution.StatusOpen)
	fx.source.orders = []types.BrokerOrder{
		{OrderID: "X2", Symbol: "TCS", Side: "BUY", Status: "COMPLETE", Qty: 10, FilledQty: 10, AvgPrice: 105},
	}

	require.NoError(t, fx.engine.ReconcileOnce(context.Background()))
	assert.Equal(t, execution.StatusFilled, local.Status)
	assert.Equal(t, 10, local.FilledQty)

	pos := fx.book.Position("TCS")
	assert.Equal(t, 10, pos.Qty)
	assert.InDelta(t, 105.0, pos.AvgPrice, 1e-9)

	var filled []Event
	for _, ev := range fx.engine.RecentEvents() {
		if ev.Type == EventOrderFilled {
			filled = append(filled, ev)
		}
	}
	require.Len(t, filled, 1)
	assert.Equal(t, 10, filled[0].Qty)
	assert.InDelta(t, 105.0, filled[0].Price, 1e-9)
}

func TestReconcileIsIdempotent(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, "PAPER")
	trackedOrder(fx.tracker, "X3", "INFY", "BUY", 5, execution.StatusOpen)
	fx.source.orders = []types.BrokerOrder{
		{OrderID: "X3", Symbol: "INFY", Side: "BUY", Status: "COMPLETE", Qty: 5, FilledQty: 5, AvgPrice: 1500},
	}

	ctx := context.Background()
	require.NoError(t, fx.engine.ReconcileOnce(ctx))
	after := len(fx.engine.RecentEvents())
	require.Positive(t, after)

	// Second pass over the same broker snapshot changes nothing.
	require.NoError(t, fx.engine.ReconcileOnce(ctx))
	assert.Len(t, fx.engine.RecentEvents(), after)
	assert.Equal(t, 5, fx.book.Position("INFY").Qty)
}

func TestReconcilePartialFillDelta(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, "PAPER")
	local := trackedOrder(fx.tracker, "X4", "SBIN", "BUY", 10, execution.StatusOpen)
	ctx := context.Background()

	fx.source.orders = []types.BrokerOrder{
		{OrderID: "X4", Symbol: "SBIN", Side: "BUY", Status: "PARTIALLY FILLED", Qty: 10, FilledQty: 4, AvgPrice: 800},
	}
	require.NoError(t, fx.engine.ReconcileOnce(ctx))
	assert.Equal(t, execution.StatusPartial, local.Status)
	assert.Equal(t, 4, fx.book.Position("SBIN").Qty)

	// The next report only applies the 3-unit delta, not the cumulative 7.
	fx.source.orders[0].FilledQty = 7
	require.NoError(t, fx.engine.ReconcileOnce(ctx))
	assert.Equal(t, 7, local.FilledQty)
	assert.Equal(t, 7, fx.book.Position("SBIN").Qty)

	var deltas []int
	for _, ev := range fx.engine.RecentEvents() {
		if ev.Type == EventOrderFilled {
			deltas = append(deltas, ev.Qty)
		}
	}
	assert.Equal(t, []int{4, 3}, deltas)
}

func TestReconcileCancelAndReject(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, "PAPER")
	cancelled := trackedOrder(fx.tracker, "X5", "ITC", "BUY", 10, execution.StatusOpen)
	rejected := trackedOrder(fx.tracker, "X6", "ITC", "SELL", 10, execution.StatusSubmitted)
	fx.source.orders = []types.BrokerOrder{
		{OrderID: "X5", Symbol: "ITC", Side: "BUY", Status: "CANCELLED", Qty: 10},
		{OrderID: "X6", Symbol: "ITC", Side: "SELL", Status: "REJECTED", Qty: 10},
	}

	require.NoError(t, fx.engine.ReconcileOnce(context.Background()))
	assert.Equal(t, execution.StatusCancelled, cancelled.Status)
	assert.Equal(t, execution.StatusRejected, rejected.Status)
	// Neither touches the book.
	assert.Zero(t, fx.book.Position("ITC").Qty)

	seen := map[EventType]bool{}
	for _, ev := range fx.engine.RecentEvents() {
		seen[ev.Type] = true
	}
	assert.True(t, seen[EventOrderCancelled])
	assert.True(t, seen[EventOrderRejected])
}

func TestReconcileAdoptsUnknownBrokerOrder(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, "PAPER")
	fx.source.orders = []types.BrokerOrder{
		{OrderID: "MANUAL-1", Symbol: "HDFCBANK", Side: "BUY", Status: "OPEN", Qty: 20, AvgPrice: 1600},
	}

	require.NoError(t, fx.engine.ReconcileOnce(context.Background()))
	adopted, ok := fx.tracker.Get("MANUAL-1")
	require.True(t, ok)
	assert.Equal(t, execution.StatusOpen, adopted.Status)
	assert.Equal(t, "HDFCBANK", adopted.Symbol)

	events := fx.engine.RecentEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventDiscrepancy, events[0].Type)
}

func TestLivePositionMismatchReplacesBook(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, "LIVE")
	require.NoError(t, fx.book.ApplyFill(context.Background(), "RELIANCE", "BUY", 10, 100))

	fx.source.positions = []types.BrokerPosition{
		{Symbol: "RELIANCE", Qty: 15, AvgPrice: 101},
		{Symbol: "TCS", Qty: -5, AvgPrice: 3000},
	}
	require.NoError(t, fx.engine.ReconcileOnce(context.Background()))

	assert.Equal(t, 15, fx.book.Position("RELIANCE").Qty)
	assert.Equal(t, -5, fx.book.Position("TCS").Qty)

	var synced bool
	for _, ev := range fx.engine.RecentEvents() {
		if ev.Type == EventPositionSynced {
			synced = true
		}
	}
	assert.True(t, synced)
}

func TestLiveMatchingPositionsUntouched(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, "LIVE")
	require.NoError(t, fx.book.ApplyFill(context.Background(), "RELIANCE", "BUY", 10, 100))

	fx.source.positions = []types.BrokerPosition{
		{Symbol: "RELIANCE", Qty: 10, AvgPrice: 100},
	}
	require.NoError(t, fx.engine.ReconcileOnce(context.Background()))
	assert.Empty(t, fx.engine.RecentEvents())
	// Local average survives because the book was not replaced.
	assert.InDelta(t, 100.0, fx.book.Position("RELIANCE").AvgPrice, 1e-9)
}

func TestPaperModeSkipsPositionReconciliation(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, "PAPER")
	require.NoError(t, fx.book.ApplyFill(context.Background(), "RELIANCE", "BUY", 10, 100))
	// A divergent broker position book is ignored outside LIVE.
	fx.source.positions = []types.BrokerPosition{{Symbol: "RELIANCE", Qty: 99}}

	require.NoError(t, fx.engine.ReconcileOnce(context.Background()))
	assert.Equal(t, 10, fx.book.Position("RELIANCE").Qty)
}

func TestLocalSourceRoundTripIsNoOp(t *testing.T) {
	t.Parallel()
	book := paper.NewBroker()
	tracker := execution.NewTracker()
	ctx := context.Background()

	order, err := book.PlaceOrder(ctx, "RELIANCE", "BUY", 10, 100)
	require.NoError(t, err)
	tracked := &execution.Order{
		OrderID: order.OrderID, Symbol: order.Symbol, Side: order.Side,
		Qty: order.Qty, Price: order.Price, FilledQty: order.Qty, AvgPrice: order.Price,
	}
	tracked.Transition(execution.StatusFilled, "paper fill")
	tracker.Track(tracked)

	eng := New(Params{
		Mode:    "PAPER",
		Broker:  NewLocalSource(tracker, book),
		Book:    book,
		Tracker: tracker,
	})
	require.NoError(t, eng.ReconcileOnce(ctx))
	assert.Empty(t, eng.RecentEvents())
	assert.Equal(t, 10, book.Position("RELIANCE").Qty)
}
