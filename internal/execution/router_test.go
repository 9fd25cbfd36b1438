package execution

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikiirv21/kite-algo-trader/internal/paper"
	"github.com/vikiirv21/kite-algo-trader/internal/types"
)

type fakeBroker struct {
	placed []types.OrderReq
	fail   bool
}

func (f *fakeBroker) LTP(ctx context.Context, symbol string) (float64, error) { return 100, nil }
func (f *fakeBroker) RecentCandles(ctx context.Context, symbol string, n int) ([]types.Candle, error) {
	return nil, nil
}
func (f *fakeBroker) Orders(ctx context.Context) ([]types.BrokerOrder, error)       { return nil, nil }
func (f *fakeBroker) Positions(ctx context.Context) ([]types.BrokerPosition, error) { return nil, nil }
func (f *fakeBroker) Start(ctx context.Context, symbols []string) error             { return nil }
func (f *fakeBroker) Stop(ctx context.Context)                                      {}

func (f *fakeBroker) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	if f.fail {
		return types.OrderResp{}, errors.New("broker down")
	}
	f.placed = append(f.placed, req)
	return types.OrderResp{OrderID: "KITE-1", Status: "PLACED"}, nil
}

func TestRoutePaperFillsAndTracks(t *testing.T) {
	t.Parallel()
	book := paper.NewBroker()
	tracker := NewTracker()
	r := NewRouter("PAPER", book, nil, tracker)

	resp, err := r.Route(context.Background(), types.OrderReq{
		Symbol: "RELIANCE", Side: "BUY", Qty: 10, Price: 2500,
	})
	require.NoError(t, err)
	assert.Equal(t, "FILLED", resp.Status)

	assert.Equal(t, 10, book.Position("RELIANCE").Qty)

	tracked, ok := tracker.Get(resp.OrderID)
	require.True(t, ok)
	assert.Equal(t, StatusFilled, tracked.Status)
	assert.Equal(t, 10, tracked.FilledQty)

	// The lifecycle audit trail is complete: created, submitted, filled.
	require.Len(t, tracked.Events, 3)
	assert.Equal(t, StatusCreated, tracked.Events[0].Status)
	assert.Equal(t, StatusSubmitted, tracked.Events[1].Status)
	assert.Equal(t, StatusFilled, tracked.Events[2].Status)
}

func TestRouteLiveTracksSubmitted(t *testing.T) {
	t.Parallel()
	broker := &fakeBroker{}
	tracker := NewTracker()
	r := NewRouter("LIVE", paper.NewBroker(), broker, tracker)

	resp, err := r.Route(context.Background(), types.OrderReq{
		Symbol: "TCS", Side: "SELL", Qty: 5, Price: 3000,
	})
	require.NoError(t, err)
	assert.Equal(t, "KITE-1", resp.OrderID)
	require.Len(t, broker.placed, 1)

	tracked, ok := tracker.Get("KITE-1")
	require.True(t, ok)
	// Live orders wait for reconciliation to confirm fills.
	assert.Equal(t, StatusSubmitted, tracked.Status)
	assert.Zero(t, tracked.FilledQty)
}

func TestRouteLiveErrors(t *testing.T) {
	t.Parallel()
	tracker := NewTracker()

	r := NewRouter("LIVE", paper.NewBroker(), nil, tracker)
	_, err := r.Route(context.Background(), types.OrderReq{Symbol: "TCS", Side: "BUY", Qty: 1, Price: 1})
	assert.Error(t, err)

	r = NewRouter("LIVE", paper.NewBroker(), &fakeBroker{fail: true}, tracker)
	_, err = r.Route(context.Background(), types.OrderReq{Symbol: "TCS", Side: "BUY", Qty: 1, Price: 1})
	assert.Error(t, err)
	assert.Zero(t, tracker.Len())
}

func TestOrderTransitionAppendsEvents(t *testing.T) {
	t.Parallel()
	o := &Order{OrderID: "X", Symbol: "RELIANCE"}
	o.Transition(StatusCreated, "created")
	o.Transition(StatusOpen, "acknowledged")
	o.Transition(StatusCancelled, "cancelled")

	assert.Equal(t, StatusCancelled, o.Status)
	require.Len(t, o.Events, 3)
	assert.True(t, o.Status.IsTerminal())
	assert.False(t, StatusOpen.IsTerminal())
}
