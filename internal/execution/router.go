package execution

import (
	"context"
	"fmt"

	"github.com/vikiirv21/kite-algo-trader/internal/interfaces"
	"github.com/vikiirv21/kite-algo-trader/internal/logger"
	"github.com/vikiirv21/kite-algo-trader/internal/paper"
	"github.com/vikiirv21/kite-algo-trader/internal/types"
)

// Router sends orders to the venue matching the process mode: PAPER and
// REPLAY fill against the paper broker, LIVE goes to the Kite client. Every
// routed order is registered with the tracker for reconciliation.
type Router struct {
	mode    string
	paper   *paper.Broker
	live    interfaces.Broker
	tracker *Tracker
}

var _ interfaces.OrderRouter = (*Router)(nil)

func NewRouter(mode string, pb *paper.Broker, live interfaces.Broker, tracker *Tracker) *Router {
	return &Router{mode: mode, paper: pb, live: live, tracker: tracker}
}

func (r *Router) Mode() string { return r.mode }

func (r *Router) Route(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	if r.mode == "LIVE" {
		return r.routeLive(ctx, req)
	}
	return r.routePaper(ctx, req)
}

func (r *Router) routePaper(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	order, err := r.paper.PlaceOrder(ctx, req.Symbol, req.Side, req.Qty, req.Price)
	if err != nil {
		return types.OrderResp{}, err
	}

	tracked := &Order{
		OrderID: order.OrderID,
		Symbol:  order.Symbol,
		Side:    order.Side,
		Qty:     order.Qty,
		Price:   order.Price,
	}
	tracked.Transition(StatusCreated, "paper order created")
	tracked.Transition(StatusSubmitted, "paper order submitted")
	tracked.FilledQty = order.Qty
	tracked.AvgPrice = order.Price
	tracked.Transition(StatusFilled, "paper order filled immediately")
	r.tracker.Track(tracked)

	return types.OrderResp{OrderID: order.OrderID, Status: order.Status, Message: "paper fill"}, nil
}

func (r *Router) routeLive(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	if r.live == nil {
		return types.OrderResp{}, fmt.Errorf("live mode configured without a broker client")
	}
	resp, err := r.live.PlaceOrder(ctx, req)
	if err != nil {
		return types.OrderResp{}, err
	}

	tracked := &Order{
		OrderID: resp.OrderID,
		Symbol:  req.Symbol,
		Side:    req.Side,
		Qty:     req.Qty,
		Price:   req.Price,
	}
	tracked.Transition(StatusCreated, "order created")
	tracked.Transition(StatusSubmitted, "submitted to broker")
	r.tracker.Track(tracked)

	logger.Info(ctx, "Live order submitted",
		"symbol", req.Symbol, "side", req.Side, "qty", req.Qty, "order_id", resp.OrderID)
	return resp, nil
}
