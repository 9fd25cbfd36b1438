// Package brokerobs adds tracing and logging around a Broker implementation.
package brokerobs

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/vikiirv21/kite-algo-trader/internal/interfaces"
	"github.com/vikiirv21/kite-algo-trader/internal/logger"
	"github.com/vikiirv21/kite-algo-trader/internal/trace"
	"github.com/vikiirv21/kite-algo-trader/internal/types"
)

type observed struct {
	next interfaces.Broker
}

var _ interfaces.Broker = (*observed)(nil)

// Wrap decorates a Broker with spans and debug logs per call.
func Wrap(next interfaces.Broker) interfaces.Broker {
	return &observed{next: next}
}

func (o *observed) LTP(ctx context.Context, symbol string) (float64, error) {
	ctx, span := trace.StartSpan(ctx, "broker.LTP",
		oteltrace.WithAttributes(attribute.String("symbol", symbol)))
	defer span.End()

	start := time.Now()
	price, err := o.next.LTP(ctx, symbol)
	elapsed := time.Since(start)

	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "broker LTP failed", err, "symbol", symbol, "elapsed", elapsed)
		return 0, err
	}
	span.SetAttributes(attribute.Float64("price", price))
	logger.DebugSkip(ctx, 1, "broker LTP", "symbol", symbol, "price", price, "elapsed", elapsed)
	return price, nil
}

func (o *observed) RecentCandles(ctx context.Context, symbol string, n int) ([]types.Candle, error) {
	ctx, span := trace.StartSpan(ctx, "broker.RecentCandles",
		oteltrace.WithAttributes(
			attribute.String("symbol", symbol),
			attribute.Int("requested", n),
		))
	defer span.End()

	candles, err := o.next.RecentCandles(ctx, symbol, n)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "broker candles failed", err, "symbol", symbol)
		return nil, err
	}
	span.SetAttributes(attribute.Int("returned", len(candles)))
	logger.DebugSkip(ctx, 1, "broker candles", "symbol", symbol, "count", len(candles))
	return candles, nil
}

func (o *observed) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	ctx, span := trace.StartSpan(ctx, "broker.PlaceOrder",
		oteltrace.WithAttributes(
			attribute.String("symbol", req.Symbol),
			attribute.String("side", req.Side),
			attribute.Int("qty", req.Qty),
		))
	defer span.End()

	start := time.Now()
	resp, err := o.next.PlaceOrder(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "broker order failed", err,
			"symbol", req.Symbol, "side", req.Side, "qty", req.Qty, "elapsed", elapsed)
		return resp, err
	}
	span.SetAttributes(
		attribute.String("order_id", resp.OrderID),
		attribute.String("status", resp.Status),
	)
	logger.InfoSkip(ctx, 1, "broker order placed",
		"symbol", req.Symbol, "side", req.Side, "qty", req.Qty,
		"order_id", resp.OrderID, "status", resp.Status, "elapsed", elapsed)
	return resp, nil
}

func (o *observed) Orders(ctx context.Context) ([]types.BrokerOrder, error) {
	ctx, span := trace.StartSpan(ctx, "broker.Orders")
	defer span.End()

	orders, err := o.next.Orders(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "broker order poll failed", err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("count", len(orders)))
	logger.DebugSkip(ctx, 1, "broker order poll", "count", len(orders))
	return orders, nil
}

func (o *observed) Positions(ctx context.Context) ([]types.BrokerPosition, error) {
	ctx, span := trace.StartSpan(ctx, "broker.Positions")
	defer span.End()

	positions, err := o.next.Positions(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "broker position poll failed", err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("count", len(positions)))
	logger.DebugSkip(ctx, 1, "broker position poll", "count", len(positions))
	return positions, nil
}

func (o *observed) Start(ctx context.Context, symbols []string) error {
	ctx, span := trace.StartSpan(ctx, "broker.Start",
		oteltrace.WithAttributes(attribute.Int("symbols", len(symbols))))
	defer span.End()

	if err := o.next.Start(ctx, symbols); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "broker start failed", err)
		return err
	}
	return nil
}

func (o *observed) Stop(ctx context.Context) {
	ctx, span := trace.StartSpan(ctx, "broker.Stop")
	defer span.End()
	o.next.Stop(ctx)
}
