package recon

import (
	"context"

	"github.com/vikiirv21/kite-algo-trader/internal/execution"
	"github.com/vikiirv21/kite-algo-trader/internal/paper"
	"github.com/vikiirv21/kite-algo-trader/internal/types"
)

// LocalSource exposes the tracker and paper book through the OrderSource
// surface. PAPER and REPLAY modes reconcile against it, which keeps the
// resolution path exercised and verifies the pass is a no-op when local
// state already matches.
type LocalSource struct {
	tracker *execution.Tracker
	book    *paper.Broker
}

var _ OrderSource = (*LocalSource)(nil)

func NewLocalSource(tracker *execution.Tracker, book *paper.Broker) *LocalSource {
	return &LocalSource{tracker: tracker, book: book}
}

func (s *LocalSource) Orders(ctx context.Context) ([]types.BrokerOrder, error) {
	locals := s.tracker.All()
	out := make([]types.BrokerOrder, 0, len(locals))
	for _, o := range locals {
		out = append(out, types.BrokerOrder{
			OrderID:   o.OrderID,
			Symbol:    o.Symbol,
			Side:      o.Side,
			Status:    string(o.Status),
			Qty:       o.Qty,
			FilledQty: o.FilledQty,
			AvgPrice:  o.AvgPrice,
		})
	}
	return out, nil
}

func (s *LocalSource) Positions(ctx context.Context) ([]types.BrokerPosition, error) {
	snap := s.book.Snapshot(nil)
	out := make([]types.BrokerPosition, 0, len(snap.Positions))
	for _, p := range snap.Positions {
		if p.Qty == 0 {
			continue
		}
		out = append(out, types.BrokerPosition{
			Symbol:   p.Symbol,
			Qty:      p.Qty,
			AvgPrice: p.AvgPrice,
		})
	}
	return out, nil
}
