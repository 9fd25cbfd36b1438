package interfaces

import "github.com/vikiirv21/kite-algo-trader/internal/types"

// Recorder journals signals and orders. Implementations are append-only;
// a failed write must never fail the trading path.
type Recorder interface {
	RecordSignal(symbol string, sig types.Signal, price float64) error
	RecordOrder(req types.OrderReq, resp types.OrderResp) error
	Close() error
}
