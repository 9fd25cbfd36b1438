package interfaces

import (
	"context"

	"github.com/vikiirv21/kite-algo-trader/internal/types"
)

type Broker interface {
	LTP(ctx context.Context, symbol string) (float64, error)
	RecentCandles(ctx context.Context, symbol string, n int) ([]types.Candle, error)
	PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error)
	Orders(ctx context.Context) ([]types.BrokerOrder, error)
	Positions(ctx context.Context) ([]types.BrokerPosition, error)
	Start(ctx context.Context, symbols []string) error
	Stop(ctx context.Context)
}
