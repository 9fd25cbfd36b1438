package interfaces

import (
	"context"

	"github.com/vikiirv21/kite-algo-trader/internal/types"
)

type Strategy interface {
	Evaluate(ctx context.Context, symbol string, candles []types.Candle) (types.Signal, error)
}
