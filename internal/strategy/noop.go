package strategy

import (
	"context"

	"github.com/vikiirv21/kite-algo-trader/internal/logger"
	"github.com/vikiirv21/kite-algo-trader/internal/types"
)

// Noop always holds. Used when no strategy is configured.
type Noop struct{}

func NewNoop() *Noop {
	return &Noop{}
}

func (s *Noop) Evaluate(ctx context.Context, symbol string, candles []types.Candle) (types.Signal, error) {
	logger.Debug(ctx, "Noop strategy called - always returns HOLD", "symbol", symbol)
	return types.Signal{Action: "HOLD", Reason: "noop_strategy", Confidence: 0}, nil
}
