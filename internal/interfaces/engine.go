package interfaces

import (
	"context"

	"github.com/vikiirv21/kite-algo-trader/internal/types"
)

type Engine interface {
	Step(ctx context.Context, symbol string) (*types.StepResult, error)
}
