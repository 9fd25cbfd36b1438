package interfaces

import (
	"context"

	"github.com/vikiirv21/kite-algo-trader/internal/types"
)

// OrderRouter sends an order to whichever execution venue the process is
// configured for (paper simulator, replay, or the live broker).
type OrderRouter interface {
	Route(ctx context.Context, req types.OrderReq) (types.OrderResp, error)
	Mode() string
}
