// Package engineobs adds tracing and logging around an Engine implementation.
package engineobs

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
	next interfaces.Engine
}

var _ interfaces.Engine = (*observed)(nil)

// Wrap decorates an Engine with spans and per-step logs.
func Wrap(next interfaces.Engine) interfaces.Engine {
	return &observed{next: next}
}

func (o *observed) Step(ctx context.Context, symbol string) (*types.StepResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.step",
		oteltrace.WithAttributes(attribute.String("symbol", symbol)))
	defer span.End()

	start := time.Now()
	result, err := o.next.Step(ctx, symbol)
	elapsed := time.Since(start)

	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "engine step failed", err, "symbol", symbol, "elapsed", elapsed)
		return result, err
	}
	span.SetAttributes(
		attribute.String("action", result.Signal.Action),
		attribute.String("reason", result.Reason),
		attribute.Int("orders", len(result.Orders)),
	)
	logger.DebugSkip(ctx, 1, "engine step",
		"symbol", symbol, "action", result.Signal.Action,
		"reason", result.Reason, "orders", len(result.Orders), "elapsed", elapsed)
	return result, nil
}
