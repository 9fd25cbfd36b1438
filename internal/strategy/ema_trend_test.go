package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikiirv21/kite-algo-trader/internal/types"
)

func candlesFromCloses(closes []float64) []types.Candle {
	out := make([]types.Candle, len(closes))
	for i, c := range closes {
		out[i] = types.Candle{
			Ts:    int64(i * 60),
			Open:  c,
			High:  c + 1,
			Low:   c - 1,
			Close: c,
			Vol:   1000,
		}
	}
	return out
}

func TestEvaluateNotEnoughCandles(t *testing.T) {
	t.Parallel()
	s := NewEMATrend(3, 5, 3, 10, 25)
	_, err := s.Evaluate(context.Background(), "RELIANCE", candlesFromCloses([]float64{1, 2, 3}))
	assert.Error(t, err)
}

func TestEvaluateBullishCrossover(t *testing.T) {
	t.Parallel()
	s := NewEMATrend(3, 8, 3, 12, 25)

	// Flat then a sharp rally: the fast EMA crosses above the slow on the
	// final bar.
	closes := []float64{100, 100, 100, 100, 100, 100, 99, 98, 97, 96, 100, 112}
	sig, err := s.Evaluate(context.Background(), "RELIANCE", candlesFromCloses(closes))
	require.NoError(t, err)
	assert.Equal(t, "BUY", sig.Action)
	assert.Greater(t, sig.Confidence, 0.0)
	assert.LessOrEqual(t, sig.Confidence, 1.0)
	assert.InDelta(t, 25.0, sig.EdgeBps, 1e-9)
}

func TestEvaluateBearishCrossover(t *testing.T) {
	t.Parallel()
	s := NewEMATrend(3, 8, 3, 12, 25)

	closes := []float64{100, 100, 100, 100, 100, 100, 101, 102, 103, 104, 100, 88}
	sig, err := s.Evaluate(context.Background(), "RELIANCE", candlesFromCloses(closes))
	require.NoError(t, err)
	assert.Equal(t, "SELL", sig.Action)
}

func TestEvaluateHoldsOnTrend(t *testing.T) {
	t.Parallel()
	s := NewEMATrend(3, 8, 3, 12, 25)

	// A steady uptrend keeps the fast EMA above the slow the whole time:
	// no fresh crossover, so no signal.
	closes := []float64{100, 102, 104, 106, 108, 110, 112, 114, 116, 118, 120, 122}
	sig, err := s.Evaluate(context.Background(), "RELIANCE", candlesFromCloses(closes))
	require.NoError(t, err)
	assert.Equal(t, "HOLD", sig.Action)
}

func TestNoopAlwaysHolds(t *testing.T) {
	t.Parallel()
	s := NewNoop()
	sig, err := s.Evaluate(context.Background(), "ANY", nil)
	require.NoError(t, err)
	assert.Equal(t, "HOLD", sig.Action)
}
