package ta

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSMA(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 20.0, SMA([]float64{10, 20, 30}, 3), 1e-9)
	assert.InDelta(t, 25.0, SMA([]float64{10, 20, 30}, 2), 1e-9)
	assert.True(t, math.IsNaN(SMA([]float64{10}, 3)))
	assert.True(t, math.IsNaN(SMA(nil, 0)))
}

func TestEMASeedsWithSMA(t *testing.T) {
	t.Parallel()
	// With exactly n closes the EMA is the SMA seed.
	assert.InDelta(t, 20.0, EMA([]float64{10, 20, 30}, 3), 1e-9)

	// One more close smooths with k = 2/(n+1) = 0.5.
	assert.InDelta(t, 30.0, EMA([]float64{10, 20, 30, 40}, 3), 1e-9)
	assert.True(t, math.IsNaN(EMA([]float64{10, 20}, 3)))
}

func TestATR(t *testing.T) {
	t.Parallel()
	highs := []float64{11, 12, 13, 14}
	lows := []float64{9, 10, 11, 12}
	closes := []float64{10, 11, 12, 13}
	// Each bar's true range is high-low = 2; gaps never exceed it here.
	assert.InDelta(t, 2.0, ATR(highs, lows, closes, 3), 1e-9)

	assert.True(t, math.IsNaN(ATR(highs, lows, closes, 4)))
	assert.True(t, math.IsNaN(ATR(highs[:2], lows, closes, 2)))
}
