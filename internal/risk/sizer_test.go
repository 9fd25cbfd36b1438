package risk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vikiirv21/kite-algo-trader/internal/types"
)

func testSizer() DynamicPositionSizer {
	return DynamicPositionSizer{
		RiskPerTradePct:     0.02,
		MaxOrderNotionalPct: 0.25,
		MinOrderNotional:    5000,
		MaxTrades:           3,
		RiskScaleMin:        0.5,
		RiskScaleMax:        1.0,
		RiskDownThreshold:   -0.02,
		RiskUpThreshold:     0.01,
		CapitalBase:         1000000,
	}
}

func flatState() types.PortfolioState {
	return types.PortfolioState{
		Capital:      1000000,
		Equity:       1000000,
		FreeNotional: 1000000,
		Positions:    map[string]int{},
	}
}

func TestSizeOrderSkips(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := testSizer()

	tests := []struct {
		name  string
		state types.PortfolioState
		price float64
	}{
		{"zero price", flatState(), 0},
		{"negative equity", types.PortfolioState{Equity: -100, FreeNotional: 50000, Positions: map[string]int{}}, 100},
		{
			"free notional below minimum",
			types.PortfolioState{Equity: 1000000, FreeNotional: 4999, Positions: map[string]int{}},
			100,
		},
		{
			"max open trades reached",
			types.PortfolioState{
				Equity:        1000000,
				FreeNotional:  500000,
				OpenPositions: 3,
				Positions:     map[string]int{"A": 1, "B": 1, "C": 1},
			},
			100,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Zero(t, s.SizeOrder(ctx, tt.state, "RELIANCE", tt.price, "BUY", 1))
		})
	}
}

func TestSizeOrderAllowsAddingToOpenSymbol(t *testing.T) {
	t.Parallel()
	s := testSizer()
	state := types.PortfolioState{
		Equity:        1000000,
		FreeNotional:  500000,
		OpenPositions: 3,
		Positions:     map[string]int{"RELIANCE": 10, "B": 1, "C": 1},
	}
	// The symbol is already open, so the max-trades cap does not apply.
	qty := s.SizeOrder(context.Background(), state, "RELIANCE", 100, "BUY", 1)
	assert.Positive(t, qty)
}

func TestSizeOrderQuantity(t *testing.T) {
	t.Parallel()
	s := testSizer()
	// Flat day: scale interpolates to (0 - -0.02)/0.03 = 2/3 of the band,
	// so 0.5 + (2/3)*0.5 = 0.8333; target = 0.02 * 1e6 * 0.8333 = 16667.
	qty := s.SizeOrder(context.Background(), flatState(), "RELIANCE", 100, "BUY", 1)
	assert.Equal(t, 166, qty)

	sell := s.SizeOrder(context.Background(), flatState(), "RELIANCE", 100, "SELL", 1)
	assert.Equal(t, -166, sell)
}

func TestSizeOrderRespectsLotSize(t *testing.T) {
	t.Parallel()
	s := testSizer()
	qty := s.SizeOrder(context.Background(), flatState(), "NIFTY", 100, "BUY", 75)
	assert.Equal(t, 150, qty) // floor(16666/7500) = 2 lots of 75
}

func TestRiskScaleClamps(t *testing.T) {
	t.Parallel()
	s := testSizer()

	tests := []struct {
		name   string
		dayPct float64
		want   float64
	}{
		{"deep loss clamps at min", -0.10, 0.5},
		{"at down threshold", -0.02, 0.5},
		{"midpoint", -0.005, 0.75},
		{"at up threshold", 0.01, 1.0},
		{"big win clamps at max", 0.10, 1.0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, s.riskScale(tt.dayPct), 1e-9)
		})
	}
}

func TestRiskScaleDegenerateBand(t *testing.T) {
	t.Parallel()
	s := testSizer()
	s.RiskDownThreshold = 0.01
	s.RiskUpThreshold = 0.01
	assert.InDelta(t, 0.5, s.riskScale(0.05), 1e-9)
}
