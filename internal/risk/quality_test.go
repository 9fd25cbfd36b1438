package risk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikiirv21/kite-algo-trader/internal/types"
)

func proposal(edgeBps float64) types.TradeProposal {
	return types.TradeProposal{Symbol: "RELIANCE", Side: "BUY", Qty: 100, Price: 1000, EdgeBps: edgeBps}
}

func TestEvaluateRejectsEmptyProposal(t *testing.T) {
	t.Parallel()
	f := NewTradeQualityFilter(5, 6, 3)
	d := f.Evaluate(context.Background(), types.TradeProposal{}, types.CostBreakdown{})
	assert.False(t, d.Approved)
}

func TestEvaluateEdgeThreshold(t *testing.T) {
	t.Parallel()
	f := NewTradeQualityFilter(5, 6, 3)
	ctx := context.Background()

	// Gross edge 25 bps on 100000 notional is 250; costs of 200 leave a net
	// edge of 5 bps, exactly at the bar.
	d := f.Evaluate(ctx, proposal(25), types.CostBreakdown{Total: 200})
	assert.True(t, d.Approved)
	assert.InDelta(t, 5.0, d.NetEdgeBps, 1e-9)

	// One rupee more of cost drops net edge below the bar.
	d = f.Evaluate(ctx, proposal(25), types.CostBreakdown{Total: 201})
	assert.False(t, d.Approved)
	assert.Contains(t, d.Reason, "net edge")
}

func TestEvaluateDailyCap(t *testing.T) {
	t.Parallel()
	f := NewTradeQualityFilter(5, 2, 3)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d := f.Evaluate(ctx, proposal(50), types.CostBreakdown{Total: 0})
		require.True(t, d.Approved, "trade %d should pass", i)
	}
	assert.Equal(t, 2, f.TradesToday("RELIANCE"))

	d := f.Evaluate(ctx, proposal(50), types.CostBreakdown{Total: 0})
	assert.False(t, d.Approved)
	assert.Contains(t, d.Reason, "daily trade cap")

	// Another symbol has its own counter.
	other := types.TradeProposal{Symbol: "TCS", Side: "BUY", Qty: 10, Price: 100, EdgeBps: 50}
	assert.True(t, f.Evaluate(ctx, other, types.CostBreakdown{Total: 0}).Approved)
}

func TestDailyCapResetsAtMidnightIST(t *testing.T) {
	t.Parallel()
	f := NewTradeQualityFilter(5, 1, 3)
	ctx := context.Background()

	day := time.Date(2025, 6, 2, 10, 0, 0, 0, time.FixedZone("IST", 19800))
	f.now = func() time.Time { return day }

	require.True(t, f.Evaluate(ctx, proposal(50), types.CostBreakdown{Total: 0}).Approved)
	require.False(t, f.Evaluate(ctx, proposal(50), types.CostBreakdown{Total: 0}).Approved)

	day = day.Add(24 * time.Hour)
	assert.True(t, f.Evaluate(ctx, proposal(50), types.CostBreakdown{Total: 0}).Approved)
}

func TestCooldownRaisesBarInsteadOfBlocking(t *testing.T) {
	t.Parallel()
	f := NewTradeQualityFilter(10, 6, 2)
	ctx := context.Background()

	f.RecordLoss("RELIANCE")
	f.RecordLoss("RELIANCE")

	// Net edge 12 bps clears the base bar of 10 but not the raised 15.
	d := f.Evaluate(ctx, proposal(12), types.CostBreakdown{Total: 0})
	assert.False(t, d.Approved)
	assert.Contains(t, d.Reason, "cooldown")

	// 16 bps clears the raised bar: cooldown filters, it does not block.
	d = f.Evaluate(ctx, proposal(16), types.CostBreakdown{Total: 0})
	assert.True(t, d.Approved)

	// A win resets the streak and the base bar applies again.
	f.RecordWin("RELIANCE")
	d = f.Evaluate(ctx, proposal(12), types.CostBreakdown{Total: 0})
	assert.True(t, d.Approved)
}
