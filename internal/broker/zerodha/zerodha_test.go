package zerodha

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikiirv21/kite-algo-trader/internal/types"
)

func TestPaperModeNeedsNoCredentials(t *testing.T) {
	t.Parallel()
	z := NewZerodha(Params{Mode: "PAPER", Exchange: "NSE"})
	ctx := context.Background()

	price, err := z.LTP(ctx, "RELIANCE")
	require.NoError(t, err)
	assert.Greater(t, price, 0.0)

	candles, err := z.RecentCandles(ctx, "RELIANCE", 50)
	require.NoError(t, err)
	assert.Len(t, candles, 50)

	resp, err := z.PlaceOrder(ctx, types.OrderReq{Symbol: "RELIANCE", Side: "BUY", Qty: 10, Price: price})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.OrderID, "SIM-"))
	assert.Equal(t, "SIMULATED", resp.Status)

	orders, err := z.Orders(ctx)
	require.NoError(t, err)
	assert.Nil(t, orders)

	require.NoError(t, z.Start(ctx, []string{"RELIANCE"}))
	z.Stop(ctx)
}

func TestSyntheticCandlesAreOrdered(t *testing.T) {
	t.Parallel()
	candles := syntheticCandles(20)
	require.Len(t, candles, 20)
	for i := 1; i < len(candles); i++ {
		assert.Greater(t, candles[i].Ts, candles[i-1].Ts)
		assert.GreaterOrEqual(t, candles[i].High, candles[i].Low)
	}
}

func TestCandleCacheBoundedAndInPlaceUpdate(t *testing.T) {
	t.Parallel()
	cache := newCandleCache()
	cache.initBuffer("RELIANCE", 3)

	for i := 0; i < 5; i++ {
		cache.addCandle("RELIANCE", types.Candle{Ts: int64(i), Close: float64(i)})
	}
	got, err := cache.getRecent("RELIANCE", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(2), got[0].Ts)

	// Same-timestamp tick replaces the latest candle.
	cache.addCandle("RELIANCE", types.Candle{Ts: 4, Close: 99})
	got, err = cache.getRecent("RELIANCE", 1)
	require.NoError(t, err)
	assert.InDelta(t, 99.0, got[0].Close, 1e-9)

	_, err = cache.getRecent("TCS", 1)
	assert.Error(t, err)
}

func TestInstrumentMapper(t *testing.T) {
	t.Parallel()
	m := newInstrumentMapper()
	m.addMapping("RELIANCE", 256265)
	assert.Equal(t, "RELIANCE", m.getSymbol(256265))
	assert.Empty(t, m.getSymbol(999))
}
