package replay

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "candles.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const sample = `time,symbol,open,high,low,close,volume
60,RELIANCE,100,101,99,100.5,1000
120,RELIANCE,100.5,102,100,101.5,1100
180,RELIANCE,101.5,103,101,102.5,1200
60,TCS,3000,3010,2990,3005,500
`

func TestLoadRejectsBadFiles(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	_, err = Load(writeFeed(t, "time,symbol,open\n"))
	assert.Error(t, err)

	_, err = Load(writeFeed(t, "time,symbol,open,high,low,close,volume\n60,RELIANCE,x,1,1,1,1\n"))
	assert.Error(t, err)
}

func TestLTPAdvancesCursor(t *testing.T) {
	t.Parallel()
	feed, err := Load(writeFeed(t, sample))
	require.NoError(t, err)
	ctx := context.Background()

	p1, err := feed.LTP(ctx, "RELIANCE")
	require.NoError(t, err)
	assert.InDelta(t, 100.5, p1, 1e-9)

	p2, err := feed.LTP(ctx, "RELIANCE")
	require.NoError(t, err)
	assert.InDelta(t, 101.5, p2, 1e-9)

	// Each symbol has its own cursor.
	pt, err := feed.LTP(ctx, "TCS")
	require.NoError(t, err)
	assert.InDelta(t, 3005.0, pt, 1e-9)

	_, err = feed.LTP(ctx, "TCS")
	assert.Error(t, err) // exhausted
	_, err = feed.LTP(ctx, "UNKNOWN")
	assert.Error(t, err)
}

func TestRecentCandlesNeverSeesFuture(t *testing.T) {
	t.Parallel()
	feed, err := Load(writeFeed(t, sample))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = feed.LTP(ctx, "RELIANCE") // cursor now past bar 1
	require.NoError(t, err)

	window, err := feed.RecentCandles(ctx, "RELIANCE", 10)
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, int64(60), window[0].Ts)

	_, err = feed.LTP(ctx, "RELIANCE")
	require.NoError(t, err)
	window, err = feed.RecentCandles(ctx, "RELIANCE", 1)
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, int64(120), window[0].Ts)
}

func TestExhausted(t *testing.T) {
	t.Parallel()
	feed, err := Load(writeFeed(t, "time,symbol,open,high,low,close,volume\n60,TCS,1,1,1,1,1\n"))
	require.NoError(t, err)

	assert.False(t, feed.Exhausted())
	_, err = feed.LTP(context.Background(), "TCS")
	require.NoError(t, err)
	assert.True(t, feed.Exhausted())
}
