package journal

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikiirv21/kite-algo-trader/internal/types"
)

func TestSQLiteRecorderRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "trades.db")

	r, err := NewSQLiteRecorder(path)
	require.NoError(t, err)

	require.NoError(t, r.RecordSignal("RELIANCE", types.Signal{Action: "BUY", Confidence: 0.8, EdgeBps: 25}, 2500))
	require.NoError(t, r.RecordOrder(
		types.OrderReq{Symbol: "RELIANCE", Side: "BUY", Qty: 10, Price: 2500, Tag: "crossover"},
		types.OrderResp{OrderID: "PAPER-1", Status: "FILLED"},
	))
	require.NoError(t, r.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM signals").Scan(&n))
	assert.Equal(t, 1, n)

	var symbol, side string
	var qty int
	require.NoError(t, db.QueryRow("SELECT symbol, side, qty FROM orders").Scan(&symbol, &side, &qty))
	assert.Equal(t, "RELIANCE", symbol)
	assert.Equal(t, "BUY", side)
	assert.Equal(t, 10, qty)
}

func TestSQLiteRecorderCreatesParentDir(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "dir", "trades.db")
	r, err := NewSQLiteRecorder(path)
	require.NoError(t, err)
	require.NoError(t, r.Close())
}
