package journal

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vikiirv21/kite-algo-trader/internal/interfaces"
	"github.com/vikiirv21/kite-algo-trader/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS signals (
	time       TEXT NOT NULL,
	symbol     TEXT NOT NULL,
	action     TEXT NOT NULL,
	confidence REAL NOT NULL,
	reason     TEXT,
	price      REAL NOT NULL,
	edge_bps   REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS orders (
	time     TEXT NOT NULL,
	order_id TEXT NOT NULL,
	symbol   TEXT NOT NULL,
	side     TEXT NOT NULL,
	qty      INTEGER NOT NULL,
	price    REAL NOT NULL,
	status   TEXT NOT NULL,
	tag      TEXT
);
CREATE INDEX IF NOT EXISTS idx_orders_symbol ON orders(symbol);
`

// SQLiteRecorder journals into a SQLite database instead of CSV files.
type SQLiteRecorder struct {
	db *sql.DB
}

var _ interfaces.Recorder = (*SQLiteRecorder)(nil)

func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteRecorder{db: db}, nil
}

func (r *SQLiteRecorder) RecordSignal(symbol string, sig types.Signal, price float64) error {
	_, err := r.db.Exec(`
		INSERT INTO signals (time, symbol, action, confidence, reason, price, edge_bps)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		istNow().Format(time.RFC3339), symbol, sig.Action, sig.Confidence, sig.Reason, price, sig.EdgeBps,
	)
	return err
}

func (r *SQLiteRecorder) RecordOrder(req types.OrderReq, resp types.OrderResp) error {
	_, err := r.db.Exec(`
		INSERT INTO orders (time, order_id, symbol, side, qty, price, status, tag)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		istNow().Format(time.RFC3339), resp.OrderID, req.Symbol, req.Side, req.Qty, req.Price, resp.Status, req.Tag,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
