// Package journal appends signals and orders to durable journals. Writers
// never fail the trading path: callers log and continue on error.
package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/vikiirv21/kite-algo-trader/internal/interfaces"
	"github.com/vikiirv21/kite-algo-trader/internal/types"
)

var signalHeader = []string{"time", "symbol", "action", "confidence", "reason", "price", "edge_bps"}
var orderHeader = []string{"time", "order_id", "symbol", "side", "qty", "price", "status", "tag"}

// CSVRecorder journals to signals.csv and orders.csv in a directory. If an
// existing file's header differs from the current schema the whole file is
// rewritten once, matching old columns by name.
type CSVRecorder struct {
	mu      sync.Mutex
	signals *csv.Writer
	orders  *csv.Writer
	sf, of  *os.File
}

var _ interfaces.Recorder = (*CSVRecorder)(nil)

func NewCSVRecorder(dir string) (*CSVRecorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	sf, sw, err := openJournal(filepath.Join(dir, "signals.csv"), signalHeader)
	if err != nil {
		return nil, err
	}
	of, ow, err := openJournal(filepath.Join(dir, "orders.csv"), orderHeader)
	if err != nil {
		sf.Close()
		return nil, err
	}
	return &CSVRecorder{signals: sw, orders: ow, sf: sf, of: of}, nil
}

func (r *CSVRecorder) RecordSignal(symbol string, sig types.Signal, price float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.signals.Write([]string{
		istNow().Format(time.RFC3339),
		symbol,
		sig.Action,
		f(sig.Confidence),
		sig.Reason,
		f(price),
		f(sig.EdgeBps),
	}); err != nil {
		return err
	}
	r.signals.Flush()
	return r.signals.Error()
}

func (r *CSVRecorder) RecordOrder(req types.OrderReq, resp types.OrderResp) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.orders.Write([]string{
		istNow().Format(time.RFC3339),
		resp.OrderID,
		req.Symbol,
		req.Side,
		strconv.Itoa(req.Qty),
		f(req.Price),
		resp.Status,
		req.Tag,
	}); err != nil {
		return err
	}
	r.orders.Flush()
	return r.orders.Error()
}

func (r *CSVRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals.Flush()
	r.orders.Flush()
	if err := r.signals.Error(); err != nil {
		r.sf.Close()
		r.of.Close()
		return err
	}
	if err := r.orders.Error(); err != nil {
		r.sf.Close()
		r.of.Close()
		return err
	}
	if err := r.sf.Close(); err != nil {
		r.of.Close()
		return err
	}
	return r.of.Close()
}

// openJournal opens a journal for appending, creating it with the header or
// migrating it first when the on-disk header has drifted.
func openJournal(path string, header []string) (*os.File, *csv.Writer, error) {
	if _, err := os.Stat(path); err == nil {
		drifted, err := headerDrifted(path, header)
		if err != nil {
			return nil, nil, err
		}
		if drifted {
			if err := migrateJournal(path, header); err != nil {
				return nil, nil, fmt.Errorf("journal migration for %s: %w", path, err)
			}
		}
		fl, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		return fl, csv.NewWriter(fl), nil
	}

	fl, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	w := csv.NewWriter(fl)
	if err := w.Write(header); err != nil {
		fl.Close()
		return nil, nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		fl.Close()
		return nil, nil, err
	}
	return fl, w, nil
}

func headerDrifted(path string, want []string) (bool, error) {
	fl, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer fl.Close()
	rec, err := csv.NewReader(fl).Read()
	if err != nil {
		// Unreadable or empty header: rewrite.
		return true, nil
	}
	if len(rec) != len(want) {
		return true, nil
	}
	for i := range want {
		if rec[i] != want[i] {
			return true, nil
		}
	}
	return false, nil
}

// migrateJournal rewrites a journal under the new header, carrying old rows
// over by column name. Columns absent from the old schema come through
// empty; dropped columns are discarded.
func migrateJournal(path string, header []string) error {
	fl, err := os.Open(path)
	if err != nil {
		return err
	}
	reader := csv.NewReader(fl)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	fl.Close()
	if err != nil {
		return err
	}

	var oldHeader []string
	var oldRows [][]string
	if len(rows) > 0 {
		oldHeader = rows[0]
		oldRows = rows[1:]
	}
	oldIndex := make(map[string]int, len(oldHeader))
	for i, name := range oldHeader {
		oldIndex[name] = i
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".journal-*.csv")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	for _, row := range oldRows {
		out := make([]string, len(header))
		for i, name := range header {
			if j, ok := oldIndex[name]; ok && j < len(row) {
				out[i] = row[j]
			}
		}
		if err := w.Write(out); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

func istNow() time.Time {
	return time.Now().In(time.FixedZone("IST", 19800))
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
