// Package replay serves recorded candles from a CSV file through the Broker
// interface, advancing one bar per quote request so a strategy can be run
// against history with the rest of the system unchanged.
package replay

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/vikiirv21/kite-algo-trader/internal/interfaces"
	"github.com/vikiirv21/kite-algo-trader/internal/logger"
	"github.com/vikiirv21/kite-algo-trader/internal/types"
)

// Feed replays candles per symbol. The cursor advances on every LTP call,
// so one engine poll consumes one bar per symbol.
type Feed struct {
	mu      sync.Mutex
	candles map[string][]types.Candle
	cursor  map[string]int
}

var _ interfaces.Broker = (*Feed)(nil)

// Load reads a candle CSV with header
// time,symbol,open,high,low,close,volume. Time is a unix epoch in seconds.
func Load(path string) (*Feed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay file: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse replay file: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("replay file %s has no data rows", path)
	}

	col := map[string]int{}
	for i, name := range rows[0] {
		col[name] = i
	}
	for _, required := range []string{"time", "symbol", "open", "high", "low", "close", "volume"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("replay file missing column %q", required)
		}
	}

	feed := &Feed{candles: map[string][]types.Candle{}, cursor: map[string]int{}}
	for i, row := range rows[1:] {
		ts, err := strconv.ParseInt(row[col["time"]], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("replay row %d: bad time %q", i+2, row[col["time"]])
		}
		c := types.Candle{Ts: ts}
		for _, field := range []struct {
			name string
			dst  *float64
		}{
			{"open", &c.Open}, {"high", &c.High}, {"low", &c.Low},
			{"close", &c.Close}, {"volume", &c.Vol},
		} {
			v, err := strconv.ParseFloat(row[col[field.name]], 64)
			if err != nil {
				return nil, fmt.Errorf("replay row %d: bad %s %q", i+2, field.name, row[col[field.name]])
			}
			*field.dst = v
		}
		symbol := row[col["symbol"]]
		feed.candles[symbol] = append(feed.candles[symbol], c)
	}
	return feed, nil
}

// Exhausted reports whether every symbol's bars have been consumed.
func (f *Feed) Exhausted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for symbol, cs := range f.candles {
		if f.cursor[symbol] < len(cs) {
			return false
		}
	}
	return true
}

func (f *Feed) LTP(ctx context.Context, symbol string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cs := f.candles[symbol]
	if len(cs) == 0 {
		return 0, fmt.Errorf("no replay data for symbol %s", symbol)
	}
	i := f.cursor[symbol]
	if i >= len(cs) {
		return 0, fmt.Errorf("replay exhausted for symbol %s", symbol)
	}
	f.cursor[symbol] = i + 1
	return cs[i].Close, nil
}

// RecentCandles returns up to n bars ending at the replay cursor, so the
// strategy never sees the future.
func (f *Feed) RecentCandles(ctx context.Context, symbol string, n int) ([]types.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cs := f.candles[symbol]
	if len(cs) == 0 {
		return nil, fmt.Errorf("no replay data for symbol %s", symbol)
	}
	end := f.cursor[symbol]
	if end > len(cs) {
		end = len(cs)
	}
	start := end - n
	if start < 0 {
		start = 0
	}
	out := make([]types.Candle, end-start)
	copy(out, cs[start:end])
	return out, nil
}

func (f *Feed) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	return types.OrderResp{
		OrderID: fmt.Sprintf("REPLAY-%d", time.Now().UnixNano()),
		Status:  "SIMULATED",
		Message: "replay mode",
	}, nil
}

func (f *Feed) Orders(ctx context.Context) ([]types.BrokerOrder, error) {
	return nil, nil
}

func (f *Feed) Positions(ctx context.Context) ([]types.BrokerPosition, error) {
	return nil, nil
}

func (f *Feed) Start(ctx context.Context, symbols []string) error {
	for _, symbol := range symbols {
		if len(f.candles[symbol]) == 0 {
			logger.Warn(ctx, "Replay file has no bars for symbol", "symbol", symbol)
		}
	}
	return nil
}

func (f *Feed) Stop(ctx context.Context) {}
