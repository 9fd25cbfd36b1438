package store

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/vikiirv21/kite-algo-trader/internal/logger"
	"github.com/vikiirv21/kite-algo-trader/internal/types"
)

// PositionState is one position row inside the checkpoint file.
type PositionState struct {
	Symbol        string  `json:"symbol"`
	Qty           int     `json:"qty"`
	AvgPrice      float64 `json:"avg_price"`
	LastPrice     float64 `json:"last_price"`
	RealizedPnL   float64 `json:"realized_pnl"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

// OrderState is one order row inside the checkpoint file.
type OrderState struct {
	OrderID string    `json:"order_id"`
	Symbol  string    `json:"symbol"`
	Side    string    `json:"side"`
	Qty     int       `json:"qty"`
	Price   float64   `json:"price"`
	Status  string    `json:"status"`
	Ts      time.Time `json:"ts"`
}

type BrokerState struct {
	Positions []PositionState `json:"positions"`
	Orders    []OrderState    `json:"orders"`
}

// Checkpoint is the cross-process shared state file. The engine writes it
// after every fill; the dashboard and the position sizer re-read it on
// demand. Consistency relies on atomic replace, not locking.
type Checkpoint struct {
	Timestamp time.Time      `json:"timestamp"`
	Broker    BrokerState    `json:"broker"`
	Meta      map[string]any `json:"meta"`
}

// StateStore persists checkpoints via write-to-temp plus rename so readers
// never observe a half-written file.
type StateStore struct {
	path string
}

func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

func (s *StateStore) Path() string { return s.path }

func (s *StateStore) Save(ctx context.Context, cp Checkpoint) error {
	cp.Timestamp = time.Now()
	b, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	logger.Debug(ctx, "Checkpoint saved", "path", s.path,
		"positions", len(cp.Broker.Positions), "orders", len(cp.Broker.Orders))
	return nil
}

// Load reads the checkpoint, falling back to an empty one on any error so
// callers never have to special-case a missing or corrupt file.
func (s *StateStore) Load(ctx context.Context) Checkpoint {
	empty := Checkpoint{Meta: map[string]any{}}
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn(ctx, "Failed to read checkpoint, using empty state", "path", s.path, "error", err)
		}
		return empty
	}
	var cp Checkpoint
	if err := json.Unmarshal(b, &cp); err != nil {
		logger.Warn(ctx, "Corrupt checkpoint, using empty state", "path", s.path, "error", err)
		return empty
	}
	if cp.Meta == nil {
		cp.Meta = map[string]any{}
	}
	return cp
}

// LoadPortfolioState derives the sizing snapshot from the checkpoint.
// Everything the sizer needs comes from this file; no broker round-trip.
func (s *StateStore) LoadPortfolioState(ctx context.Context, capitalBase float64) types.PortfolioState {
	cp := s.Load(ctx)
	st := types.PortfolioState{
		Capital:   capitalBase,
		Positions: map[string]int{},
	}
	for _, p := range cp.Broker.Positions {
		st.RealizedPnL += p.RealizedPnL
		st.UnrealizedPnL += p.UnrealizedPnL
		if p.Qty != 0 {
			st.OpenPositions++
			st.Positions[p.Symbol] = p.Qty
			last := p.LastPrice
			if last == 0 {
				last = p.AvgPrice
			}
			st.TotalNotional += math.Abs(float64(p.Qty)) * last
		}
	}
	st.Equity = st.Capital + st.RealizedPnL + st.UnrealizedPnL
	st.FreeNotional = st.Equity - st.TotalNotional
	if st.FreeNotional < 0 {
		st.FreeNotional = 0
	}
	return st
}
