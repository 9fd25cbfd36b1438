// Package zerodha wraps the Kite Connect API behind the Broker interface.
// PAPER and REPLAY modes synthesize quotes so the rest of the system runs
// without credentials; LIVE talks to the real API.
package zerodha

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"github.com/vikiirv21/kite-algo-trader/internal/interfaces"
	"github.com/vikiirv21/kite-algo-trader/internal/logger"
	"github.com/vikiirv21/kite-algo-trader/internal/types"
)

type Params struct {
	Mode        string // PAPER, REPLAY or LIVE
	APIKey      string
	AccessToken string
	Exchange    string
}

type Zerodha struct {
	p            Params
	kc           *kiteconnect.Client
	tickerMgr    *tickerManager
	isTickerInit bool
}

var _ interfaces.Broker = (*Zerodha)(nil)

func NewZerodha(p Params) *Zerodha {
	z := &Zerodha{p: p}
	if p.Mode == "LIVE" {
		z.kc = kiteconnect.New(p.APIKey)
		z.kc.SetAccessToken(p.AccessToken)
		z.tickerMgr = newTickerManager(p.APIKey, p.AccessToken, p.Exchange)
	}
	return z
}

func (z *Zerodha) live() bool { return z.p.Mode == "LIVE" }

func (z *Zerodha) LTP(ctx context.Context, symbol string) (float64, error) {
	if !z.live() {
		price := 1000 + rand.Float64()*100
		return price, nil
	}

	instrument := z.p.Exchange + ":" + symbol
	quotes, err := z.kc.GetLTP(instrument)
	if err != nil {
		// Auth errors surface as "no price": callers skip the cycle.
		logger.ErrorWithErr(ctx, "LTP fetch failed", err, "instrument", instrument)
		return 0, err
	}
	q, ok := quotes[instrument]
	if !ok {
		return 0, fmt.Errorf("no quote returned for %s", instrument)
	}
	return q.LastPrice, nil
}

func (z *Zerodha) RecentCandles(ctx context.Context, symbol string, n int) ([]types.Candle, error) {
	if z.live() && z.tickerMgr != nil {
		candles, err := z.tickerMgr.recentCandles(symbol, n)
		if err == nil {
			return candles, nil
		}
		logger.Warn(ctx, "Ticker cache empty, using synthetic candles", "symbol", symbol, "error", err)
	}
	return syntheticCandles(n), nil
}

// syntheticCandles produces a deterministic-shape random walk for PAPER and
// REPLAY modes and for LIVE warm-up before the ticker cache fills.
func syntheticCandles(n int) []types.Candle {
	cs := make([]types.Candle, 0, n)
	base := 1000.0
	now := time.Now().Unix()
	for i := 0; i < n; i++ {
		c := base + float64(i) + (rand.Float64()-0.5)*5
		h := c + rand.Float64()*3
		l := c - rand.Float64()*3
		cs = append(cs, types.Candle{
			Ts:    now - int64((n-i)*60),
			Open:  c - 0.5,
			High:  h,
			Low:   l,
			Close: c,
			Vol:   rand.Float64() * 1000,
		})
	}
	return cs
}

func (z *Zerodha) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	if !z.live() {
		return types.OrderResp{
			OrderID: fmt.Sprintf("SIM-%d", time.Now().UnixNano()),
			Status:  "SIMULATED",
			Message: "non-live mode",
		}, nil
	}
	if z.p.APIKey == "" || z.p.AccessToken == "" {
		return types.OrderResp{}, errors.New("missing API key/access token")
	}

	resp, err := z.kc.PlaceOrder(kiteconnect.VarietyRegular, kiteconnect.OrderParams{
		Exchange:        z.p.Exchange,
		Tradingsymbol:   req.Symbol,
		TransactionType: strings.ToUpper(req.Side),
		OrderType:       kiteconnect.OrderTypeMarket,
		Product:         kiteconnect.ProductMIS,
		Quantity:        req.Qty,
		Validity:        kiteconnect.ValidityDay,
		Tag:             req.Tag,
	})
	if err != nil {
		return types.OrderResp{}, fmt.Errorf("kite place order: %w", err)
	}
	return types.OrderResp{OrderID: resp.OrderID, Status: "PLACED", Message: "ok"}, nil
}

// Orders polls the broker's order book for reconciliation.
func (z *Zerodha) Orders(ctx context.Context) ([]types.BrokerOrder, error) {
	if !z.live() {
		return nil, nil
	}
	orders, err := z.kc.GetOrders()
	if err != nil {
		return nil, fmt.Errorf("kite get orders: %w", err)
	}
	out := make([]types.BrokerOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, types.BrokerOrder{
			OrderID:   o.OrderID,
			Symbol:    o.TradingSymbol,
			Side:      o.TransactionType,
			Status:    o.Status,
			Qty:       int(o.Quantity),
			FilledQty: int(o.FilledQuantity),
			AvgPrice:  o.AveragePrice,
		})
	}
	return out, nil
}

// Positions polls the broker's net positions for reconciliation.
func (z *Zerodha) Positions(ctx context.Context) ([]types.BrokerPosition, error) {
	if !z.live() {
		return nil, nil
	}
	positions, err := z.kc.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("kite get positions: %w", err)
	}
	out := make([]types.BrokerPosition, 0, len(positions.Net))
	for _, p := range positions.Net {
		out = append(out, types.BrokerPosition{
			Symbol:   p.Tradingsymbol,
			Qty:      p.Quantity,
			AvgPrice: p.AveragePrice,
		})
	}
	return out, nil
}

func (z *Zerodha) Start(ctx context.Context, symbols []string) error {
	if z.tickerMgr == nil {
		return nil // not in live mode, nothing to start
	}
	if z.isTickerInit {
		return nil
	}
	if err := z.tickerMgr.start(ctx); err != nil {
		return fmt.Errorf("failed to start ticker manager: %w", err)
	}
	time.Sleep(2 * time.Second)
	if err := z.tickerMgr.subscribe(ctx, symbols); err != nil {
		return fmt.Errorf("failed to subscribe to symbols: %w", err)
	}
	z.isTickerInit = true
	return nil
}

func (z *Zerodha) Stop(ctx context.Context) {
	if z.tickerMgr != nil {
		z.tickerMgr.stop(ctx)
		z.isTickerInit = false
	}
}
