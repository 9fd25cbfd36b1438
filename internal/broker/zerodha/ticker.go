package zerodha

import (
	"context"
	"fmt"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
	"github.com/zerodha/gokiteconnect/v4/models"
	kiteticker "github.com/zerodha/gokiteconnect/v4/ticker"

	"github.com/vikiirv21/kite-algo-trader/internal/logger"
	"github.com/vikiirv21/kite-algo-trader/internal/types"
)

const maxCandlesPerSymbol = 200

// tickerManager streams live market data over the Kite WebSocket and keeps
// a rolling candle cache per subscribed symbol.
type tickerManager struct {
	ticker      *kiteticker.Ticker
	apiKey      string
	accessToken string
	exchange    string

	cache  *candleCache
	mapper *instrumentMapper
}

func newTickerManager(apiKey, accessToken, exchange string) *tickerManager {
	return &tickerManager{
		apiKey:      apiKey,
		accessToken: accessToken,
		exchange:    exchange,
		cache:       newCandleCache(),
		mapper:      newInstrumentMapper(),
	}
}

func (tm *tickerManager) start(ctx context.Context) error {
	tm.ticker = kiteticker.New(tm.apiKey, tm.accessToken)

	tm.ticker.OnConnect(tm.onConnect)
	tm.ticker.OnError(tm.onError)
	tm.ticker.OnClose(tm.onClose)
	tm.ticker.OnReconnect(tm.onReconnect)
	tm.ticker.OnNoReconnect(tm.onNoReconnect)
	tm.ticker.OnTick(tm.onTick)
	tm.ticker.OnOrderUpdate(tm.onOrderUpdate)

	go func() {
		logger.Info(ctx, "Starting Zerodha WebSocket ticker")
		tm.ticker.Serve()
	}()
	return nil
}

func (tm *tickerManager) stop(ctx context.Context) {
	if tm.ticker != nil {
		logger.Info(ctx, "Stopping Zerodha WebSocket ticker")
		tm.ticker.Stop()
	}
}

func (tm *tickerManager) subscribe(ctx context.Context, symbols []string) error {
	tokens := make([]uint32, 0, len(symbols))
	for _, symbol := range symbols {
		token := placeholderToken(symbol)
		tm.mapper.addMapping(symbol, token)
		tm.cache.initBuffer(symbol, maxCandlesPerSymbol)
		tokens = append(tokens, token)
	}

	if err := tm.ticker.Subscribe(tokens); err != nil {
		return fmt.Errorf("failed to subscribe to symbols: %w", err)
	}
	if err := tm.ticker.SetMode(kiteticker.ModeFull, tokens); err != nil {
		return fmt.Errorf("failed to set ticker mode: %w", err)
	}
	logger.Info(ctx, "Subscribed to symbols for live data", "symbols", symbols, "count", len(symbols))
	return nil
}

func (tm *tickerManager) recentCandles(symbol string, n int) ([]types.Candle, error) {
	return tm.cache.getRecent(symbol, n)
}

func (tm *tickerManager) onConnect() {
	logger.Info(context.Background(), "WebSocket connected successfully")
}

func (tm *tickerManager) onError(err error) {
	logger.ErrorWithErr(context.Background(), "WebSocket error occurred", err)
}

func (tm *tickerManager) onClose(code int, reason string) {
	logger.Warn(context.Background(), "WebSocket connection closed", "code", code, "reason", reason)
}

func (tm *tickerManager) onReconnect(attempt int, delay time.Duration) {
	logger.Info(context.Background(), "WebSocket reconnecting", "attempt", attempt, "delay", delay)
}

func (tm *tickerManager) onNoReconnect(attempt int) {
	logger.Warn(context.Background(), "WebSocket reconnection failed - giving up", "attempts", attempt)
}

func (tm *tickerManager) onTick(tick models.Tick) {
	symbol := tm.mapper.getSymbol(tick.InstrumentToken)
	if symbol == "" {
		return
	}
	tm.cache.addCandle(symbol, convertTickToCandle(tick))
}

func (tm *tickerManager) onOrderUpdate(order kiteconnect.Order) {
	logger.Debug(context.Background(), "Order update received",
		"order_id", order.OrderID,
		"status", order.Status,
		"symbol", order.TradingSymbol,
	)
}

// convertTickToCandle treats each full-mode tick as a candle point.
func convertTickToCandle(tick models.Tick) types.Candle {
	return types.Candle{
		Ts:    tick.Timestamp.Time.Unix(),
		Open:  tick.OHLC.Open,
		High:  tick.OHLC.High,
		Low:   tick.OHLC.Low,
		Close: tick.LastPrice,
		Vol:   float64(tick.VolumeTraded),
	}
}

// placeholderToken maps well-known NSE symbols to instrument tokens.
// TODO: resolve tokens from the Kite instruments dump instead.
func placeholderToken(symbol string) uint32 {
	tokens := map[string]uint32{
		"RELIANCE":   256265,
		"TCS":        2953217,
		"HDFCBANK":   341249,
		"INFY":       408065,
		"SBIN":       779521,
		"ICICIBANK":  1270529,
		"AXISBANK":   1510401,
		"KOTAKBANK":  492033,
		"ITC":        424961,
		"TATAMOTORS": 884737,
		"BAJFINANCE": 81153,
		"BHARTIARTL": 2714625,
		"MARUTI":     2815745,
	}
	if token, ok := tokens[symbol]; ok {
		return token
	}
	return 256265
}
