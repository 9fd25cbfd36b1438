package zerodha

import (
	"fmt"
	"sync"

	"github.com/vikiirv21/kite-algo-trader/internal/types"
)

// candleCache keeps a bounded ring of recent candles per symbol.
type candleCache struct {
	mu      sync.RWMutex
	buffers map[string]*candleBuffer
}

type candleBuffer struct {
	candles []types.Candle
	max     int
}

func newCandleCache() *candleCache {
	return &candleCache{buffers: make(map[string]*candleBuffer)}
}

func (c *candleCache) initBuffer(symbol string, max int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.buffers[symbol]; !ok {
		c.buffers[symbol] = &candleBuffer{candles: make([]types.Candle, 0, max), max: max}
	}
}

func (c *candleCache) addCandle(symbol string, candle types.Candle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf, ok := c.buffers[symbol]
	if !ok {
		buf = &candleBuffer{candles: make([]types.Candle, 0, maxCandlesPerSymbol), max: maxCandlesPerSymbol}
		c.buffers[symbol] = buf
	}

	// Same-timestamp ticks update the latest candle in place.
	if n := len(buf.candles); n > 0 && buf.candles[n-1].Ts == candle.Ts {
		buf.candles[n-1] = candle
		return
	}

	buf.candles = append(buf.candles, candle)
	if len(buf.candles) > buf.max {
		buf.candles = buf.candles[1:]
	}
}

func (c *candleCache) getRecent(symbol string, n int) ([]types.Candle, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	buf, ok := c.buffers[symbol]
	if !ok || len(buf.candles) == 0 {
		return nil, fmt.Errorf("no candle data for symbol %s", symbol)
	}

	start := len(buf.candles) - n
	if start < 0 {
		start = 0
	}
	out := make([]types.Candle, len(buf.candles)-start)
	copy(out, buf.candles[start:])
	return out, nil
}

// instrumentMapper is a two-way symbol/token map guarded for concurrent
// tick handling.
type instrumentMapper struct {
	mu            sync.RWMutex
	symbolToToken map[string]uint32
	tokenToSymbol map[uint32]string
}

func newInstrumentMapper() *instrumentMapper {
	return &instrumentMapper{
		symbolToToken: make(map[string]uint32),
		tokenToSymbol: make(map[uint32]string),
	}
}

func (m *instrumentMapper) addMapping(symbol string, token uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.symbolToToken[symbol] = token
	m.tokenToSymbol[token] = symbol
}

func (m *instrumentMapper) getSymbol(token uint32) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokenToSymbol[token]
}
