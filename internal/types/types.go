package types

type Candle struct {
	Ts                          int64
	Open, High, Low, Close, Vol float64
}

// Signal is what a strategy produces for one price bar.
type Signal struct {
	Action     string  `json:"action"` // BUY, SELL, HOLD
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
	EdgeBps    float64 `json:"edge_bps,omitempty"`
}

type OrderReq struct {
	Symbol, Side string
	Qty          int
	Price        float64
	Tag          string
}
type OrderResp struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type StepResult struct {
	Symbol string      `json:"symbol"`
	Signal Signal      `json:"signal"`
	Price  float64     `json:"price"`
	Time   int64       `json:"time"`
	Orders []OrderResp `json:"orders"`
	Reason string      `json:"reason"`
}

// BrokerOrder is an order as reported by the broker's order book poll.
type BrokerOrder struct {
	OrderID   string  `json:"order_id"`
	Symbol    string  `json:"symbol"`
	Side      string  `json:"side"`
	Status    string  `json:"status"`
	Qty       int     `json:"qty"`
	FilledQty int     `json:"filled_qty"`
	AvgPrice  float64 `json:"avg_price"`
}

// BrokerPosition is a position as reported by the broker.
type BrokerPosition struct {
	Symbol   string  `json:"symbol"`
	Qty      int     `json:"qty"`
	AvgPrice float64 `json:"avg_price"`
}
