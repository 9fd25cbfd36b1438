package types

// PortfolioState is a derived snapshot used for sizing decisions. It is
// recomputed from the checkpoint on every decision, never stored.
type PortfolioState struct {
	Capital       float64        `json:"capital"`
	Equity        float64        `json:"equity"`
	TotalNotional float64        `json:"total_notional"`
	RealizedPnL   float64        `json:"realized_pnl"`
	UnrealizedPnL float64        `json:"unrealized_pnl"`
	FreeNotional  float64        `json:"free_notional"`
	OpenPositions int            `json:"open_positions"`
	Positions     map[string]int `json:"positions"`
}

func (s PortfolioState) DayPnL() float64 {
	return s.RealizedPnL + s.UnrealizedPnL
}

// DayPnLPct returns today's PnL as a fraction of the capital base.
// A zero or negative base yields 0 rather than Inf/NaN.
func (s PortfolioState) DayPnLPct(capitalBase float64) float64 {
	if capitalBase <= 0 {
		return 0
	}
	return s.DayPnL() / capitalBase
}

// TradeProposal is a sized order candidate passed through the quality gate.
type TradeProposal struct {
	Symbol  string
	Side    string
	Qty     int
	Price   float64
	EdgeBps float64
}

func (p TradeProposal) Notional() float64 {
	return float64(p.Qty) * p.Price
}

// CostBreakdown itemizes the estimated cost of executing a proposal.
type CostBreakdown struct {
	Brokerage   float64 `json:"brokerage"`
	ExchangeTxn float64 `json:"exchange_txn"`
	STT         float64 `json:"stt"`
	GST         float64 `json:"gst"`
	StampDuty   float64 `json:"stamp_duty"`
	Other       float64 `json:"other"`
	Total       float64 `json:"total"`
}

// TradeDecision is the quality gate's verdict on a proposal.
type TradeDecision struct {
	Approved   bool    `json:"approved"`
	Reason     string  `json:"reason"`
	NetEdgeBps float64 `json:"net_edge_bps"`
}
