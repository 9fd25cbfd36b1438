package risk

import "github.com/vikiirv21/kite-algo-trader/internal/types"

// CostModel estimates the regulatory and brokerage cost of a trade using a
// flat fee plus linear percentages of notional. Stateless.
type CostModel struct {
	BrokerageFlat float64 // flat fee per executed order
	TurnoverPct   float64 // exchange transaction charge, fraction of notional
	STTPct        float64 // securities transaction tax, fraction of notional
	GSTPct        float64 // GST, fraction of brokerage
	StampDutyPct  float64 // stamp duty, fraction of notional
	OtherPct      float64 // SEBI charges and the rest, fraction of notional
}

func (m CostModel) Estimate(qty int, price float64) types.CostBreakdown {
	notional := float64(qty) * price
	c := types.CostBreakdown{
		Brokerage:   m.BrokerageFlat,
		ExchangeTxn: m.TurnoverPct * notional,
		STT:         m.STTPct * notional,
		StampDuty:   m.StampDutyPct * notional,
		Other:       m.OtherPct * notional,
	}
	c.GST = m.GSTPct * c.Brokerage
	c.Total = c.Brokerage + c.ExchangeTxn + c.STT + c.GST + c.StampDuty + c.Other
	return c
}
