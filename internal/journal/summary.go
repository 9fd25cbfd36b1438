package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// SymbolSummary aggregates one symbol's journaled order flow.
type SymbolSummary struct {
	Symbol    string  `json:"symbol"`
	BuyQty    int     `json:"buy_qty"`
	BuyValue  float64 `json:"buy_value"`
	SellQty   int     `json:"sell_qty"`
	SellValue float64 `json:"sell_value"`
	Orders    int     `json:"orders"`
}

// Summarize aggregates orders.csv per symbol. A missing journal returns an
// empty summary rather than an error.
func Summarize(dir string) ([]SymbolSummary, error) {
	fl, err := os.Open(filepath.Join(dir, "orders.csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer fl.Close()

	reader := csv.NewReader(fl)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, nil
	}

	col := map[string]int{}
	for i, name := range rows[0] {
		col[name] = i
	}

	aggs := map[string]*SymbolSummary{}
	for _, row := range rows[1:] {
		symbol := field(row, col, "symbol")
		if symbol == "" {
			continue
		}
		agg := aggs[symbol]
		if agg == nil {
			agg = &SymbolSummary{Symbol: symbol}
			aggs[symbol] = agg
		}
		qty, _ := strconv.Atoi(field(row, col, "qty"))
		price, _ := strconv.ParseFloat(field(row, col, "price"), 64)
		switch field(row, col, "side") {
		case "BUY":
			agg.BuyQty += qty
			agg.BuyValue += float64(qty) * price
		case "SELL":
			agg.SellQty += qty
			agg.SellValue += float64(qty) * price
		}
		agg.Orders++
	}

	out := make([]SymbolSummary, 0, len(aggs))
	for _, a := range aggs {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func field(row []string, col map[string]int, name string) string {
	if i, ok := col[name]; ok && i < len(row) {
		return row[i]
	}
	return ""
}
