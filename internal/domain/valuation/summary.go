package valuation

import (
	"math"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Summary aggregates a filtered collection. Count percentages are rounded to
// whole numbers; TotalValueGapPct is the value-weighted gap and stays real.
type Summary struct {
	Total               int
	UndervaluedCount    int
	OvervaluedCount     int
	FairCount           int
	UndervaluedPct      int
	OvervaluedPct       int
	TotalMarketValue    float64
	TotalPredictedValue float64
	TotalValueGap       float64
	TotalValueGapPct    float64
}

// Summarize never yields NaN or Inf: an empty input or a zero market total
// reports zero percentages.
func Summarize(records []PlayerRecord) Summary {
	var summary Summary
	market := decimal.Zero
	predicted := decimal.Zero

	for _, record := range records {
		summary.Total++
		switch record.ValuationStatus {
		case StatusUndervalued:
			summary.UndervaluedCount++
		case StatusOvervalued:
			summary.OvervaluedCount++
		default:
			summary.FairCount++
		}
		market = market.Add(decimal.NewFromFloat(record.MarketValue))
		predicted = predicted.Add(decimal.NewFromFloat(record.PredictedValue))
	}

	gap := predicted.Sub(market)
	summary.TotalMarketValue = market.InexactFloat64()
	summary.TotalPredictedValue = predicted.InexactFloat64()
	summary.TotalValueGap = gap.InexactFloat64()

	if summary.Total > 0 {
		summary.UndervaluedPct = roundedShare(summary.UndervaluedCount, summary.Total)
		summary.OvervaluedPct = roundedShare(summary.OvervaluedCount, summary.Total)
	}
	if market.IsPositive() {
		summary.TotalValueGapPct = gap.Div(market).Mul(hundred).InexactFloat64()
	}

	return summary
}

func roundedShare(count, total int) int {
	return int(math.Round(float64(count) * 100 / float64(total)))
}
