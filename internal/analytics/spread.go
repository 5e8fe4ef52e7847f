// Package analytics derives market-microstructure metrics from book
// snapshots and trade history. Every function here is pure and stateless:
// it reads an already-captured snapshot or window and returns an explicit
// undefined marker whenever its preconditions fail, never NaN or a sentinel.
package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/Aidin1998/bookwatch/pkg/models"
)

// AbsoluteSpread returns bestAsk - bestBid, undefined on empty or one-sided
// books.
func AbsoluteSpread(s models.BookSnapshot) models.MetricValue {
	spread, ok := s.Spread()
	if !ok {
		return models.UndefinedMetric()
	}
	return models.DefinedValue(spread.InexactFloat64())
}

// RelativeSpread returns spread/mid.
func RelativeSpread(s models.BookSnapshot) models.MetricValue {
	rel, ok := s.RelativeSpread()
	if !ok {
		return models.UndefinedMetric()
	}
	return models.DefinedValue(rel.InexactFloat64())
}

// PriceImpact estimates the cost of a hypothetical aggressive order of size
// qty: the price needed to walk the book by cumulative quantity qty, minus
// mid, expressed positive in the adverse direction. Undefined when the book
// cannot fill qty or has no mid.
func PriceImpact(s models.BookSnapshot, aggressor models.Side, qty decimal.Decimal) models.MetricValue {
	mid, ok := s.MidPrice()
	if !ok {
		return models.UndefinedMetric()
	}
	_, filled, marginal, ok := s.WalkBook(aggressor, qty)
	if !ok || filled.LessThan(qty) {
		return models.UndefinedMetric()
	}
	var impact decimal.Decimal
	if aggressor == models.Bid {
		impact = marginal.Sub(mid)
	} else {
		impact = mid.Sub(marginal)
	}
	return models.DefinedValue(impact.InexactFloat64())
}

// SpreadSeries extracts the defined absolute spreads from a snapshot window,
// oldest first, paired with their timestamps. Snapshots without a two-sided
// book are skipped.
func SpreadSeries(snaps []models.BookSnapshot) (spreads []float64, times []int64) {
	for _, s := range snaps {
		if spread, ok := s.Spread(); ok {
			spreads = append(spreads, spread.InexactFloat64())
			times = append(times, s.Timestamp.UnixNano())
		}
	}
	return spreads, times
}

// SpreadTrend is the OLS slope of the absolute spread against its
// observation index over the window: positive when the spread is widening,
// negative when tightening. Undefined below two defined spreads.
func SpreadTrend(snaps []models.BookSnapshot) models.MetricValue {
	spreads, _ := SpreadSeries(snaps)
	xs := make([]float64, len(spreads))
	for i := range xs {
		xs[i] = float64(i)
	}
	slope, ok := olsSlope(xs, spreads)
	if !ok {
		return models.UndefinedMetric()
	}
	return models.DefinedValue(slope)
}

// SpreadStats returns mean and population stddev of the absolute spread over
// the window. Mean requires one defined spread, stddev two.
func SpreadStats(snaps []models.BookSnapshot) (meanVal, stdVal models.MetricValue) {
	spreads, _ := SpreadSeries(snaps)
	if len(spreads) == 0 {
		return models.UndefinedMetric(), models.UndefinedMetric()
	}
	meanVal = models.DefinedValue(mean(spreads))
	if sd, ok := stddev(spreads); ok {
		stdVal = models.DefinedValue(sd)
	} else {
		stdVal = models.UndefinedMetric()
	}
	return meanVal, stdVal
}
