package analytics

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Aidin1998/bookwatch/pkg/models"
)

// Imbalance returns (bidDepth-askDepth)/(bidDepth+askDepth) over levels
// within band of each side's best, in [-1, 1]. Undefined when both depths
// are zero.
func Imbalance(s models.BookSnapshot, band decimal.Decimal) models.MetricValue {
	bid := s.DepthWithin(models.Bid, band)
	ask := s.DepthWithin(models.Ask, band)
	total := bid.Add(ask)
	if total.IsZero() {
		return models.UndefinedMetric()
	}
	return models.DefinedValue(bid.Sub(ask).Div(total).InexactFloat64())
}

// LiquidityScore combines depth and inverse spread:
//
//	score = wDepth*log1p(bidDepth+askDepth) + wSpread/relativeSpread
//
// Depth is taken within band of best on each side. Weights come from
// configuration (defaults 0.7/0.3). Undefined when the relative spread is
// undefined or zero.
func LiquidityScore(s models.BookSnapshot, band decimal.Decimal, wDepth, wSpread float64) models.MetricValue {
	rel, ok := s.RelativeSpread()
	if !ok || !rel.IsPositive() {
		return models.UndefinedMetric()
	}
	depth := s.DepthWithin(models.Bid, band).Add(s.DepthWithin(models.Ask, band))
	score := wDepth*math.Log1p(depth.InexactFloat64()) + wSpread/rel.InexactFloat64()
	return models.DefinedValue(score)
}

// BookSlope regresses log cumulative quantity against price distance from
// the side's best over the captured levels. A steeper positive slope means
// quantity builds up quickly close to the touch. Requires at least three
// distinct price levels, else undefined.
func BookSlope(s models.BookSnapshot, side models.Side) models.MetricValue {
	levels := s.Levels(side)
	if len(levels) < 3 {
		return models.UndefinedMetric()
	}
	best := levels[0].Price
	xs := make([]float64, 0, len(levels))
	ys := make([]float64, 0, len(levels))
	cum := decimal.Zero
	for _, lvl := range levels {
		cum = cum.Add(lvl.Quantity)
		if !cum.IsPositive() {
			continue
		}
		xs = append(xs, lvl.Price.Sub(best).Abs().InexactFloat64())
		ys = append(ys, math.Log(cum.InexactFloat64()))
	}
	if len(xs) < 3 {
		return models.UndefinedMetric()
	}
	slope, ok := olsSlope(xs, ys)
	if !ok {
		return models.UndefinedMetric()
	}
	return models.DefinedValue(slope)
}

// ImbalanceTopN is the volume imbalance over the top n levels per side, the
// level-count companion to the price-band Imbalance. Undefined when n is
// non-positive or both sides are empty.
func ImbalanceTopN(s models.BookSnapshot, n int) models.MetricValue {
	if n <= 0 {
		return models.UndefinedMetric()
	}
	sum := func(levels []models.PriceLevel) decimal.Decimal {
		total := decimal.Zero
		for i, lvl := range levels {
			if i >= n {
				break
			}
			total = total.Add(lvl.Quantity)
		}
		return total
	}
	bid := sum(s.Bids)
	ask := sum(s.Asks)
	total := bid.Add(ask)
	if total.IsZero() {
		return models.UndefinedMetric()
	}
	return models.DefinedValue(bid.Sub(ask).Div(total).InexactFloat64())
}

// Resilience measures how long the spread took to recover after the most
// recent liquidity shock in the window. A shock is a spread exceeding
// mean + k*sigma of the trailing `trailing` observations; recovery is the
// first later observation within eps of the pre-shock trailing mean.
// Undefined when no shock is detected or the spread has not yet recovered.
func Resilience(snaps []models.BookSnapshot, trailing int, k, eps float64) models.MetricValue {
	if trailing < 2 {
		return models.UndefinedMetric()
	}
	spreads, times := SpreadSeries(snaps)
	if len(spreads) <= trailing {
		return models.UndefinedMetric()
	}
	for i := trailing; i < len(spreads); i++ {
		window := spreads[i-trailing : i]
		m := mean(window)
		sd, ok := stddev(window)
		if !ok {
			continue
		}
		if spreads[i] <= m+k*sd {
			continue
		}
		// Shock at i; recovery is the first later spread within eps of the
		// pre-shock trailing mean, on either side.
		for j := i + 1; j < len(spreads); j++ {
			if math.Abs(spreads[j]-m) <= eps {
				return models.DefinedValue(time.Duration(times[j] - times[i]).Seconds())
			}
		}
		return models.UndefinedMetric()
	}
	return models.UndefinedMetric()
}
