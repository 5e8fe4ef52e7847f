package analytics

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/Aidin1998/bookwatch/pkg/models"
)

// FlowSample is one inter-snapshot interval: the mid-price change across the
// interval and the signed trade volume (buys positive) executed within it.
type FlowSample struct {
	MidChange    float64
	SignedVolume float64
}

// IntervalSample is one inter-snapshot interval for the Amihud ratio: the
// mid-price return across the interval and the traded dollar volume within.
type IntervalSample struct {
	Return       float64
	DollarVolume float64
}

// KyleLambda is the OLS regression slope of mid-price change against signed
// trade volume: the price impact per unit of signed order flow. Undefined
// below minSamples or when the signed volume has zero variance.
func KyleLambda(samples []FlowSample, minSamples int) models.MetricValue {
	if minSamples < 2 {
		minSamples = 2
	}
	if len(samples) < minSamples {
		return models.UndefinedMetric()
	}
	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	for i, smp := range samples {
		xs[i] = smp.SignedVolume
		ys[i] = smp.MidChange
	}
	slope, ok := olsSlope(xs, ys)
	if !ok {
		return models.UndefinedMetric()
	}
	return models.DefinedValue(slope)
}

// AmihudRatio is the mean of |return|/dollarVolume over intervals with
// nonzero volume. Zero-volume intervals are excluded from the mean, not
// counted as zero; undefined when every interval had zero volume.
func AmihudRatio(samples []IntervalSample) models.MetricValue {
	sum := 0.0
	n := 0
	for _, smp := range samples {
		if smp.DollarVolume <= 0 {
			continue
		}
		sum += math.Abs(smp.Return) / smp.DollarVolume
		n++
	}
	if n == 0 {
		return models.UndefinedMetric()
	}
	return models.DefinedValue(sum / float64(n))
}

// LiquidityCoverageRatio divides the total visible quantity on both sides of
// the snapshot by a stress volume the book is expected to absorb. Values
// above 1 mean the captured depth covers the stress scenario. Undefined when
// stressVolume is non-positive or the book is empty.
func LiquidityCoverageRatio(s models.BookSnapshot, stressVolume decimal.Decimal) models.MetricValue {
	if !stressVolume.IsPositive() {
		return models.UndefinedMetric()
	}
	total := decimal.Zero
	for _, lvl := range s.Bids {
		total = total.Add(lvl.Quantity)
	}
	for _, lvl := range s.Asks {
		total = total.Add(lvl.Quantity)
	}
	if total.IsZero() {
		return models.UndefinedMetric()
	}
	return models.DefinedValue(total.Div(stressVolume).InexactFloat64())
}

// PriceEfficiency runs a two-period variance-ratio test on the mid-price
// returns of the snapshot window. A random walk scores 1; efficiency is
// 1 - |ratio - 1| clamped to [0, 1], so a strongly mean-reverting or
// trending mid scores low. Undefined below five defined mids or when the
// single-period returns have zero variance.
func PriceEfficiency(snaps []models.BookSnapshot) models.MetricValue {
	mids := midSeries(snaps)
	if len(mids) < 5 {
		return models.UndefinedMetric()
	}
	r1 := make([]float64, 0, len(mids)-1)
	for i := 0; i+1 < len(mids); i++ {
		r1 = append(r1, (mids[i+1]-mids[i])/mids[i])
	}
	r2 := make([]float64, 0, len(mids)-2)
	for i := 0; i+2 < len(mids); i++ {
		r2 = append(r2, (mids[i+2]-mids[i])/mids[i])
	}
	v1, ok1 := variance(r1)
	v2, ok2 := variance(r2)
	if !ok1 || !ok2 || v1 == 0 {
		return models.UndefinedMetric()
	}
	ratio := (v2 / 2) / v1
	eff := 1 - math.Abs(ratio-1)
	if eff < 0 {
		eff = 0
	}
	return models.DefinedValue(eff)
}

// midSeries extracts the defined mid prices from a snapshot window, oldest
// first. One-sided snapshots are skipped.
func midSeries(snaps []models.BookSnapshot) []float64 {
	var mids []float64
	for _, s := range snaps {
		if mid, ok := s.MidPrice(); ok {
			mids = append(mids, mid.InexactFloat64())
		}
	}
	return mids
}

// BuildFlowSamples pairs consecutive snapshots with the trades executed
// between them. Intervals bordered by a snapshot without a defined mid are
// skipped. Trades are attributed to the interval (t_i, t_{i+1}].
func BuildFlowSamples(snaps []models.BookSnapshot, trades []models.Trade) []FlowSample {
	if len(snaps) < 2 {
		return nil
	}
	samples := make([]FlowSample, 0, len(snaps)-1)
	for i := 0; i+1 < len(snaps); i++ {
		midA, okA := snaps[i].MidPrice()
		midB, okB := snaps[i+1].MidPrice()
		if !okA || !okB {
			continue
		}
		signed := 0.0
		for _, t := range trades {
			if t.Timestamp.After(snaps[i].Timestamp) && !t.Timestamp.After(snaps[i+1].Timestamp) {
				signed += t.SignedQuantity().InexactFloat64()
			}
		}
		samples = append(samples, FlowSample{
			MidChange:    midB.Sub(midA).InexactFloat64(),
			SignedVolume: signed,
		})
	}
	return samples
}

// BuildIntervalSamples pairs consecutive snapshots with the dollar volume
// traded between them, for the Amihud ratio.
func BuildIntervalSamples(snaps []models.BookSnapshot, trades []models.Trade) []IntervalSample {
	if len(snaps) < 2 {
		return nil
	}
	samples := make([]IntervalSample, 0, len(snaps)-1)
	for i := 0; i+1 < len(snaps); i++ {
		midA, okA := snaps[i].MidPrice()
		midB, okB := snaps[i+1].MidPrice()
		if !okA || !okB || midA.IsZero() {
			continue
		}
		dollars := 0.0
		for _, t := range trades {
			if t.Timestamp.After(snaps[i].Timestamp) && !t.Timestamp.After(snaps[i+1].Timestamp) {
				dollars += t.Notional().InexactFloat64()
			}
		}
		samples = append(samples, IntervalSample{
			Return:       midB.Sub(midA).Div(midA).InexactFloat64(),
			DollarVolume: dollars,
		})
	}
	return samples
}
