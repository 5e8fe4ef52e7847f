package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/Aidin1998/bookwatch/pkg/models"
)

// Benchmark selects the reference price slippage is measured against.
type Benchmark int

const (
	// BenchmarkArrivalMid benchmarks against the mid price at arrival.
	BenchmarkArrivalMid Benchmark = iota
	// BenchmarkVWAP benchmarks against the window VWAP.
	BenchmarkVWAP
)

// VWAP is the volume-weighted average price over the trade window:
// sum(price*qty)/sum(qty). Zero-quantity trades contribute nothing;
// undefined when total quantity is zero.
func VWAP(trades []models.Trade) models.MetricValue {
	cost := decimal.Zero
	qty := decimal.Zero
	for _, t := range trades {
		if !t.Quantity.IsPositive() {
			continue
		}
		cost = cost.Add(t.Notional())
		qty = qty.Add(t.Quantity)
	}
	if qty.IsZero() {
		return models.UndefinedMetric()
	}
	return models.DefinedValue(cost.Div(qty).InexactFloat64())
}

// Slippage is the signed difference between a realized execution price and a
// benchmark price: positive when the fill was worse than the benchmark for
// the given side. Undefined when the benchmark is undefined.
func Slippage(execPrice decimal.Decimal, side models.Side, benchmark models.MetricValue) models.MetricValue {
	if !benchmark.Defined {
		return models.UndefinedMetric()
	}
	bench := decimal.NewFromFloat(benchmark.Value)
	var slip decimal.Decimal
	if side == models.Bid {
		slip = execPrice.Sub(bench)
	} else {
		slip = bench.Sub(execPrice)
	}
	return models.DefinedValue(slip.InexactFloat64())
}

// ImpactDecomposition splits the book-walk impact of an order of size qty
// into a permanent component (the mid drift that persisted from the before
// snapshot to the horizon snapshot) and a temporary component (the rest,
// the part that reverted within the horizon).
func ImpactDecomposition(before, horizon models.BookSnapshot, aggressor models.Side, qty decimal.Decimal) (total, permanent, temporary models.MetricValue) {
	total = PriceImpact(before, aggressor, qty)
	midB, okB := before.MidPrice()
	midH, okH := horizon.MidPrice()
	if !okB || !okH {
		return total, models.UndefinedMetric(), models.UndefinedMetric()
	}
	var drift decimal.Decimal
	if aggressor == models.Bid {
		drift = midH.Sub(midB)
	} else {
		drift = midB.Sub(midH)
	}
	permanent = models.DefinedValue(drift.InexactFloat64())
	if !total.Defined {
		return total, permanent, models.UndefinedMetric()
	}
	temporary = models.DefinedValue(total.Value - permanent.Value)
	return total, permanent, temporary
}
