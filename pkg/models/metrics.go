package models

import (
	"fmt"
	"time"
)

// MetricValue is a single computed metric tagged with validity. A metric
// whose preconditions are unmet (empty book, zero volume, short window) is
// carried as undefined, never as NaN or a sentinel number.
type MetricValue struct {
	Value   float64 `json:"value"`
	Defined bool    `json:"defined"`
}

// DefinedValue wraps a computed value.
func DefinedValue(v float64) MetricValue {
	return MetricValue{Value: v, Defined: true}
}

// UndefinedMetric marks a metric whose preconditions were not met.
func UndefinedMetric() MetricValue {
	return MetricValue{}
}

func (m MetricValue) String() string {
	if !m.Defined {
		return "undefined"
	}
	return fmt.Sprintf("%g", m.Value)
}

// SpreadMetrics covers the spread family computed per cycle.
type SpreadMetrics struct {
	Absolute   MetricValue `json:"absolute"`
	Relative   MetricValue `json:"relative"`
	ImpactBuy  MetricValue `json:"impact_buy"`
	ImpactSell MetricValue `json:"impact_sell"`
	Mean       MetricValue `json:"mean"`
	StdDev     MetricValue `json:"stddev"`
	Trend      MetricValue `json:"trend"`
}

// DepthMetrics covers depth, imbalance, and book-shape metrics.
type DepthMetrics struct {
	BidDepth       MetricValue `json:"bid_depth"`
	AskDepth       MetricValue `json:"ask_depth"`
	Imbalance      MetricValue `json:"imbalance"`
	LiquidityScore MetricValue `json:"liquidity_score"`
	BidSlope       MetricValue `json:"bid_slope"`
	AskSlope       MetricValue `json:"ask_slope"`
	Resilience     MetricValue `json:"resilience_seconds"`
}

// LiquidityMetrics covers the regression-based liquidity estimators.
type LiquidityMetrics struct {
	KyleLambda      MetricValue `json:"kyle_lambda"`
	AmihudRatio     MetricValue `json:"amihud_ratio"`
	CoverageRatio   MetricValue `json:"coverage_ratio"`
	PriceEfficiency MetricValue `json:"price_efficiency"`
}

// ExecutionMetrics covers execution-quality metrics over the trade window.
type ExecutionMetrics struct {
	VWAP            MetricValue `json:"vwap"`
	ImpactTotal     MetricValue `json:"impact_total"`
	ImpactPermanent MetricValue `json:"impact_permanent"`
	ImpactTemporary MetricValue `json:"impact_temporary"`
}

// MetricRecord is one computation cycle's output. Ownership passes to the
// caller on emit; the analytics service does not retain records.
type MetricRecord struct {
	Instrument string           `json:"instrument"`
	Sequence   uint64           `json:"sequence"`
	Timestamp  time.Time        `json:"timestamp"`
	Spread     SpreadMetrics    `json:"spread"`
	Depth      DepthMetrics     `json:"depth"`
	Liquidity  LiquidityMetrics `json:"liquidity"`
	Execution  ExecutionMetrics `json:"execution"`
}
