// Package metrics exposes prometheus collectors for the book engine and the
// analytics computation path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// UpdatesApplied counts level updates applied to a book, by side.
var UpdatesApplied = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bookwatch_updates_applied_total",
		Help: "Total number of level updates applied to the order book",
	},
	[]string{"instrument", "side"},
)

// UpdatesRejected counts rejected events by reason (invalid_level,
// sequence_gap, halted).
var UpdatesRejected = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bookwatch_updates_rejected_total",
		Help: "Total number of level updates rejected by the order book",
	},
	[]string{"instrument", "reason"},
)

// CrossedBooks counts crossed-book warnings raised after an apply.
var CrossedBooks = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bookwatch_crossed_books_total",
		Help: "Total number of crossed-book conditions observed",
	},
	[]string{"instrument"},
)

// ApplyLatency records latency distribution for applying a single update.
var ApplyLatency = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "bookwatch_apply_latency_seconds",
		Help:    "Latency in seconds to apply a single level update",
		Buckets: prometheus.ExponentialBuckets(1e-7, 4, 10),
	},
)

// ComputeLatency records latency distribution for one metric cycle.
var ComputeLatency = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "bookwatch_compute_latency_seconds",
		Help:    "Latency in seconds to compute one metric record",
		Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
	},
)

// WindowSize tracks the current item count per rolling window.
var WindowSize = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "bookwatch_window_size",
		Help: "Current number of items held in a rolling window",
	},
	[]string{"instrument", "window"},
)

func init() {
	prometheus.MustRegister(UpdatesApplied, UpdatesRejected, CrossedBooks)
	prometheus.MustRegister(ApplyLatency, ComputeLatency, WindowSize)
}
