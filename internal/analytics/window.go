package analytics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Aidin1998/bookwatch/internal/window"
	"github.com/Aidin1998/bookwatch/pkg/metrics"
)

// windowOf wraps a rolling window with a size gauge so dashboards can watch
// history depth per instrument.
type windowOf[T any] struct {
	win  *window.Window[T]
	size prometheus.Gauge
}

func newWindowOf[T any](instrument, name string, maxCount int, maxAge time.Duration) *windowOf[T] {
	return &windowOf[T]{
		win:  window.New[T](maxCount, maxAge),
		size: metrics.WindowSize.WithLabelValues(instrument, name),
	}
}

func (w *windowOf[T]) push(item T, at time.Time) {
	w.win.Push(item, at)
	w.size.Set(float64(w.win.Len()))
}

func (w *windowOf[T]) values() []T {
	return w.win.Values()
}
