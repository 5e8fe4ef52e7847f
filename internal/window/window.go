// Package window provides the rolling history buffers backing the windowed
// analytics: bounded by item count, by age, or both, with O(1) amortized
// eviction.
package window

import "time"

type entry[T any] struct {
	at   time.Time
	item T
}

// Window is a time- and/or count-bounded sequence of items ordered by
// insertion. Push appends and evicts from the front; Values materializes the
// current contents oldest-first. The zero bounds disable the respective
// limit.
//
// Age eviction is measured against the newest pushed timestamp, not the wall
// clock, so replayed histories behave deterministically.
//
// Window is not safe for concurrent use; the analytics service serializes
// access under its single-writer discipline.
type Window[T any] struct {
	maxCount int
	maxAge   time.Duration

	buf    []entry[T]
	head   int
	length int
	newest time.Time
}

// New creates a window holding at most maxCount items no older than maxAge.
// maxCount <= 0 means unbounded by count; maxAge <= 0 unbounded by age.
func New[T any](maxCount int, maxAge time.Duration) *Window[T] {
	initial := 64
	if maxCount > 0 && maxCount < initial {
		initial = maxCount
	}
	return &Window[T]{
		maxCount: maxCount,
		maxAge:   maxAge,
		buf:      make([]entry[T], initial),
	}
}

// Len returns the current number of held items.
func (w *Window[T]) Len() int { return w.length }

// Push appends an item stamped at the given time and evicts items that fall
// outside the count or age bound.
func (w *Window[T]) Push(item T, at time.Time) {
	if at.After(w.newest) {
		w.newest = at
	}
	if w.maxCount > 0 && w.length == w.maxCount {
		w.popFront()
	}
	if w.length == len(w.buf) {
		w.grow()
	}
	w.buf[(w.head+w.length)%len(w.buf)] = entry[T]{at: at, item: item}
	w.length++
	w.evictAged()
}

// Values returns the current contents, oldest first, as an independent slice.
func (w *Window[T]) Values() []T {
	out := make([]T, 0, w.length)
	for i := 0; i < w.length; i++ {
		out = append(out, w.buf[(w.head+i)%len(w.buf)].item)
	}
	return out
}

// Newest returns the most recent item, if any.
func (w *Window[T]) Newest() (T, bool) {
	var zero T
	if w.length == 0 {
		return zero, false
	}
	return w.buf[(w.head+w.length-1)%len(w.buf)].item, true
}

// Oldest returns the least recent item, if any.
func (w *Window[T]) Oldest() (T, bool) {
	var zero T
	if w.length == 0 {
		return zero, false
	}
	return w.buf[w.head].item, true
}

// Clear drops all items.
func (w *Window[T]) Clear() {
	var zero entry[T]
	for i := 0; i < w.length; i++ {
		w.buf[(w.head+i)%len(w.buf)] = zero
	}
	w.head = 0
	w.length = 0
}

func (w *Window[T]) evictAged() {
	if w.maxAge <= 0 {
		return
	}
	cutoff := w.newest.Add(-w.maxAge)
	for w.length > 0 && w.buf[w.head].at.Before(cutoff) {
		w.popFront()
	}
}

func (w *Window[T]) popFront() {
	var zero entry[T]
	w.buf[w.head] = zero
	w.head = (w.head + 1) % len(w.buf)
	w.length--
}

func (w *Window[T]) grow() {
	next := make([]entry[T], len(w.buf)*2)
	for i := 0; i < w.length; i++ {
		next[i] = w.buf[(w.head+i)%len(w.buf)]
	}
	w.buf = next
	w.head = 0
}
