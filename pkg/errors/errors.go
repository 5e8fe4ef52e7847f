// Package errors defines the typed structural errors of the book engine.
// Engine errors stop the affected book's update path; metric-level failures
// are per-metric undefined markers (models.MetricValue) and never appear here.
package errors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Aidin1998/bookwatch/pkg/models"
)

// Standard error functions
var (
	Is     = errors.Is
	As     = errors.As
	New    = errors.New
	Unwrap = errors.Unwrap
)

// InvalidLevelError rejects a level update carrying a non-positive price or
// a negative quantity. The event is dropped; book state is unchanged.
type InvalidLevelError struct {
	Side     models.Side
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Reason   string
}

func (e *InvalidLevelError) Error() string {
	return fmt.Sprintf("invalid level %s %s@%s: %s", e.Side, e.Quantity, e.Price, e.Reason)
}

// SequenceGapError rejects an update whose sequence number is not exactly
// lastSequence+1. The book halts until a BookReset re-baselines it.
type SequenceGapError struct {
	Instrument string
	Expected   uint64
	Got        uint64
}

func (e *SequenceGapError) Error() string {
	return fmt.Sprintf("sequence gap on %s: expected %d, got %d", e.Instrument, e.Expected, e.Got)
}

// BookHaltedError rejects updates applied after an unresynchronized gap.
type BookHaltedError struct {
	Instrument string
	LastSeq    uint64
}

func (e *BookHaltedError) Error() string {
	return fmt.Sprintf("book %s halted at sequence %d, awaiting reset", e.Instrument, e.LastSeq)
}

// IsSequenceGap reports whether err is (or wraps) a SequenceGapError.
func IsSequenceGap(err error) bool {
	var gap *SequenceGapError
	return As(err, &gap)
}

// IsHalted reports whether err is (or wraps) a BookHaltedError.
func IsHalted(err error) bool {
	var halted *BookHaltedError
	return As(err, &halted)
}
