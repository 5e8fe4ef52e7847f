package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fault is a non-fatal condition surfaced to monitoring consumers. Faults
// never stop the engine; structural errors that do are in pkg/errors.
type Fault interface {
	FaultKind() string
	FaultTime() time.Time
}

// CrossedBookWarning is raised when bestBid >= bestAsk with both sides
// populated. Crossed books occur transiently in real feeds; state is kept
// and flagged, not rolled back.
type CrossedBookWarning struct {
	Instrument string          `json:"instrument"`
	BestBid    decimal.Decimal `json:"best_bid"`
	BestAsk    decimal.Decimal `json:"best_ask"`
	Sequence   uint64          `json:"sequence"`
	Timestamp  time.Time       `json:"timestamp"`
}

func (w CrossedBookWarning) FaultKind() string    { return "crossed_book" }
func (w CrossedBookWarning) FaultTime() time.Time { return w.Timestamp }

// StaleDataWarning is raised when no update arrived within the configured
// timeout. Book state is retained.
type StaleDataWarning struct {
	Instrument string        `json:"instrument"`
	LastUpdate time.Time     `json:"last_update"`
	Timeout    time.Duration `json:"timeout"`
	Timestamp  time.Time     `json:"timestamp"`
}

func (w StaleDataWarning) FaultKind() string    { return "stale_data" }
func (w StaleDataWarning) FaultTime() time.Time { return w.Timestamp }

// SequenceGapFault mirrors a SequenceGapError on the fault stream so that
// monitoring consumers see gaps without unwrapping the update path's error.
type SequenceGapFault struct {
	Instrument string    `json:"instrument"`
	Expected   uint64    `json:"expected"`
	Got        uint64    `json:"got"`
	Timestamp  time.Time `json:"timestamp"`
}

func (w SequenceGapFault) FaultKind() string    { return "sequence_gap" }
func (w SequenceGapFault) FaultTime() time.Time { return w.Timestamp }
