// Package orderbook maintains per-instrument bid/ask price-level state under
// a single-writer, multi-reader discipline and produces consistent
// point-in-time snapshots for the analytics layer.
package orderbook

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	bwerrors "github.com/Aidin1998/bookwatch/pkg/errors"
	"github.com/Aidin1998/bookwatch/pkg/metrics"
	"github.com/Aidin1998/bookwatch/pkg/models"
)

// FaultFunc receives non-fatal fault events (crossed book, sequence gap,
// stale data). Handlers must not block; the engine calls them while holding
// its write lock.
type FaultFunc func(models.Fault)

// Book is the order-book engine for a single instrument. Exactly one
// goroutine applies updates (the ingestion path); any number of goroutines
// may take snapshots or read best/mid/spread concurrently.
//
// Sequencing: the first update after construction or a reset baselines the
// sequence number; from then on every update must carry lastSeq+1. A gap
// halts the book until ApplyReset supplies a full image.
type Book struct {
	mu         sync.RWMutex
	id         uuid.UUID
	instrument string
	bids       *LevelStore
	asks       *LevelStore

	lastSeq    uint64
	seeded     bool
	halted     bool
	crossed    bool
	crossedBid decimal.Decimal
	crossedAsk decimal.Decimal
	lastUpdate time.Time

	log     *zap.Logger
	onFault FaultFunc
}

// NewBook creates an empty book. onFault may be nil.
func NewBook(instrument string, log *zap.Logger, onFault FaultFunc) *Book {
	if log == nil {
		log = zap.NewNop()
	}
	return &Book{
		id:         uuid.New(),
		instrument: instrument,
		bids:       NewLevelStore(models.Bid),
		asks:       NewLevelStore(models.Ask),
		log:        log.With(zap.String("instrument", instrument)),
		onFault:    onFault,
	}
}

// ID returns the engine instance id.
func (b *Book) ID() uuid.UUID { return b.id }

// Instrument returns the instrument symbol this book tracks.
func (b *Book) Instrument() string { return b.instrument }

// ApplyUpdate applies one normalized level update. It returns
// InvalidLevelError for non-positive prices or negative quantities,
// SequenceGapError for non-contiguous sequence numbers (halting the book),
// and BookHaltedError while a gap is unresolved. Quantity zero removes the
// level at that price; removal of an absent price is a no-op.
func (b *Book) ApplyUpdate(u models.LevelUpdate) error {
	start := time.Now()
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.halted {
		metrics.UpdatesRejected.WithLabelValues(b.instrument, "halted").Inc()
		return &bwerrors.BookHaltedError{Instrument: b.instrument, LastSeq: b.lastSeq}
	}
	if !u.Price.IsPositive() {
		metrics.UpdatesRejected.WithLabelValues(b.instrument, "invalid_level").Inc()
		return &bwerrors.InvalidLevelError{Side: u.Side, Price: u.Price, Quantity: u.Quantity, Reason: "non-positive price"}
	}
	if u.Quantity.IsNegative() {
		metrics.UpdatesRejected.WithLabelValues(b.instrument, "invalid_level").Inc()
		return &bwerrors.InvalidLevelError{Side: u.Side, Price: u.Price, Quantity: u.Quantity, Reason: "negative quantity"}
	}
	if b.seeded && u.Sequence != b.lastSeq+1 {
		b.halted = true
		metrics.UpdatesRejected.WithLabelValues(b.instrument, "sequence_gap").Inc()
		b.log.Warn("sequence gap, halting book",
			zap.Uint64("expected", b.lastSeq+1),
			zap.Uint64("got", u.Sequence))
		b.emitFault(models.SequenceGapFault{
			Instrument: b.instrument,
			Expected:   b.lastSeq + 1,
			Got:        u.Sequence,
			Timestamp:  u.Timestamp,
		})
		return &bwerrors.SequenceGapError{Instrument: b.instrument, Expected: b.lastSeq + 1, Got: u.Sequence}
	}

	b.sideStore(u.Side).Upsert(models.PriceLevel{
		Price:      u.Price,
		Quantity:   u.Quantity,
		OrderCount: u.OrderCount,
	})
	b.lastSeq = u.Sequence
	b.seeded = true
	if u.Timestamp.IsZero() {
		b.lastUpdate = time.Now()
	} else {
		b.lastUpdate = u.Timestamp
	}

	b.checkCrossed(u.Sequence)

	metrics.UpdatesApplied.WithLabelValues(b.instrument, u.Side.String()).Inc()
	metrics.ApplyLatency.Observe(time.Since(start).Seconds())
	return nil
}

// ApplyReset replaces both sides with the supplied full image, re-baselines
// the sequence number, and clears the halted flag. Levels with non-positive
// price or quantity are dropped rather than stored.
func (b *Book) ApplyReset(r models.BookReset) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bids.Clear()
	b.asks.Clear()
	for _, lvl := range r.Bids {
		if lvl.Price.IsPositive() && lvl.Quantity.IsPositive() {
			b.bids.Upsert(lvl)
		}
	}
	for _, lvl := range r.Asks {
		if lvl.Price.IsPositive() && lvl.Quantity.IsPositive() {
			b.asks.Upsert(lvl)
		}
	}
	b.lastSeq = r.Sequence
	b.seeded = true
	b.halted = false
	if !r.Timestamp.IsZero() {
		b.lastUpdate = r.Timestamp
	}
	b.checkCrossed(r.Sequence)
	b.log.Info("book reset",
		zap.Uint64("sequence", r.Sequence),
		zap.Int("bid_levels", b.bids.Len()),
		zap.Int("ask_levels", b.asks.Len()))
}

// checkCrossed flags best bid >= best ask. The warning fires on the crossing
// edge and again whenever the crossing best pair changes while the book stays
// crossed. Caller holds the write lock.
func (b *Book) checkCrossed(seq uint64) {
	bid, okB := b.bids.Best()
	ask, okA := b.asks.Best()
	crossed := okB && okA && bid.Price.GreaterThanOrEqual(ask.Price)
	if crossed {
		changed := !b.crossed ||
			!bid.Price.Equal(b.crossedBid) ||
			!ask.Price.Equal(b.crossedAsk)
		if changed {
			b.crossedBid = bid.Price
			b.crossedAsk = ask.Price
			metrics.CrossedBooks.WithLabelValues(b.instrument).Inc()
			b.log.Warn("crossed book",
				zap.String("best_bid", bid.Price.String()),
				zap.String("best_ask", ask.Price.String()),
				zap.Uint64("sequence", seq))
			b.emitFault(models.CrossedBookWarning{
				Instrument: b.instrument,
				BestBid:    bid.Price,
				BestAsk:    ask.Price,
				Sequence:   seq,
				Timestamp:  b.lastUpdate,
			})
		}
	}
	b.crossed = crossed
}

func (b *Book) emitFault(f models.Fault) {
	if b.onFault != nil {
		b.onFault(f)
	}
}

func (b *Book) sideStore(side models.Side) *LevelStore {
	if side == models.Bid {
		return b.bids
	}
	return b.asks
}

// Halted reports whether a sequence gap is pending resynchronization.
func (b *Book) Halted() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.halted
}

// Crossed reports whether the book is currently crossed.
func (b *Book) Crossed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.crossed
}

// LastSequence returns the last applied sequence number.
func (b *Book) LastSequence() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastSeq
}

// LastUpdate returns the timestamp of the last applied event.
func (b *Book) LastUpdate() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastUpdate
}

// BestBidAsk returns both best levels. ok is false when either side is empty.
func (b *Book) BestBidAsk() (bid, ask models.PriceLevel, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	bid, okB := b.bids.Best()
	ask, okA := b.asks.Best()
	return bid, ask, okB && okA
}

// MidPrice returns (bestBid+bestAsk)/2, undefined on one-sided books.
func (b *Book) MidPrice() (decimal.Decimal, bool) {
	bid, ask, ok := b.BestBidAsk()
	if !ok {
		return decimal.Decimal{}, false
	}
	return bid.Price.Add(ask.Price).Div(decimal.NewFromInt(2)), true
}

// Spread returns bestAsk-bestBid, undefined on one-sided books. Negative
// values indicate a crossed book.
func (b *Book) Spread() (decimal.Decimal, bool) {
	bid, ask, ok := b.BestBidAsk()
	if !ok {
		return decimal.Decimal{}, false
	}
	return ask.Price.Sub(bid.Price), true
}

// RelativeSpread returns spread/mid, undefined on one-sided books.
func (b *Book) RelativeSpread() (decimal.Decimal, bool) {
	spread, ok := b.Spread()
	if !ok {
		return decimal.Decimal{}, false
	}
	mid, ok := b.MidPrice()
	if !ok || mid.IsZero() {
		return decimal.Decimal{}, false
	}
	return spread.Div(mid), true
}

// DepthWithin sums one side's quantity within dist of its best price.
func (b *Book) DepthWithin(side models.Side, dist decimal.Decimal) decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sideStore(side).DepthWithin(dist)
}

// Snapshot copies the top-N levels per side into an immutable BookSnapshot,
// atomically consistent with a single applied-update boundary. Taking two
// snapshots without an intervening update yields identical results.
func (b *Book) Snapshot(depth int) models.BookSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return models.BookSnapshot{
		Instrument: b.instrument,
		Bids:       b.bids.TopN(depth),
		Asks:       b.asks.TopN(depth),
		Sequence:   b.lastSeq,
		Timestamp:  b.lastUpdate,
	}
}

// CheckStale raises a StaleDataWarning when no update arrived within timeout
// of now. The book state is retained either way.
func (b *Book) CheckStale(timeout time.Duration, now time.Time) bool {
	b.mu.RLock()
	last := b.lastUpdate
	seeded := b.seeded
	b.mu.RUnlock()
	if !seeded || now.Sub(last) <= timeout {
		return false
	}
	b.log.Warn("stale book", zap.Time("last_update", last), zap.Duration("timeout", timeout))
	b.emitFault(models.StaleDataWarning{
		Instrument: b.instrument,
		LastUpdate: last,
		Timeout:    timeout,
		Timestamp:  now,
	})
	return true
}
