package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookSnapshot is an immutable point-in-time copy of the top of the book.
// Bids are ordered best-first (descending price), asks best-first (ascending
// price). Once taken, a snapshot is independent of later book mutations.
type BookSnapshot struct {
	Instrument string       `json:"instrument"`
	Bids       []PriceLevel `json:"bids"`
	Asks       []PriceLevel `json:"asks"`
	Sequence   uint64       `json:"sequence"`
	Timestamp  time.Time    `json:"timestamp"`
}

// BestBid returns the highest bid, if any.
func (s BookSnapshot) BestBid() (PriceLevel, bool) {
	if len(s.Bids) == 0 {
		return PriceLevel{}, false
	}
	return s.Bids[0], true
}

// BestAsk returns the lowest ask, if any.
func (s BookSnapshot) BestAsk() (PriceLevel, bool) {
	if len(s.Asks) == 0 {
		return PriceLevel{}, false
	}
	return s.Asks[0], true
}

// MidPrice returns (bestBid+bestAsk)/2. ok is false when either side is
// empty; a one-sided book never yields a computed mid.
func (s BookSnapshot) MidPrice() (decimal.Decimal, bool) {
	bid, okB := s.BestBid()
	ask, okA := s.BestAsk()
	if !okB || !okA {
		return decimal.Decimal{}, false
	}
	return bid.Price.Add(ask.Price).Div(decimal.NewFromInt(2)), true
}

// Spread returns bestAsk - bestBid. Negative on a crossed book.
func (s BookSnapshot) Spread() (decimal.Decimal, bool) {
	bid, okB := s.BestBid()
	ask, okA := s.BestAsk()
	if !okB || !okA {
		return decimal.Decimal{}, false
	}
	return ask.Price.Sub(bid.Price), true
}

// RelativeSpread returns spread/mid.
func (s BookSnapshot) RelativeSpread() (decimal.Decimal, bool) {
	spread, ok := s.Spread()
	if !ok {
		return decimal.Decimal{}, false
	}
	mid, ok := s.MidPrice()
	if !ok || mid.IsZero() {
		return decimal.Decimal{}, false
	}
	return spread.Div(mid), true
}

// Crossed reports whether bestBid >= bestAsk with both sides present.
func (s BookSnapshot) Crossed() bool {
	bid, okB := s.BestBid()
	ask, okA := s.BestAsk()
	return okB && okA && bid.Price.GreaterThanOrEqual(ask.Price)
}

// Levels returns the captured levels for one side, best-first.
func (s BookSnapshot) Levels(side Side) []PriceLevel {
	if side == Bid {
		return s.Bids
	}
	return s.Asks
}

// DepthWithin sums the quantity of captured levels priced within band of the
// side's best. Zero when the side is empty.
func (s BookSnapshot) DepthWithin(side Side, band decimal.Decimal) decimal.Decimal {
	levels := s.Levels(side)
	if len(levels) == 0 {
		return decimal.Zero
	}
	best := levels[0].Price
	total := decimal.Zero
	for _, lvl := range levels {
		dist := lvl.Price.Sub(best).Abs()
		if dist.GreaterThan(band) {
			break
		}
		total = total.Add(lvl.Quantity)
	}
	return total
}

// WalkBook simulates executing an aggressive order of the given size against
// the captured levels: a buy consumes asks from the best up, a sell consumes
// bids from the best down. It returns the volume-weighted execution price,
// the filled quantity, and the marginal price of the last level touched.
// ok is false when nothing could be filled.
func (s BookSnapshot) WalkBook(aggressor Side, qty decimal.Decimal) (vwap, filled, marginal decimal.Decimal, ok bool) {
	if !qty.IsPositive() {
		return decimal.Decimal{}, decimal.Decimal{}, decimal.Decimal{}, false
	}
	levels := s.Levels(aggressor.Opposite())
	cost := decimal.Zero
	filled = decimal.Zero
	for _, lvl := range levels {
		remaining := qty.Sub(filled)
		take := lvl.Quantity
		if take.GreaterThan(remaining) {
			take = remaining
		}
		cost = cost.Add(lvl.Price.Mul(take))
		filled = filled.Add(take)
		marginal = lvl.Price
		if filled.GreaterThanOrEqual(qty) {
			break
		}
	}
	if filled.IsZero() {
		return decimal.Decimal{}, decimal.Decimal{}, decimal.Decimal{}, false
	}
	return cost.Div(filled), filled, marginal, true
}
