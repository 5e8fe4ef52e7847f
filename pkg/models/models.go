// Package models holds the normalized event and record types exchanged
// between the book engine, the analytics layer, and external collaborators
// (feed adapters inbound, dashboards and alerting outbound).
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side identifies one half of the order book.
type Side int

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

// PriceLevel is the aggregate resting quantity at one price on one side.
// A price appears at most once per side; stored quantities are strictly
// positive (a level whose quantity drops to zero is removed, never kept).
type PriceLevel struct {
	Price      decimal.Decimal `json:"price"`
	Quantity   decimal.Decimal `json:"quantity"`
	OrderCount int             `json:"order_count,omitempty"`
}

// LevelUpdate is a normalized incremental book update from a feed adapter.
// Quantity zero means "remove the level at this price".
type LevelUpdate struct {
	Side       Side            `json:"side"`
	Price      decimal.Decimal `json:"price"`
	Quantity   decimal.Decimal `json:"quantity"`
	OrderCount int             `json:"order_count,omitempty"`
	Sequence   uint64          `json:"sequence"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Trade is an executed trade reported by the feed. Immutable once recorded.
type Trade struct {
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	Aggressor Side            `json:"aggressor"`
	Timestamp time.Time       `json:"timestamp"`
}

// Notional returns price * quantity.
func (t Trade) Notional() decimal.Decimal {
	return t.Price.Mul(t.Quantity)
}

// SignedQuantity is positive for buyer-initiated trades and negative for
// seller-initiated ones, the sign convention used by the flow metrics.
func (t Trade) SignedQuantity() decimal.Decimal {
	if t.Aggressor == Bid {
		return t.Quantity
	}
	return t.Quantity.Neg()
}

// BookReset carries a full book image used to resynchronize after a
// sequence gap. It replaces both sides and re-baselines the sequence number.
type BookReset struct {
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Sequence  uint64       `json:"sequence"`
	Timestamp time.Time    `json:"timestamp"`
}
