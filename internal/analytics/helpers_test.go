package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Aidin1998/bookwatch/pkg/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func lvl(price, qty string) models.PriceLevel {
	return models.PriceLevel{Price: d(price), Quantity: d(qty)}
}

// snap builds a snapshot from best-first level lists.
func snap(bids, asks []models.PriceLevel, at time.Time) models.BookSnapshot {
	return models.BookSnapshot{
		Instrument: "BTC-USD",
		Bids:       bids,
		Asks:       asks,
		Timestamp:  at,
	}
}

// quoteAt builds a one-level-per-side snapshot around the given mid with the
// given absolute spread.
func quoteAt(mid, spread float64, at time.Time) models.BookSnapshot {
	half := spread / 2
	return snap(
		[]models.PriceLevel{lvlF(mid-half, 10)},
		[]models.PriceLevel{lvlF(mid+half, 10)},
		at,
	)
}

func lvlF(price, qty float64) models.PriceLevel {
	return models.PriceLevel{
		Price:    decimal.NewFromFloat(price),
		Quantity: decimal.NewFromFloat(qty),
	}
}

func trade(price, qty float64, aggressor models.Side, at time.Time) models.Trade {
	return models.Trade{
		Price:     decimal.NewFromFloat(price),
		Quantity:  decimal.NewFromFloat(qty),
		Aggressor: aggressor,
		Timestamp: at,
	}
}
