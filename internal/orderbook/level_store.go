package orderbook

import (
	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"github.com/Aidin1998/bookwatch/pkg/models"
)

// LevelStore keeps one side's price levels in a B-tree ordered so that
// iteration always starts at the side's best price: bids descend, asks
// ascend. Insert, update, delete, and best lookups are O(log n).
//
// The store itself is not locked (btree.Options.NoLocks); the owning Book
// serializes writers and guards readers, see Book.
type LevelStore struct {
	side models.Side
	tree *btree.BTreeG[models.PriceLevel]
}

// NewLevelStore creates an empty store for the given side.
func NewLevelStore(side models.Side) *LevelStore {
	ls := &LevelStore{side: side}
	ls.tree = btree.NewBTreeGOptions(ls.lessFunc(), btree.Options{NoLocks: true})
	return ls
}

// Side returns the side this store holds.
func (ls *LevelStore) Side() models.Side { return ls.side }

// Len returns the number of price levels.
func (ls *LevelStore) Len() int { return ls.tree.Len() }

// Upsert sets the aggregate quantity at a price. A non-positive quantity
// removes the level; removing an absent price is a no-op. The returned flag
// reports whether the store changed.
func (ls *LevelStore) Upsert(lvl models.PriceLevel) bool {
	if !lvl.Quantity.IsPositive() {
		_, existed := ls.tree.Delete(models.PriceLevel{Price: lvl.Price})
		return existed
	}
	ls.tree.Set(lvl)
	return true
}

// Remove deletes the level at the given price, reporting whether it existed.
func (ls *LevelStore) Remove(price decimal.Decimal) bool {
	_, existed := ls.tree.Delete(models.PriceLevel{Price: price})
	return existed
}

// Get returns the level at an exact price.
func (ls *LevelStore) Get(price decimal.Decimal) (models.PriceLevel, bool) {
	return ls.tree.Get(models.PriceLevel{Price: price})
}

// Best returns the extremal level: highest bid or lowest ask.
func (ls *LevelStore) Best() (models.PriceLevel, bool) {
	return ls.tree.Min()
}

// TopN copies up to n levels in side-priority order, best first. The result
// is an independent slice, safe to hand to snapshot consumers.
func (ls *LevelStore) TopN(n int) []models.PriceLevel {
	if n <= 0 {
		return nil
	}
	out := make([]models.PriceLevel, 0, min(n, ls.tree.Len()))
	ls.tree.Scan(func(lvl models.PriceLevel) bool {
		out = append(out, lvl)
		return len(out) < n
	})
	return out
}

// DepthWithin sums quantity over levels priced within dist of the best.
// Returns zero when the side is empty.
func (ls *LevelStore) DepthWithin(dist decimal.Decimal) decimal.Decimal {
	best, ok := ls.Best()
	if !ok {
		return decimal.Zero
	}
	total := decimal.Zero
	ls.tree.Scan(func(lvl models.PriceLevel) bool {
		if lvl.Price.Sub(best.Price).Abs().GreaterThan(dist) {
			return false
		}
		total = total.Add(lvl.Quantity)
		return true
	})
	return total
}

// Scan iterates levels best-first until fn returns false.
func (ls *LevelStore) Scan(fn func(lvl models.PriceLevel) bool) {
	ls.tree.Scan(fn)
}

// Clear drops all levels.
func (ls *LevelStore) Clear() {
	ls.tree = btree.NewBTreeGOptions(ls.lessFunc(), btree.Options{NoLocks: true})
}

func (ls *LevelStore) lessFunc() func(a, b models.PriceLevel) bool {
	if ls.side == models.Bid {
		return func(a, b models.PriceLevel) bool { return a.Price.GreaterThan(b.Price) }
	}
	return func(a, b models.PriceLevel) bool { return a.Price.LessThan(b.Price) }
}
