package orderbook

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bwerrors "github.com/Aidin1998/bookwatch/pkg/errors"
	"github.com/Aidin1998/bookwatch/pkg/models"
)

func update(side models.Side, price, qty string, seq uint64) models.LevelUpdate {
	return models.LevelUpdate{
		Side:      side,
		Price:     d(price),
		Quantity:  d(qty),
		Sequence:  seq,
		Timestamp: time.Unix(0, int64(seq)*int64(time.Millisecond)),
	}
}

func TestBook_ApplyUpdateMaintainsInvariants(t *testing.T) {
	b := NewBook("BTC-USD", nil, nil)

	seq := uint64(0)
	apply := func(side models.Side, price, qty string) {
		seq++
		require.NoError(t, b.ApplyUpdate(update(side, price, qty, seq)))
	}

	apply(models.Bid, "100", "10")
	apply(models.Bid, "99", "5")
	apply(models.Ask, "101", "4")
	apply(models.Ask, "102", "6")
	apply(models.Bid, "99", "7") // replace
	apply(models.Bid, "98.5", "2")

	snap := b.Snapshot(10)
	for i := 1; i < len(snap.Bids); i++ {
		assert.True(t, snap.Bids[i-1].Price.GreaterThan(snap.Bids[i].Price))
	}
	for i := 1; i < len(snap.Asks); i++ {
		assert.True(t, snap.Asks[i-1].Price.LessThan(snap.Asks[i].Price))
	}
	for _, l := range append(snap.Bids, snap.Asks...) {
		assert.True(t, l.Quantity.IsPositive(), "stored quantities must be strictly positive")
	}
	assert.Len(t, snap.Bids, 3)
	assert.Len(t, snap.Asks, 2)
}

func TestBook_ZeroQuantityRemovesAndNoOp(t *testing.T) {
	b := NewBook("BTC-USD", nil, nil)
	require.NoError(t, b.ApplyUpdate(update(models.Bid, "100", "10", 1)))

	// Zero quantity on an existing price removes the level.
	require.NoError(t, b.ApplyUpdate(update(models.Bid, "100", "0", 2)))
	snap := b.Snapshot(10)
	assert.Empty(t, snap.Bids)

	// Zero quantity on an absent price is a no-op removal, not an error.
	require.NoError(t, b.ApplyUpdate(update(models.Bid, "500", "0", 3)))
	assert.Equal(t, uint64(3), b.LastSequence())
}

func TestBook_InvalidLevel(t *testing.T) {
	b := NewBook("BTC-USD", nil, nil)

	err := b.ApplyUpdate(update(models.Bid, "0", "10", 1))
	var invalid *bwerrors.InvalidLevelError
	require.ErrorAs(t, err, &invalid)

	err = b.ApplyUpdate(update(models.Bid, "-1", "10", 1))
	require.ErrorAs(t, err, &invalid)

	err = b.ApplyUpdate(update(models.Bid, "100", "-3", 1))
	require.ErrorAs(t, err, &invalid)

	// Rejected events do not advance the sequence.
	require.NoError(t, b.ApplyUpdate(update(models.Bid, "100", "10", 1)))
}

func TestBook_SequenceGapHaltsUntilReset(t *testing.T) {
	var faults []models.Fault
	b := NewBook("BTC-USD", nil, func(f models.Fault) { faults = append(faults, f) })

	require.NoError(t, b.ApplyUpdate(update(models.Bid, "100", "10", 7))) // first update baselines
	require.NoError(t, b.ApplyUpdate(update(models.Ask, "101", "5", 8)))

	err := b.ApplyUpdate(update(models.Bid, "99", "1", 10)) // gap: expected 9
	var gap *bwerrors.SequenceGapError
	require.ErrorAs(t, err, &gap)
	assert.Equal(t, uint64(9), gap.Expected)
	assert.Equal(t, uint64(10), gap.Got)
	assert.True(t, b.Halted())

	// Duplicate/stale events are likewise rejected, not merged.
	err = b.ApplyUpdate(update(models.Bid, "99", "1", 9))
	assert.True(t, bwerrors.IsHalted(err))

	require.NotEmpty(t, faults)
	assert.Equal(t, "sequence_gap", faults[len(faults)-1].FaultKind())

	b.ApplyReset(models.BookReset{
		Bids:      []models.PriceLevel{lvl("100", "10")},
		Asks:      []models.PriceLevel{lvl("101", "5")},
		Sequence:  42,
		Timestamp: time.Now(),
	})
	assert.False(t, b.Halted())
	require.NoError(t, b.ApplyUpdate(update(models.Bid, "99", "2", 43)))
}

func TestBook_ConsecutiveSequencesNeverGap(t *testing.T) {
	b := NewBook("BTC-USD", nil, nil)
	for seq := uint64(1); seq <= 100; seq++ {
		require.NoError(t, b.ApplyUpdate(update(models.Bid, "100", "1", seq)))
	}
	assert.False(t, b.Halted())
	assert.Equal(t, uint64(100), b.LastSequence())
}

func TestBook_SpreadAndMid(t *testing.T) {
	b := NewBook("BTC-USD", nil, nil)

	_, ok := b.Spread()
	assert.False(t, ok, "spread undefined on empty book")

	require.NoError(t, b.ApplyUpdate(update(models.Bid, "100", "10", 1)))
	_, ok = b.Spread()
	assert.False(t, ok, "spread undefined on one-sided book")
	_, ok = b.MidPrice()
	assert.False(t, ok)

	require.NoError(t, b.ApplyUpdate(update(models.Ask, "101", "5", 2)))

	spread, ok := b.Spread()
	require.True(t, ok)
	assert.True(t, spread.Equal(d("1")))

	mid, ok := b.MidPrice()
	require.True(t, ok)
	assert.True(t, mid.Equal(d("100.5")))

	rel, ok := b.RelativeSpread()
	require.True(t, ok)
	assert.InDelta(t, 1.0/100.5, rel.InexactFloat64(), 1e-12)
}

func TestBook_CrossedBookWarnsButKeepsState(t *testing.T) {
	var faults []models.Fault
	b := NewBook("BTC-USD", nil, func(f models.Fault) { faults = append(faults, f) })

	require.NoError(t, b.ApplyUpdate(update(models.Bid, "99", "10", 1)))
	require.NoError(t, b.ApplyUpdate(update(models.Ask, "100", "5", 2)))
	assert.False(t, b.Crossed())

	// Bid through the ask: warning, state kept.
	require.NoError(t, b.ApplyUpdate(update(models.Bid, "101", "2", 3)))
	assert.True(t, b.Crossed())

	require.NotEmpty(t, faults)
	crossed, ok := faults[len(faults)-1].(models.CrossedBookWarning)
	require.True(t, ok)
	assert.True(t, crossed.BestBid.Equal(d("101")))
	assert.True(t, crossed.BestAsk.Equal(d("100")))

	// Both levels remain queryable.
	snap := b.Snapshot(10)
	bid, _ := snap.BestBid()
	ask, _ := snap.BestAsk()
	assert.True(t, bid.Price.Equal(d("101")))
	assert.True(t, ask.Price.Equal(d("100")))
}

func TestBook_CrossedBookReWarnsWhenCrossingMoves(t *testing.T) {
	var faults []models.Fault
	b := NewBook("BTC-USD", nil, func(f models.Fault) { faults = append(faults, f) })

	require.NoError(t, b.ApplyUpdate(update(models.Bid, "99", "10", 1)))
	require.NoError(t, b.ApplyUpdate(update(models.Ask, "100", "5", 2)))
	require.NoError(t, b.ApplyUpdate(update(models.Bid, "101", "2", 3)))
	require.Len(t, faults, 1)

	// The bid lifts deeper through the ask: the crossing pair changed, so a
	// fresh warning fires.
	require.NoError(t, b.ApplyUpdate(update(models.Bid, "102", "1", 4)))
	require.Len(t, faults, 2)
	crossed, ok := faults[1].(models.CrossedBookWarning)
	require.True(t, ok)
	assert.True(t, crossed.BestBid.Equal(d("102")))

	// Still crossed, but the best pair is unchanged: no repeat warning.
	require.NoError(t, b.ApplyUpdate(update(models.Bid, "100.5", "3", 5)))
	assert.Len(t, faults, 2)
	assert.True(t, b.Crossed())
}

func TestBook_SnapshotIdempotentAndImmutable(t *testing.T) {
	b := NewBook("BTC-USD", nil, nil)
	require.NoError(t, b.ApplyUpdate(update(models.Bid, "100", "10", 1)))
	require.NoError(t, b.ApplyUpdate(update(models.Ask, "101", "5", 2)))

	first := b.Snapshot(10)
	second := b.Snapshot(10)
	assert.Equal(t, first, second, "snapshot without intervening updates must be identical")

	// Later mutations do not leak into an existing snapshot.
	require.NoError(t, b.ApplyUpdate(update(models.Bid, "100", "99", 3)))
	bid, _ := first.BestBid()
	assert.True(t, bid.Quantity.Equal(d("10")))
}

func TestBook_SnapshotReflectsLatestUpdate(t *testing.T) {
	b := NewBook("BTC-USD", nil, nil)
	require.NoError(t, b.ApplyUpdate(update(models.Bid, "100", "10", 1)))
	snap := b.Snapshot(5)
	assert.Equal(t, uint64(1), snap.Sequence)
	bid, ok := snap.BestBid()
	require.True(t, ok)
	assert.True(t, bid.Quantity.Equal(d("10")))
}

func TestBook_CheckStale(t *testing.T) {
	var faults []models.Fault
	b := NewBook("BTC-USD", nil, func(f models.Fault) { faults = append(faults, f) })

	// Never updated: not stale.
	assert.False(t, b.CheckStale(time.Second, time.Now()))

	now := time.Now()
	u := update(models.Bid, "100", "1", 1)
	u.Timestamp = now
	require.NoError(t, b.ApplyUpdate(u))

	assert.False(t, b.CheckStale(time.Second, now.Add(500*time.Millisecond)))
	assert.True(t, b.CheckStale(time.Second, now.Add(2*time.Second)))
	require.NotEmpty(t, faults)
	assert.Equal(t, "stale_data", faults[len(faults)-1].FaultKind())
}

func TestBook_ConcurrentSnapshotsDuringWrites(t *testing.T) {
	b := NewBook("BTC-USD", nil, nil)
	require.NoError(t, b.ApplyUpdate(update(models.Bid, "100", "10", 1)))
	require.NoError(t, b.ApplyUpdate(update(models.Ask, "101", "5", 2)))

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				snap := b.Snapshot(10)
				// A snapshot is internally consistent: sorted, positive quantities.
				for j := 1; j < len(snap.Bids); j++ {
					assert.True(t, snap.Bids[j-1].Price.GreaterThan(snap.Bids[j].Price))
				}
				for _, l := range snap.Bids {
					assert.True(t, l.Quantity.IsPositive())
				}
			}
		}()
	}

	for seq := uint64(3); seq < 2000; seq++ {
		price := "99." + string(rune('0'+seq%10))
		require.NoError(t, b.ApplyUpdate(update(models.Bid, price, "1", seq)))
	}
	close(done)
	wg.Wait()
}
