package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aidin1998/bookwatch/internal/config"
	bwerrors "github.com/Aidin1998/bookwatch/pkg/errors"
	"github.com/Aidin1998/bookwatch/pkg/models"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.LogLevel = "error"
	cfg.Cadence.Mode = config.CadenceEveryEvent
	cfg.WindowCount = 100
	cfg.WindowDuration = 0
	return cfg
}

func levelUpdate(side models.Side, price, qty string, seq uint64, at time.Time) models.LevelUpdate {
	return models.LevelUpdate{Side: side, Price: d(price), Quantity: d(qty), Sequence: seq, Timestamp: at}
}

func seedBook(t *testing.T, svc *Service, base time.Time) {
	t.Helper()
	_, err := svc.OnLevelUpdate(levelUpdate(models.Bid, "100", "10", 1, base))
	require.NoError(t, err)
	_, err = svc.OnLevelUpdate(levelUpdate(models.Ask, "101", "5", 2, base.Add(time.Millisecond)))
	require.NoError(t, err)
}

func TestService_EveryEventCadence(t *testing.T) {
	svc := NewService("BTC-USD", testConfig(), nil)
	base := time.Unix(1000, 0)

	record, err := svc.OnLevelUpdate(levelUpdate(models.Bid, "100", "10", 1, base))
	require.NoError(t, err)
	require.NotNil(t, record, "every_event cadence computes on each event")
	assert.False(t, record.Spread.Absolute.Defined, "one-sided book has no spread")

	record, err = svc.OnLevelUpdate(levelUpdate(models.Ask, "101", "5", 2, base.Add(time.Second)))
	require.NoError(t, err)
	require.NotNil(t, record)
	require.True(t, record.Spread.Absolute.Defined)
	assert.InDelta(t, 1.0, record.Spread.Absolute.Value, 1e-9)
	assert.InDelta(t, 1.0/100.5, record.Spread.Relative.Value, 1e-9)
	assert.Equal(t, uint64(2), record.Sequence)
}

func TestService_EveryNCadence(t *testing.T) {
	cfg := testConfig()
	cfg.Cadence.Mode = config.CadenceEveryN
	cfg.Cadence.Every = 3
	svc := NewService("BTC-USD", cfg, nil)
	base := time.Unix(1000, 0)

	var records int
	for seq := uint64(1); seq <= 9; seq++ {
		rec, err := svc.OnLevelUpdate(levelUpdate(models.Bid, "100", "10", seq, base.Add(time.Duration(seq)*time.Second)))
		require.NoError(t, err)
		if rec != nil {
			records++
		}
	}
	assert.Equal(t, 3, records)
}

func TestService_IntervalCadence(t *testing.T) {
	cfg := testConfig()
	cfg.Cadence.Mode = config.CadenceInterval
	cfg.Cadence.Interval = 10 * time.Second
	svc := NewService("BTC-USD", cfg, nil)
	base := time.Unix(1000, 0)

	rec, err := svc.OnLevelUpdate(levelUpdate(models.Bid, "100", "10", 1, base))
	require.NoError(t, err)
	assert.NotNil(t, rec, "first event opens the interval")

	rec, err = svc.OnLevelUpdate(levelUpdate(models.Bid, "99", "10", 2, base.Add(2*time.Second)))
	require.NoError(t, err)
	assert.Nil(t, rec, "inside the interval")

	rec, err = svc.OnLevelUpdate(levelUpdate(models.Bid, "98", "10", 3, base.Add(11*time.Second)))
	require.NoError(t, err)
	assert.NotNil(t, rec, "interval elapsed")
}

func TestService_TradesFeedExecutionMetrics(t *testing.T) {
	svc := NewService("BTC-USD", testConfig(), nil)
	base := time.Unix(1000, 0)
	seedBook(t, svc, base)

	_, err := svc.OnTrade(trade(100, 10, models.Bid, base.Add(time.Second)))
	require.NoError(t, err)
	record, err := svc.OnTrade(trade(102, 5, models.Bid, base.Add(2*time.Second)))
	require.NoError(t, err)

	require.NotNil(t, record)
	require.True(t, record.Execution.VWAP.Defined)
	assert.InDelta(t, 1510.0/15.0, record.Execution.VWAP.Value, 1e-9)
}

func TestService_SequenceGapFailsClosed(t *testing.T) {
	svc := NewService("BTC-USD", testConfig(), nil)
	base := time.Unix(1000, 0)
	seedBook(t, svc, base)
	assert.False(t, svc.ResyncNeeded())

	_, err := svc.OnLevelUpdate(levelUpdate(models.Bid, "99", "1", 9, base.Add(time.Second)))
	require.Error(t, err)
	assert.True(t, bwerrors.IsSequenceGap(err))
	assert.True(t, svc.ResyncNeeded())

	// Until reset, further updates are rejected rather than applied to
	// corrupted state.
	_, err = svc.OnLevelUpdate(levelUpdate(models.Bid, "99", "1", 3, base.Add(2*time.Second)))
	require.Error(t, err)
	assert.True(t, bwerrors.IsHalted(err))

	svc.OnReset(models.BookReset{
		Bids:      []models.PriceLevel{lvl("100", "10")},
		Asks:      []models.PriceLevel{lvl("101", "5")},
		Sequence:  50,
		Timestamp: base.Add(3 * time.Second),
	})
	assert.False(t, svc.ResyncNeeded())

	_, err = svc.OnLevelUpdate(levelUpdate(models.Bid, "99.5", "1", 51, base.Add(4*time.Second)))
	require.NoError(t, err)
}

func TestService_FaultStream(t *testing.T) {
	svc := NewService("BTC-USD", testConfig(), nil)
	base := time.Unix(1000, 0)
	seedBook(t, svc, base)

	// Cross the book.
	_, err := svc.OnLevelUpdate(levelUpdate(models.Bid, "102", "1", 3, base.Add(time.Second)))
	require.NoError(t, err)

	select {
	case f := <-svc.Faults():
		assert.Equal(t, "crossed_book", f.FaultKind())
	default:
		t.Fatal("expected a crossed-book fault on the stream")
	}
}

func TestService_CheckStale(t *testing.T) {
	cfg := testConfig()
	cfg.StaleTimeout = time.Second
	svc := NewService("BTC-USD", cfg, nil)
	base := time.Unix(1000, 0)
	seedBook(t, svc, base)

	assert.False(t, svc.CheckStale(base.Add(500*time.Millisecond)))
	assert.True(t, svc.CheckStale(base.Add(5*time.Second)))

	select {
	case f := <-svc.Faults():
		assert.Equal(t, "stale_data", f.FaultKind())
	default:
		t.Fatal("expected a stale-data fault on the stream")
	}
}

func TestService_EstimateSlippage(t *testing.T) {
	svc := NewService("BTC-USD", testConfig(), nil)
	base := time.Unix(1000, 0)
	seedBook(t, svc, base)

	// Arrival mid is 100.5.
	slip := svc.EstimateSlippage(d("100.9"), models.Bid, BenchmarkArrivalMid)
	require.True(t, slip.Defined)
	assert.InDelta(t, 0.4, slip.Value, 1e-9)

	// No trades yet: VWAP benchmark undefined.
	assert.False(t, svc.EstimateSlippage(d("100.9"), models.Bid, BenchmarkVWAP).Defined)

	_, err := svc.OnTrade(trade(100, 10, models.Bid, base.Add(time.Second)))
	require.NoError(t, err)
	slip = svc.EstimateSlippage(d("100.9"), models.Bid, BenchmarkVWAP)
	require.True(t, slip.Defined)
	assert.InDelta(t, 0.9, slip.Value, 1e-9)
}

func TestService_SnapshotExport(t *testing.T) {
	cfg := testConfig()
	cfg.SnapshotDepth = 2
	svc := NewService("BTC-USD", cfg, nil)
	base := time.Unix(1000, 0)
	seedBook(t, svc, base)
	_, err := svc.OnLevelUpdate(levelUpdate(models.Bid, "99", "3", 3, base.Add(time.Second)))
	require.NoError(t, err)
	_, err = svc.OnLevelUpdate(levelUpdate(models.Bid, "98", "3", 4, base.Add(2*time.Second)))
	require.NoError(t, err)

	snap := svc.Snapshot()
	assert.Len(t, snap.Bids, 2, "snapshot depth is honored")
	assert.Equal(t, uint64(4), snap.Sequence)
}

func TestService_DepthMetricsInRecord(t *testing.T) {
	svc := NewService("BTC-USD", testConfig(), nil)
	base := time.Unix(1000, 0)

	updates := []models.LevelUpdate{
		levelUpdate(models.Bid, "100", "30", 1, base),
		levelUpdate(models.Bid, "99.5", "30", 2, base.Add(time.Millisecond)),
		levelUpdate(models.Ask, "101", "20", 3, base.Add(2*time.Millisecond)),
		levelUpdate(models.Ask, "101.5", "10", 4, base.Add(3*time.Millisecond)),
	}
	var record *models.MetricRecord
	for _, u := range updates {
		var err error
		record, err = svc.OnLevelUpdate(u)
		require.NoError(t, err)
	}

	require.NotNil(t, record)
	require.True(t, record.Depth.Imbalance.Defined)
	assert.InDelta(t, 1.0/3.0, record.Depth.Imbalance.Value, 1e-9)
	require.True(t, record.Depth.BidDepth.Defined)
	assert.InDelta(t, 60.0, record.Depth.BidDepth.Value, 1e-9)
	assert.False(t, record.Depth.BidSlope.Defined, "two bid levels are below the slope minimum")
	assert.True(t, record.Depth.LiquidityScore.Defined)

	// 90 units of depth against the default 10000-unit stress volume.
	require.True(t, record.Liquidity.CoverageRatio.Defined)
	assert.InDelta(t, 90.0/10000.0, record.Liquidity.CoverageRatio.Value, 1e-9)

	// Both two-sided snapshots carry the same spread: flat trend.
	require.True(t, record.Spread.Trend.Defined)
	assert.InDelta(t, 0.0, record.Spread.Trend.Value, 1e-9)
}
