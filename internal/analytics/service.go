package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Aidin1998/bookwatch/internal/config"
	"github.com/Aidin1998/bookwatch/internal/orderbook"
	bwerrors "github.com/Aidin1998/bookwatch/pkg/errors"
	"github.com/Aidin1998/bookwatch/pkg/logger"
	"github.com/Aidin1998/bookwatch/pkg/metrics"
	"github.com/Aidin1998/bookwatch/pkg/models"
)

// Service orchestrates one instrument: it routes normalized events to the
// book engine and the trade history, snapshots the book on the configured
// cadence, and emits MetricRecords computed from snapshot and window state.
//
// Event methods (OnLevelUpdate, OnTrade, OnReset) follow the single-writer
// model: they must be called from one goroutine, typically the feed
// consumer. Faults and snapshots may be consumed concurrently.
type Service struct {
	cfg *config.Config
	log *zap.Logger

	book *orderbook.Book

	mu       sync.Mutex
	snaps    *windowOf[models.BookSnapshot]
	trades   *windowOf[models.Trade]
	events   int
	lastTick time.Time

	resync bool
	faults chan models.Fault
}

// NewService wires a book engine and rolling windows for one instrument.
// A nil log gets a JSON logger at the configured level.
func NewService(instrument string, cfg *config.Config, log *zap.Logger) *Service {
	if log == nil {
		log = logger.New(cfg.LogLevel)
	}
	s := &Service{
		cfg:    cfg,
		log:    log.With(zap.String("instrument", instrument)),
		snaps:  newWindowOf[models.BookSnapshot](instrument, "snapshots", cfg.WindowCount, cfg.WindowDuration),
		trades: newWindowOf[models.Trade](instrument, "trades", cfg.WindowCount, cfg.WindowDuration),
		faults: make(chan models.Fault, 64),
	}
	s.book = orderbook.NewBook(instrument, log, s.publishFault)
	return s
}

// Book exposes the underlying engine for read-side queries.
func (s *Service) Book() *orderbook.Book { return s.book }

// Faults returns the fault stream. Events are dropped, not blocked on, when
// the consumer falls behind.
func (s *Service) Faults() <-chan models.Fault { return s.faults }

// ResyncNeeded reports whether a sequence gap halted the book and a
// BookReset from the feed collaborator is required before further updates.
func (s *Service) ResyncNeeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resync
}

// OnLevelUpdate applies a book update. On a sequence gap the service fails
// closed: the error is surfaced, ResyncNeeded flips on, and subsequent
// updates are rejected until OnReset. When the cadence fires, the returned
// record carries the metrics for this cycle; otherwise it is nil.
func (s *Service) OnLevelUpdate(u models.LevelUpdate) (*models.MetricRecord, error) {
	if err := s.book.ApplyUpdate(u); err != nil {
		if bwerrors.IsSequenceGap(err) {
			s.mu.Lock()
			s.resync = true
			s.mu.Unlock()
			s.log.Error("update path halted, resynchronization required", zap.Error(err))
		}
		return nil, err
	}
	return s.tick(u.Timestamp), nil
}

// OnTrade records a trade into the rolling history.
func (s *Service) OnTrade(t models.Trade) (*models.MetricRecord, error) {
	s.mu.Lock()
	s.trades.push(t, t.Timestamp)
	s.mu.Unlock()
	return s.tick(t.Timestamp), nil
}

// OnReset applies a full book image after a gap and reopens the update path.
func (s *Service) OnReset(r models.BookReset) {
	s.book.ApplyReset(r)
	s.mu.Lock()
	s.resync = false
	s.mu.Unlock()
}

// CheckStale raises StaleDataWarning when no update arrived within the
// configured timeout. Intended to be driven by a caller-owned timer.
func (s *Service) CheckStale(now time.Time) bool {
	return s.book.CheckStale(s.cfg.StaleTimeout, now)
}

// Snapshot returns a consistent copy of the current book at the configured
// depth, for rendering or export.
func (s *Service) Snapshot() models.BookSnapshot {
	return s.book.Snapshot(s.cfg.SnapshotDepth)
}

// tick counts an event against the cadence and computes when due.
func (s *Service) tick(at time.Time) *models.MetricRecord {
	s.mu.Lock()
	s.events++
	due := false
	switch s.cfg.Cadence.Mode {
	case config.CadenceEveryEvent:
		due = true
	case config.CadenceEveryN:
		due = s.events%s.cfg.Cadence.Every == 0
	case config.CadenceInterval:
		if at.IsZero() {
			at = time.Now()
		}
		if s.lastTick.IsZero() || at.Sub(s.lastTick) >= s.cfg.Cadence.Interval {
			s.lastTick = at
			due = true
		}
	}
	s.mu.Unlock()
	if !due {
		return nil
	}
	return s.Compute()
}

// Compute takes a snapshot, appends it to the rolling history, and derives a
// full MetricRecord. Metric categories are pure and read-only over captured
// state, so they run in parallel; an undefined metric never blocks the rest
// of the cycle.
func (s *Service) Compute() *models.MetricRecord {
	start := time.Now()
	snap := s.book.Snapshot(s.cfg.SnapshotDepth)

	s.mu.Lock()
	s.snaps.push(snap, snap.Timestamp)
	snaps := s.snaps.values()
	trades := s.trades.values()
	s.mu.Unlock()

	record := &models.MetricRecord{
		Instrument: snap.Instrument,
		Sequence:   snap.Sequence,
		Timestamp:  snap.Timestamp,
	}

	band := decimal.NewFromFloat(s.cfg.PriceBand)
	refSize := decimal.NewFromFloat(s.cfg.ReferenceOrderSize)

	g, _ := errgroup.WithContext(context.Background())
	g.Go(func() error {
		record.Spread.Absolute = AbsoluteSpread(snap)
		record.Spread.Relative = RelativeSpread(snap)
		record.Spread.ImpactBuy = PriceImpact(snap, models.Bid, refSize)
		record.Spread.ImpactSell = PriceImpact(snap, models.Ask, refSize)
		record.Spread.Mean, record.Spread.StdDev = SpreadStats(snaps)
		record.Spread.Trend = SpreadTrend(snaps)
		return nil
	})
	g.Go(func() error {
		record.Depth.BidDepth = models.DefinedValue(snap.DepthWithin(models.Bid, band).InexactFloat64())
		record.Depth.AskDepth = models.DefinedValue(snap.DepthWithin(models.Ask, band).InexactFloat64())
		record.Depth.Imbalance = Imbalance(snap, band)
		record.Depth.LiquidityScore = LiquidityScore(snap, band, s.cfg.LiquidityWeights.Depth, s.cfg.LiquidityWeights.Spread)
		record.Depth.BidSlope = BookSlope(snap, models.Bid)
		record.Depth.AskSlope = BookSlope(snap, models.Ask)
		record.Depth.Resilience = Resilience(snaps, s.cfg.ShockTrailing, s.cfg.ShockSigma, s.cfg.ResilienceEpsilon)
		return nil
	})
	g.Go(func() error {
		record.Liquidity.KyleLambda = KyleLambda(BuildFlowSamples(snaps, trades), s.cfg.MinRegressionSamples)
		record.Liquidity.AmihudRatio = AmihudRatio(BuildIntervalSamples(snaps, trades))
		record.Liquidity.CoverageRatio = LiquidityCoverageRatio(snap, decimal.NewFromFloat(s.cfg.StressVolume))
		record.Liquidity.PriceEfficiency = PriceEfficiency(snaps)
		return nil
	})
	g.Go(func() error {
		record.Execution.VWAP = VWAP(trades)
		before, ok := snapshotBefore(snaps, snap.Timestamp.Add(-s.cfg.ImpactHorizon))
		if ok {
			record.Execution.ImpactTotal, record.Execution.ImpactPermanent, record.Execution.ImpactTemporary =
				ImpactDecomposition(before, snap, models.Bid, refSize)
		} else {
			record.Execution.ImpactTotal = models.UndefinedMetric()
			record.Execution.ImpactPermanent = models.UndefinedMetric()
			record.Execution.ImpactTemporary = models.UndefinedMetric()
		}
		return nil
	})
	_ = g.Wait()

	metrics.ComputeLatency.Observe(time.Since(start).Seconds())
	return record
}

// EstimateSlippage measures a realized execution price against the selected
// benchmark: the current arrival mid or the trade-window VWAP.
func (s *Service) EstimateSlippage(execPrice decimal.Decimal, side models.Side, benchmark Benchmark) models.MetricValue {
	var bench models.MetricValue
	switch benchmark {
	case BenchmarkArrivalMid:
		if mid, ok := s.book.MidPrice(); ok {
			bench = models.DefinedValue(mid.InexactFloat64())
		}
	case BenchmarkVWAP:
		s.mu.Lock()
		trades := s.trades.values()
		s.mu.Unlock()
		bench = VWAP(trades)
	}
	return Slippage(execPrice, side, bench)
}

// EstimateImpact decomposes the impact of an order of size qty into
// temporary and permanent components using the snapshot history at the
// configured horizon.
func (s *Service) EstimateImpact(aggressor models.Side, qty decimal.Decimal) (total, permanent, temporary models.MetricValue) {
	latest := s.book.Snapshot(s.cfg.SnapshotDepth)
	s.mu.Lock()
	snaps := s.snaps.values()
	s.mu.Unlock()
	before, ok := snapshotBefore(snaps, latest.Timestamp.Add(-s.cfg.ImpactHorizon))
	if !ok {
		return models.UndefinedMetric(), models.UndefinedMetric(), models.UndefinedMetric()
	}
	return ImpactDecomposition(before, latest, aggressor, qty)
}

// snapshotBefore picks the most recent snapshot at or before cutoff.
func snapshotBefore(snaps []models.BookSnapshot, cutoff time.Time) (models.BookSnapshot, bool) {
	for i := len(snaps) - 1; i >= 0; i-- {
		if !snaps[i].Timestamp.After(cutoff) {
			return snaps[i], true
		}
	}
	return models.BookSnapshot{}, false
}

func (s *Service) publishFault(f models.Fault) {
	select {
	case s.faults <- f:
	default:
		s.log.Warn("fault channel full, dropping", zap.String("kind", f.FaultKind()))
	}
}
