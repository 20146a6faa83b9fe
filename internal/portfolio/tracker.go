package portfolio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HarshilMaks/TemporalSentimentTrader/internal/config"
	"github.com/HarshilMaks/TemporalSentimentTrader/internal/domain"
)

// ErrStateInconsistent marks a corrupted portfolio read (non-positive value,
// duplicate open tickers). A pipeline run must not reserve or persist on top
// of it; the caller decides what to do.
var ErrStateInconsistent = errors.New("portfolio state inconsistent")

type valueSample struct {
	value float64
	at    time.Time
}

// Tracker is the authoritative view of open positions, portfolio value and
// rolling drawdown. All mutation funnels through one mutex; readers get
// stale-but-consistent copies.
type Tracker struct {
	mu        sync.Mutex
	cfg       config.RiskConfig
	logger    *zap.Logger
	positions map[string]domain.Position
	value     float64
	samples   []valueSample
	now       func() time.Time
}

func NewTracker(cfg config.RiskConfig, initialValue float64, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		cfg:       cfg,
		logger:    logger.With(zap.String("component", "portfolio_tracker")),
		positions: make(map[string]domain.Position),
		value:     initialValue,
		now:       time.Now,
	}
}

// Snapshot returns a copy of the current state. Drawdown samples older than
// the configured window are pruned here, on read.
func (t *Tracker) Snapshot() (domain.PortfolioState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.value <= 0 {
		return domain.PortfolioState{}, fmt.Errorf("%w: portfolio value %f", ErrStateInconsistent, t.value)
	}

	t.pruneSamples()

	positions := make([]domain.Position, 0, len(t.positions))
	seen := make(map[string]bool, len(t.positions))
	for _, p := range t.positions {
		if seen[p.Ticker] {
			return domain.PortfolioState{}, fmt.Errorf("%w: duplicate open position for %s", ErrStateInconsistent, p.Ticker)
		}
		seen[p.Ticker] = true
		positions = append(positions, p)
	}

	return domain.PortfolioState{
		Positions:   positions,
		TotalValue:  t.value,
		DrawdownPct: t.drawdown(),
		TakenAt:     t.now(),
	}, nil
}

// TryReserve is the single mutation entry point admitting a new position.
// It re-validates limits at commit time, independent of the earlier risk
// check, to close the race between validation and commit.
func (t *Tracker) TryReserve(p domain.Position) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.positions) >= t.cfg.MaxConcurrentPositions {
		t.logger.Debug("reservation refused: position limit reached",
			zap.String("ticker", p.Ticker),
			zap.Int("open", len(t.positions)),
			zap.Int("max", t.cfg.MaxConcurrentPositions))
		return false
	}
	if _, open := t.positions[p.Ticker]; open {
		t.logger.Debug("reservation refused: position already open", zap.String("ticker", p.Ticker))
		return false
	}
	if p.Size <= 0 || p.Size > t.cfg.MaxPositionPct {
		t.logger.Debug("reservation refused: size outside limits",
			zap.String("ticker", p.Ticker), zap.Float64("size", p.Size))
		return false
	}
	exposure := p.Size
	for _, open := range t.positions {
		exposure += open.Size
	}
	if exposure > 1.0 {
		t.logger.Debug("reservation refused: total exposure above 100%",
			zap.String("ticker", p.Ticker), zap.Float64("exposure", exposure))
		return false
	}

	if p.OpenedAt.IsZero() {
		p.OpenedAt = t.now()
	}
	t.positions[p.Ticker] = p
	t.logger.Info("position reserved",
		zap.String("ticker", p.Ticker),
		zap.Float64("size", p.Size),
		zap.Int("open", len(t.positions)))
	return true
}

// Release removes an open position. Closures originate outside this core
// (stop-loss, take-profit, signal flip, max holding period).
func (t *Tracker) Release(ticker string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, open := t.positions[ticker]; !open {
		return false
	}
	delete(t.positions, ticker)
	t.logger.Info("position released", zap.String("ticker", ticker), zap.Int("open", len(t.positions)))
	return true
}

// RecordSample feeds a portfolio-value observation into the rolling drawdown
// window and updates the tracked total value.
func (t *Tracker) RecordSample(value float64, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if at.IsZero() {
		at = t.now()
	}
	t.samples = append(t.samples, valueSample{value: value, at: at})
	t.value = value
}

// pruneSamples drops samples outside the rolling window. Caller holds mu.
func (t *Tracker) pruneSamples() {
	cutoff := t.now().Add(-time.Duration(t.cfg.DrawdownWindowDays) * 24 * time.Hour)
	kept := t.samples[:0]
	for _, s := range t.samples {
		if !s.at.Before(cutoff) {
			kept = append(kept, s)
		}
	}
	t.samples = kept
}

// drawdown computes the peak-to-trough percentage decline over the retained
// samples. Caller holds mu.
func (t *Tracker) drawdown() float64 {
	peak := 0.0
	worst := 0.0
	for _, s := range t.samples {
		if s.value > peak {
			peak = s.value
		}
		if peak > 0 {
			decline := (peak - s.value) / peak
			if decline > worst {
				worst = decline
			}
		}
	}
	return worst
}
