package portfolio

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/HarshilMaks/TemporalSentimentTrader/internal/config"
	"github.com/HarshilMaks/TemporalSentimentTrader/internal/domain"
)

func newTestTracker(t *testing.T) *Tracker {
	return NewTracker(config.DefaultRiskConfig(), 100000, zaptest.NewLogger(t))
}

func position(ticker string, size float64) domain.Position {
	return domain.Position{
		Ticker:     ticker,
		EntryPrice: 100,
		Size:       size,
		StopLoss:   95,
		TakeProfit: 107,
	}
}

func TestTryReserveAndRelease(t *testing.T) {
	tracker := newTestTracker(t)

	require.True(t, tracker.TryReserve(position("AAPL", 0.10)))

	state, err := tracker.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 1, state.OpenCount())
	assert.True(t, state.HasPosition("AAPL"))
	assert.False(t, state.Positions[0].OpenedAt.IsZero())

	// Same ticker cannot be reserved twice.
	assert.False(t, tracker.TryReserve(position("AAPL", 0.10)))

	require.True(t, tracker.Release("AAPL"))
	assert.False(t, tracker.Release("AAPL"))

	state, err = tracker.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 0, state.OpenCount())
}

func TestTryReserveEnforcesLimits(t *testing.T) {
	cfg := config.DefaultRiskConfig()
	cfg.MaxConcurrentPositions = 2
	tracker := NewTracker(cfg, 100000, zaptest.NewLogger(t))

	require.True(t, tracker.TryReserve(position("AAPL", 0.10)))
	require.True(t, tracker.TryReserve(position("TSLA", 0.10)))
	assert.False(t, tracker.TryReserve(position("NVDA", 0.10)), "count limit must hold at commit time")

	tracker.Release("TSLA")
	assert.False(t, tracker.TryReserve(position("NVDA", 0.25)), "size above max_position_pct must be refused")
	assert.False(t, tracker.TryReserve(position("NVDA", 0)), "non-positive size must be refused")
	assert.True(t, tracker.TryReserve(position("NVDA", 0.20)))
}

func TestTryReserveCapsTotalExposure(t *testing.T) {
	cfg := config.DefaultRiskConfig()
	cfg.MaxConcurrentPositions = 10
	cfg.MaxPositionPct = 0.5
	tracker := NewTracker(cfg, 100000, zaptest.NewLogger(t))

	require.True(t, tracker.TryReserve(position("AAPL", 0.5)))
	require.True(t, tracker.TryReserve(position("TSLA", 0.4)))
	assert.False(t, tracker.TryReserve(position("NVDA", 0.2)), "total exposure above 100% must be refused")
	assert.True(t, tracker.TryReserve(position("NVDA", 0.1)))
}

func TestConcurrentReservationsNeverExceedLimit(t *testing.T) {
	tracker := newTestTracker(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	reserved := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if tracker.TryReserve(position(fmt.Sprintf("TICK%03d", n), 0.01)) {
				mu.Lock()
				reserved++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, reserved)
	state, err := tracker.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 5, state.OpenCount())
}

func TestDrawdownPeakToTrough(t *testing.T) {
	tracker := newTestTracker(t)
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	tracker.RecordSample(100000, base)
	tracker.RecordSample(120000, base.Add(24*time.Hour))
	tracker.RecordSample(102000, base.Add(48*time.Hour))
	tracker.RecordSample(110000, base.Add(72*time.Hour))

	state, err := tracker.Snapshot()
	require.NoError(t, err)
	// Peak 120000 to trough 102000 is a 15% decline.
	assert.InDelta(t, 0.15, state.DrawdownPct, 1e-9)
	assert.Equal(t, 110000.0, state.TotalValue)
}

func TestDrawdownWindowPrunesOldSamples(t *testing.T) {
	tracker := newTestTracker(t)
	now := time.Now()

	// A deep crash well outside the 30-day window, then a mild recent dip.
	tracker.RecordSample(200000, now.Add(-60*24*time.Hour))
	tracker.RecordSample(80000, now.Add(-55*24*time.Hour))
	tracker.RecordSample(100000, now.Add(-2*24*time.Hour))
	tracker.RecordSample(95000, now.Add(-24*time.Hour))

	state, err := tracker.Snapshot()
	require.NoError(t, err)
	assert.InDelta(t, 0.05, state.DrawdownPct, 1e-9)
}

func TestSnapshotDetectsInconsistentState(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.RecordSample(-500, time.Now())

	_, err := tracker.Snapshot()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStateInconsistent))
}

func TestSnapshotIsACopy(t *testing.T) {
	tracker := newTestTracker(t)
	require.True(t, tracker.TryReserve(position("AAPL", 0.10)))

	state, err := tracker.Snapshot()
	require.NoError(t, err)
	state.Positions[0].Size = 0.99

	fresh, err := tracker.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 0.10, fresh.Positions[0].Size)
}
