package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/HarshilMaks/TemporalSentimentTrader/internal/domain"
	"github.com/HarshilMaks/TemporalSentimentTrader/internal/ensemble"
	"github.com/HarshilMaks/TemporalSentimentTrader/internal/portfolio"
	"github.com/HarshilMaks/TemporalSentimentTrader/internal/risk"
)

// SignalStore hands completed signals to the external persistence
// collaborator. The pipeline's responsibility ends once the record is
// accepted.
type SignalStore interface {
	InsertSignal(ctx context.Context, signal domain.TradingSignal) error
}

// OutcomeNotifier receives every terminal signal, approved or rejected.
// Delivery is best effort and never fails a run.
type OutcomeNotifier interface {
	NotifyOutcome(ctx context.Context, signal domain.TradingSignal) error
}

// Request is one candidate evaluation: the model predictions and weight
// mapping supplied by the model-serving collaborator, plus the reference
// price at evaluation time.
type Request struct {
	Ticker      string
	Price       float64
	Predictions []domain.ModelPrediction
	Weights     map[string]float64
}

type Result struct {
	Ticker string
	Signal domain.TradingSignal
	Err    error
}

// Manager drives one candidate through
// CANDIDATE -> AGGREGATED -> RISK_CHECKED -> {APPROVED, REJECTED},
// then APPROVED -> RESERVED -> PERSISTED, rejecting on a lost reservation
// race. No transition is reversible; every terminal run persists exactly one
// audit record.
type Manager struct {
	tracer    trace.Tracer
	logger    *zap.Logger
	agg       *ensemble.Aggregator
	validator *risk.Validator
	tracker   *portfolio.Tracker
	store     SignalStore
	notifier  OutcomeNotifier

	now   func() time.Time
	newID func() string
}

func NewManager(
	tracer trace.Tracer,
	logger *zap.Logger,
	agg *ensemble.Aggregator,
	validator *risk.Validator,
	tracker *portfolio.Tracker,
	store SignalStore,
	notifier OutcomeNotifier,
) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		tracer:    tracer,
		logger:    logger.With(zap.String("component", "signal_lifecycle")),
		agg:       agg,
		validator: validator,
		tracker:   tracker,
		store:     store,
		notifier:  notifier,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// SetNotifier attaches an outcome notifier after construction. Call before
// the first Run; the manager does not synchronize this field.
func (m *Manager) SetNotifier(n OutcomeNotifier) {
	m.notifier = n
}

// Run evaluates one candidate end to end. Expected rejections come back as a
// persisted signal with a nil error; only collaborator failures and
// inconsistent portfolio state surface as errors.
func (m *Manager) Run(ctx context.Context, req Request) (domain.TradingSignal, error) {
	ctx, span := m.tracer.Start(ctx, "signal-lifecycle.run")
	defer span.End()

	decision, err := m.agg.Aggregate(req.Predictions, req.Weights)
	if err != nil {
		m.logger.Warn("aggregation failed",
			zap.String("ticker", req.Ticker),
			zap.Error(err))
		signal := m.rejectedSignal(req.Ticker, domain.EnsembleDecision{Ticker: req.Ticker}, nil,
			domain.ReasonAggregationFailed, err.Error())
		return signal, m.finish(ctx, signal)
	}

	state, err := m.tracker.Snapshot()
	if err != nil {
		// Inconsistent state is fatal for this run: nothing is reserved or
		// persisted on top of corrupted exposure accounting.
		return domain.TradingSignal{}, fmt.Errorf("portfolio snapshot for %s: %w", req.Ticker, err)
	}

	outcome := m.validator.Validate(decision, req.Price, state)
	if !outcome.Approved {
		reasons := make([]string, 0, len(outcome.Checks))
		for _, c := range outcome.FailedChecks() {
			reasons = append(reasons, c.Rule)
		}
		signal := m.rejectedSignal(req.Ticker, decision, outcome.Checks, reasons...)
		return signal, m.finish(ctx, signal)
	}

	reserved := m.tracker.TryReserve(domain.Position{
		Ticker:     req.Ticker,
		EntryPrice: req.Price,
		Size:       m.sizeFraction(outcome.PositionSize, req.Price, state.TotalValue),
		StopLoss:   outcome.StopLoss,
		TakeProfit: outcome.TakeProfit,
		OpenedAt:   m.now(),
	})
	if !reserved {
		// Lost the race between validation and commit. Never retried within
		// this run; re-evaluation against fresh state is the caller's call.
		m.logger.Info("reservation race lost", zap.String("ticker", req.Ticker))
		signal := m.rejectedSignal(req.Ticker, decision, outcome.Checks, domain.ReasonConcurrencyLimitRace)
		return signal, m.finish(ctx, signal)
	}

	signal := domain.TradingSignal{
		ID:           m.newID(),
		Ticker:       req.Ticker,
		Direction:    decision.Direction,
		Confidence:   decision.Confidence,
		PositionSize: outcome.PositionSize,
		StopLoss:     outcome.StopLoss,
		TakeProfit:   outcome.TakeProfit,
		Approved:     true,
		Checks:       outcome.Checks,
		Decision:     decision,
		State:        domain.StatePersisted,
		CreatedAt:    m.now(),
	}
	if err := m.store.InsertSignal(ctx, signal); err != nil {
		// The reserved slot backs a signal that was never handed off; free it
		// before propagating.
		m.tracker.Release(req.Ticker)
		return domain.TradingSignal{}, fmt.Errorf("persist signal for %s: %w", req.Ticker, err)
	}

	m.logger.Info("signal approved",
		zap.String("ticker", req.Ticker),
		zap.String("direction", string(signal.Direction)),
		zap.Float64("confidence", signal.Confidence),
		zap.Float64("position_size", signal.PositionSize))
	m.notify(ctx, signal)
	return signal, nil
}

// EvaluateBatch runs one cycle over many tickers concurrently. Aggregation
// and validation are pure; the tracker serializes reservations.
func (m *Manager) EvaluateBatch(ctx context.Context, reqs []Request) []Result {
	ctx, span := m.tracer.Start(ctx, "signal-lifecycle.evaluate-batch")
	defer span.End()

	results := make([]Result, len(reqs))
	var wg sync.WaitGroup
	for i := range reqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			signal, err := m.Run(ctx, reqs[i])
			results[i] = Result{Ticker: reqs[i].Ticker, Signal: signal, Err: err}
		}(i)
	}
	wg.Wait()
	return results
}

// finish persists a rejected signal and notifies. Persistence failure is a
// pipeline failure: nothing is ever silently dropped.
func (m *Manager) finish(ctx context.Context, signal domain.TradingSignal) error {
	if err := m.store.InsertSignal(ctx, signal); err != nil {
		return fmt.Errorf("persist signal for %s: %w", signal.Ticker, err)
	}
	m.notify(ctx, signal)
	return nil
}

func (m *Manager) notify(ctx context.Context, signal domain.TradingSignal) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.NotifyOutcome(ctx, signal); err != nil {
		m.logger.Warn("outcome notification failed",
			zap.String("ticker", signal.Ticker),
			zap.Error(err))
	}
}

// rejectedSignal builds the terminal audit record for a rejected candidate.
// Rejected signals always carry HOLD, never the ensemble direction.
func (m *Manager) rejectedSignal(ticker string, decision domain.EnsembleDecision, checks []domain.RuleCheck, reasons ...string) domain.TradingSignal {
	return domain.TradingSignal{
		ID:        m.newID(),
		Ticker:    ticker,
		Direction: domain.DirectionHold,
		Reasons:   reasons,
		Checks:    checks,
		Decision:  decision,
		State:     domain.StateRejected,
		CreatedAt: m.now(),
	}
}

// sizeFraction converts the validator's sized quantity into the fraction of
// portfolio value recorded on the reserved position, bounded by the
// per-position cap.
func (m *Manager) sizeFraction(size, price, totalValue float64) float64 {
	if totalValue <= 0 {
		return 0
	}
	fraction := size * price / totalValue
	if limit := m.validator.Config().MaxPositionPct; fraction > limit {
		fraction = limit
	}
	return fraction
}
