package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"

	"github.com/HarshilMaks/TemporalSentimentTrader/internal/domain"
)

const createSignalsTable = `
CREATE TABLE IF NOT EXISTS trading_signals (
    id             TEXT        PRIMARY KEY,
    ticker         TEXT        NOT NULL,
    direction      TEXT        NOT NULL,
    confidence     DOUBLE PRECISION NOT NULL,
    position_size  DOUBLE PRECISION NOT NULL,
    stop_loss      DOUBLE PRECISION NOT NULL,
    take_profit    DOUBLE PRECISION NOT NULL,
    approved       BOOLEAN     NOT NULL,
    state          TEXT        NOT NULL,
    reasons_json   TEXT        NOT NULL DEFAULT '[]',
    checks_json    TEXT        NOT NULL DEFAULT '[]',
    decision_json  TEXT        NOT NULL DEFAULT '{}',
    created_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trading_signals_ticker_time
    ON trading_signals (ticker, created_at DESC);
`

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SignalRepository is the durable side of the persistence collaborator
// boundary. Signals are append-only audit records: inserted once, never
// updated or deleted here.
type SignalRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewSignalRepository(pool PgxPool, tracer trace.Tracer) *SignalRepository {
	return &SignalRepository{pool: pool, tracer: tracer}
}

func (r *SignalRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "signal-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createSignalsTable)
	return err
}

func (r *SignalRepository) InsertSignal(ctx context.Context, signal domain.TradingSignal) error {
	_, span := r.tracer.Start(ctx, "signal-repo.insert-signal")
	defer span.End()

	reasons, err := json.Marshal(signal.Reasons)
	if err != nil {
		return err
	}
	checks, err := json.Marshal(signal.Checks)
	if err != nil {
		return err
	}
	decision, err := json.Marshal(signal.Decision)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
INSERT INTO trading_signals (
    id, ticker, direction, confidence,
    position_size, stop_loss, take_profit,
    approved, state, reasons_json, checks_json, decision_json, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		signal.ID,
		signal.Ticker,
		string(signal.Direction),
		signal.Confidence,
		signal.PositionSize,
		signal.StopLoss,
		signal.TakeProfit,
		signal.Approved,
		string(signal.State),
		string(reasons),
		string(checks),
		string(decision),
		signal.CreatedAt.UTC(),
	)
	return err
}

func (r *SignalRepository) ListSignals(ctx context.Context, filter domain.SignalFilter) ([]domain.TradingSignal, error) {
	_, span := r.tracer.Start(ctx, "signal-repo.list-signals")
	defer span.End()

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `
SELECT id, ticker, direction, confidence,
       position_size, stop_loss, take_profit,
       approved, state, reasons_json, checks_json, decision_json, created_at
FROM trading_signals
WHERE ($1 = '' OR ticker = $1)
  AND ($2::boolean IS NULL OR approved = $2)
ORDER BY created_at DESC
LIMIT $3`

	rows, err := r.pool.Query(ctx, query, filter.Ticker, filter.Approved, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []domain.TradingSignal
	for rows.Next() {
		var s domain.TradingSignal
		var direction, state, reasonsJSON, checksJSON, decisionJSON string
		if err := rows.Scan(
			&s.ID, &s.Ticker, &direction, &s.Confidence,
			&s.PositionSize, &s.StopLoss, &s.TakeProfit,
			&s.Approved, &state, &reasonsJSON, &checksJSON, &decisionJSON, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		s.Direction = domain.Direction(direction)
		s.State = domain.SignalState(state)
		if err := json.Unmarshal([]byte(reasonsJSON), &s.Reasons); err != nil {
			s.Reasons = nil
		}
		if err := json.Unmarshal([]byte(checksJSON), &s.Checks); err != nil {
			s.Checks = nil
		}
		if err := json.Unmarshal([]byte(decisionJSON), &s.Decision); err != nil {
			s.Decision = domain.EnsembleDecision{Ticker: s.Ticker}
		}
		signals = append(signals, s)
	}
	return signals, rows.Err()
}
