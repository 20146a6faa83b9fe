package repository

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/HarshilMaks/TemporalSentimentTrader/internal/domain"
)

const createPredictionsTable = `
CREATE TABLE IF NOT EXISTS model_predictions (
    model_id     TEXT        NOT NULL,
    ticker       TEXT        NOT NULL,
    direction    TEXT        NOT NULL,
    probability  DOUBLE PRECISION NOT NULL,
    feature_ref  TEXT        NOT NULL DEFAULT '',
    evaluated_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (model_id, ticker, evaluated_at)
);

CREATE INDEX IF NOT EXISTS idx_model_predictions_ticker_time
    ON model_predictions (ticker, evaluated_at DESC);
`

// PredictionRepository reads what the model-serving collaborator wrote. This
// side only consumes; predictions are immutable once produced upstream.
type PredictionRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewPredictionRepository(pool PgxPool, tracer trace.Tracer) *PredictionRepository {
	return &PredictionRepository{pool: pool, tracer: tracer}
}

func (r *PredictionRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "prediction-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createPredictionsTable)
	return err
}

// ListLatest returns the most recent prediction set for a ticker: every
// model row sharing the ticker's newest evaluation time.
func (r *PredictionRepository) ListLatest(ctx context.Context, ticker string) ([]domain.ModelPrediction, error) {
	_, span := r.tracer.Start(ctx, "prediction-repo.list-latest")
	defer span.End()

	rows, err := r.pool.Query(ctx, `
SELECT model_id, ticker, direction, probability, feature_ref, evaluated_at
FROM model_predictions
WHERE ticker = $1
  AND evaluated_at = (
      SELECT MAX(evaluated_at) FROM model_predictions WHERE ticker = $1
  )
ORDER BY model_id`, ticker)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var predictions []domain.ModelPrediction
	for rows.Next() {
		var p domain.ModelPrediction
		var direction string
		if err := rows.Scan(&p.ModelID, &p.Ticker, &direction, &p.Probability, &p.FeatureRef, &p.EvaluatedAt); err != nil {
			return nil, err
		}
		p.Direction = domain.Direction(direction)
		predictions = append(predictions, p)
	}
	return predictions, rows.Err()
}
