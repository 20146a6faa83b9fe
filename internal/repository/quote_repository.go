package repository

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

const createQuotesTable = `
CREATE TABLE IF NOT EXISTS ticker_quotes (
    ticker     TEXT        NOT NULL,
    price      DOUBLE PRECISION NOT NULL,
    quoted_at  TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (ticker, quoted_at)
);
`

// QuoteRepository reads reference prices written by the market-data
// collaborator. Read-only on this side.
type QuoteRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewQuoteRepository(pool PgxPool, tracer trace.Tracer) *QuoteRepository {
	return &QuoteRepository{pool: pool, tracer: tracer}
}

func (r *QuoteRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "quote-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createQuotesTable)
	return err
}

func (r *QuoteRepository) LatestPrice(ctx context.Context, ticker string) (float64, error) {
	_, span := r.tracer.Start(ctx, "quote-repo.latest-price")
	defer span.End()

	var price float64
	err := r.pool.QueryRow(ctx, `
SELECT price FROM ticker_quotes
WHERE ticker = $1
ORDER BY quoted_at DESC
LIMIT 1`, ticker).Scan(&price)
	if err != nil {
		return 0, err
	}
	return price, nil
}
