package job

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/HarshilMaks/TemporalSentimentTrader/internal/lifecycle"
)

type WatchlistEvaluator interface {
	EvaluateWatchlist(ctx context.Context) ([]lifecycle.Result, error)
}

// EvaluationJob runs the decision pipeline over the watchlist on a fixed
// interval, starting with an immediate pass.
type EvaluationJob struct {
	tracer       trace.Tracer
	evaluator    WatchlistEvaluator
	pollInterval time.Duration
}

func NewEvaluationJob(tracer trace.Tracer, evaluator WatchlistEvaluator, pollInterval time.Duration) *EvaluationJob {
	if pollInterval <= 0 {
		pollInterval = 15 * time.Minute
	}
	return &EvaluationJob{tracer: tracer, evaluator: evaluator, pollInterval: pollInterval}
}

func (j *EvaluationJob) Start(ctx context.Context) {
	if j.evaluator == nil {
		log.Println("Evaluation job disabled: no evaluator")
		<-ctx.Done()
		return
	}

	j.runOnce(ctx)
	ticker := time.NewTicker(j.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *EvaluationJob) runOnce(ctx context.Context) {
	ctx, span := j.tracer.Start(ctx, "evaluation-job.run-once")
	defer span.End()

	results, err := j.evaluator.EvaluateWatchlist(ctx)
	if err != nil {
		log.Printf("Evaluation cycle error: %v", err)
		return
	}

	var approved, rejected, failed int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
		case r.Signal.Approved:
			approved++
		default:
			rejected++
		}
	}
	log.Printf(
		"Evaluation cycle complete candidates=%d approved=%d rejected=%d failed=%d",
		len(results), approved, rejected, failed,
	)
}
