package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/HarshilMaks/TemporalSentimentTrader/internal/cache"
	"github.com/HarshilMaks/TemporalSentimentTrader/internal/domain"
	"github.com/HarshilMaks/TemporalSentimentTrader/internal/lifecycle"
)

// PredictionSource supplies the latest per-model prediction set for a
// ticker, as written by the model-serving collaborator.
type PredictionSource interface {
	ListLatest(ctx context.Context, ticker string) ([]domain.ModelPrediction, error)
}

// PriceSource supplies the evaluation-time reference price for a ticker.
type PriceSource interface {
	LatestPrice(ctx context.Context, ticker string) (float64, error)
}

// EvaluationService assembles pipeline requests for the configured watchlist
// and runs them through the lifecycle manager. Scheduling stays outside;
// this is the callable batch cycle.
type EvaluationService struct {
	tracer      trace.Tracer
	logger      *zap.Logger
	predictions PredictionSource
	prices      PriceSource
	manager     *lifecycle.Manager
	signalCache *cache.SignalCache
	watchlist   []string
	weights     map[string]float64
}

func NewEvaluationService(
	tracer trace.Tracer,
	logger *zap.Logger,
	predictions PredictionSource,
	prices PriceSource,
	manager *lifecycle.Manager,
	signalCache *cache.SignalCache,
	watchlist []string,
	weights map[string]float64,
) *EvaluationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvaluationService{
		tracer:      tracer,
		logger:      logger.With(zap.String("component", "evaluation_service")),
		predictions: predictions,
		prices:      prices,
		manager:     manager,
		signalCache: signalCache,
		watchlist:   watchlist,
		weights:     weights,
	}
}

// EvaluateWatchlist runs one batch cycle. Tickers with no predictions or no
// reference price are skipped with a log line; they produce no candidate, so
// there is nothing to audit for them.
func (s *EvaluationService) EvaluateWatchlist(ctx context.Context) ([]lifecycle.Result, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation-service.evaluate-watchlist")
	defer span.End()

	if s.predictions == nil || s.prices == nil {
		return nil, fmt.Errorf("evaluation service is not fully initialized")
	}

	var reqs []lifecycle.Request
	for _, ticker := range s.watchlist {
		preds, err := s.predictions.ListLatest(ctx, ticker)
		if err != nil {
			return nil, fmt.Errorf("load predictions for %s: %w", ticker, err)
		}
		if len(preds) == 0 {
			s.logger.Info("no predictions for ticker, skipping", zap.String("ticker", ticker))
			continue
		}
		price, err := s.prices.LatestPrice(ctx, ticker)
		if err != nil {
			s.logger.Warn("no reference price for ticker, skipping",
				zap.String("ticker", ticker), zap.Error(err))
			continue
		}
		reqs = append(reqs, lifecycle.Request{
			Ticker:      ticker,
			Price:       price,
			Predictions: preds,
			Weights:     s.weights,
		})
	}

	results := s.manager.EvaluateBatch(ctx, reqs)

	for _, res := range results {
		if res.Err != nil {
			continue
		}
		if s.signalCache != nil {
			if err := s.signalCache.SetLatest(ctx, res.Signal); err != nil {
				s.logger.Warn("signal cache write failed",
					zap.String("ticker", res.Ticker), zap.Error(err))
			}
		}
	}

	s.logger.Info("watchlist cycle complete",
		zap.Int("candidates", len(reqs)),
		zap.Int("watchlist", len(s.watchlist)))
	return results, nil
}
