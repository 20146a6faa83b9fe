package ensemble

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/HarshilMaks/TemporalSentimentTrader/internal/domain"
)

var evalTime = time.Date(2026, 3, 2, 21, 0, 0, 0, time.UTC)

func prediction(model string, dir domain.Direction, prob float64) domain.ModelPrediction {
	return domain.ModelPrediction{
		ModelID:     model,
		Ticker:      "AAPL",
		Direction:   dir,
		Probability: prob,
		EvaluatedAt: evalTime,
	}
}

func threeModelWeights() map[string]float64 {
	return map[string]float64{"lstm": 0.4, "xgboost": 0.3, "lightgbm": 0.3}
}

func TestAggregateUnanimousBuy(t *testing.T) {
	agg := NewAggregator(0)
	decision, err := agg.Aggregate([]domain.ModelPrediction{
		prediction("lstm", domain.DirectionBuy, 0.8),
		prediction("xgboost", domain.DirectionBuy, 0.75),
		prediction("lightgbm", domain.DirectionBuy, 0.9),
	}, threeModelWeights())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Direction != domain.DirectionBuy {
		t.Fatalf("expected BUY, got %s", decision.Direction)
	}
	if math.Abs(decision.Confidence-0.815) > 1e-9 {
		t.Fatalf("expected confidence 0.815, got %f", decision.Confidence)
	}
	if decision.AgreementRatio != 1.0 {
		t.Fatalf("expected full agreement, got %f", decision.AgreementRatio)
	}
	if decision.Ticker != "AAPL" || !decision.EvaluatedAt.Equal(evalTime) {
		t.Fatalf("decision lost its ticker or evaluation time: %+v", decision)
	}
}

func TestAggregateSplitVoteResolvesToHold(t *testing.T) {
	agg := NewAggregator(0)
	weights := map[string]float64{"a": 0.25, "b": 0.25, "c": 0.25, "d": 0.25}
	decision, err := agg.Aggregate([]domain.ModelPrediction{
		prediction("a", domain.DirectionBuy, 0.9),
		prediction("b", domain.DirectionBuy, 0.9),
		prediction("c", domain.DirectionSell, 0.9),
		prediction("d", domain.DirectionSell, 0.9),
	}, weights)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Direction != domain.DirectionHold {
		t.Fatalf("tied vote must resolve to HOLD, got %s", decision.Direction)
	}
}

func TestAggregateMajorityBeatsMinority(t *testing.T) {
	agg := NewAggregator(0)
	decision, err := agg.Aggregate([]domain.ModelPrediction{
		prediction("lstm", domain.DirectionSell, 0.85),
		prediction("xgboost", domain.DirectionSell, 0.70),
		prediction("lightgbm", domain.DirectionBuy, 0.95),
	}, threeModelWeights())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Direction != domain.DirectionSell {
		t.Fatalf("expected SELL, got %s", decision.Direction)
	}
	// Confidence blends only the winning side: (0.4*0.85 + 0.3*0.70) / 0.7.
	want := (0.4*0.85 + 0.3*0.70) / 0.7
	if math.Abs(decision.Confidence-want) > 1e-9 {
		t.Fatalf("expected confidence %f, got %f", want, decision.Confidence)
	}
	if math.Abs(decision.AgreementRatio-0.7) > 1e-9 {
		t.Fatalf("expected agreement 0.7, got %f", decision.AgreementRatio)
	}
}

func TestAggregateAgreementPenaltyWhenModelsMissing(t *testing.T) {
	agg := NewAggregator(0)
	decision, err := agg.Aggregate([]domain.ModelPrediction{
		prediction("lstm", domain.DirectionBuy, 0.9),
		prediction("xgboost", domain.DirectionBuy, 0.9),
	}, threeModelWeights())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Two of three configured models reported: confidence scaled by 2/3.
	want := 0.9 * (2.0 / 3.0)
	if math.Abs(decision.Confidence-want) > 1e-9 {
		t.Fatalf("expected penalized confidence %f, got %f", want, decision.Confidence)
	}
}

func TestAggregateMixedTickersRejected(t *testing.T) {
	agg := NewAggregator(0)
	other := prediction("xgboost", domain.DirectionBuy, 0.8)
	other.Ticker = "TSLA"
	_, err := agg.Aggregate([]domain.ModelPrediction{
		prediction("lstm", domain.DirectionBuy, 0.8),
		other,
	}, threeModelWeights())
	if !errors.Is(err, ErrInconsistentInput) {
		t.Fatalf("expected ErrInconsistentInput, got %v", err)
	}
}

func TestAggregateMixedEvaluationTimesRejected(t *testing.T) {
	agg := NewAggregator(0)
	stale := prediction("xgboost", domain.DirectionBuy, 0.8)
	stale.EvaluatedAt = evalTime.Add(-time.Hour)
	_, err := agg.Aggregate([]domain.ModelPrediction{
		prediction("lstm", domain.DirectionBuy, 0.8),
		stale,
	}, threeModelWeights())
	if !errors.Is(err, ErrInconsistentInput) {
		t.Fatalf("expected ErrInconsistentInput, got %v", err)
	}
}

func TestAggregateBadProbabilityRejected(t *testing.T) {
	agg := NewAggregator(0)
	_, err := agg.Aggregate([]domain.ModelPrediction{
		prediction("lstm", domain.DirectionBuy, 1.2),
	}, map[string]float64{"lstm": 1.0})
	if !errors.Is(err, ErrInconsistentInput) {
		t.Fatalf("expected ErrInconsistentInput, got %v", err)
	}
}

func TestAggregateWeightValidation(t *testing.T) {
	agg := NewAggregator(0)
	preds := []domain.ModelPrediction{prediction("lstm", domain.DirectionBuy, 0.8)}

	if _, err := agg.Aggregate(preds, map[string]float64{"lstm": 0.9}); !errors.Is(err, ErrInvalidWeight) {
		t.Fatalf("expected ErrInvalidWeight for bad sum, got %v", err)
	}
	if _, err := agg.Aggregate(preds, map[string]float64{"xgboost": 1.0}); !errors.Is(err, ErrInvalidWeight) {
		t.Fatalf("expected ErrInvalidWeight for missing model, got %v", err)
	}
	if _, err := agg.Aggregate(preds, map[string]float64{"lstm": 1.5, "xgboost": -0.5}); !errors.Is(err, ErrInvalidWeight) {
		t.Fatalf("expected ErrInvalidWeight for negative weight, got %v", err)
	}
	// Sum inside tolerance is accepted.
	if _, err := agg.Aggregate(preds, map[string]float64{"lstm": 1.0 + 5e-7}); err != nil {
		t.Fatalf("expected tolerance to admit near-1.0 sum, got %v", err)
	}
}

func TestAggregateDeterministic(t *testing.T) {
	agg := NewAggregator(0)
	preds := []domain.ModelPrediction{
		prediction("lstm", domain.DirectionBuy, 0.8),
		prediction("xgboost", domain.DirectionSell, 0.6),
		prediction("lightgbm", domain.DirectionBuy, 0.7),
	}
	first, err := agg.Aggregate(preds, threeModelWeights())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := agg.Aggregate(preds, threeModelWeights())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("aggregation is not deterministic: %+v vs %+v", first, second)
	}
}
