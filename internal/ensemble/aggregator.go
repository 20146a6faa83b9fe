package ensemble

import (
	"errors"
	"fmt"
	"math"

	"github.com/HarshilMaks/TemporalSentimentTrader/internal/domain"
)

const weightSumTolerance = 1e-6

var (
	// ErrInconsistentInput marks predictions that do not belong to the same
	// ticker and evaluation time, or carry out-of-range probabilities.
	ErrInconsistentInput = errors.New("inconsistent prediction input")

	// ErrInvalidWeight marks a weight map that does not cover every reporting
	// model or does not sum to 1.0 within tolerance.
	ErrInvalidWeight = errors.New("invalid model weights")
)

// Aggregator combines independent per-model predictions into one ensemble
// decision via weighted voting and confidence blending. It holds no mutable
// state; Aggregate is a pure function of its inputs.
type Aggregator struct {
	// minModelsReporting caps confidence when fewer models report. Zero
	// means all configured models are expected.
	minModelsReporting int
}

func NewAggregator(minModelsReporting int) *Aggregator {
	if minModelsReporting < 0 {
		minModelsReporting = 0
	}
	return &Aggregator{minModelsReporting: minModelsReporting}
}

func (a *Aggregator) Aggregate(predictions []domain.ModelPrediction, weights map[string]float64) (domain.EnsembleDecision, error) {
	if len(predictions) == 0 {
		return domain.EnsembleDecision{}, fmt.Errorf("%w: no predictions", ErrInconsistentInput)
	}
	if err := validatePredictions(predictions); err != nil {
		return domain.EnsembleDecision{}, err
	}
	if err := validateWeights(predictions, weights); err != nil {
		return domain.EnsembleDecision{}, err
	}

	voteWeight := map[domain.Direction]float64{}
	reportingWeight := 0.0
	for _, p := range predictions {
		w := weights[p.ModelID]
		voteWeight[p.Direction] += w
		reportingWeight += w
	}

	winner := winningDirection(voteWeight)

	confidence := 0.0
	winnerWeight := 0.0
	if winner != domain.DirectionHold || voteWeight[domain.DirectionHold] > 0 {
		weighted := 0.0
		for _, p := range predictions {
			if p.Direction != winner {
				continue
			}
			w := weights[p.ModelID]
			weighted += w * p.Probability
			winnerWeight += w
		}
		if winnerWeight > 0 {
			confidence = weighted / winnerWeight
		}
	}

	expected := a.minModelsReporting
	if expected == 0 {
		expected = len(weights)
	}
	if len(predictions) < expected {
		confidence *= float64(len(predictions)) / float64(expected)
	}

	agreement := 0.0
	if reportingWeight > 0 {
		agreement = voteWeight[winner] / reportingWeight
	}

	snapshot := make(map[string]float64, len(predictions))
	for _, p := range predictions {
		snapshot[p.ModelID] = weights[p.ModelID]
	}

	return domain.EnsembleDecision{
		Ticker:         predictions[0].Ticker,
		Direction:      winner,
		Confidence:     confidence,
		AgreementRatio: agreement,
		ModelWeights:   snapshot,
		EvaluatedAt:    predictions[0].EvaluatedAt,
	}, nil
}

func validatePredictions(predictions []domain.ModelPrediction) error {
	ticker := predictions[0].Ticker
	evaluatedAt := predictions[0].EvaluatedAt
	seen := map[string]bool{}
	for _, p := range predictions {
		if p.Ticker != ticker {
			return fmt.Errorf("%w: mixed tickers %s and %s", ErrInconsistentInput, ticker, p.Ticker)
		}
		if !p.EvaluatedAt.Equal(evaluatedAt) {
			return fmt.Errorf("%w: mixed evaluation times for %s", ErrInconsistentInput, ticker)
		}
		if !p.Direction.IsValid() {
			return fmt.Errorf("%w: model %s direction %q", ErrInconsistentInput, p.ModelID, p.Direction)
		}
		if p.Probability < 0 || p.Probability > 1 {
			return fmt.Errorf("%w: model %s probability %f outside [0,1]", ErrInconsistentInput, p.ModelID, p.Probability)
		}
		if seen[p.ModelID] {
			return fmt.Errorf("%w: duplicate prediction from model %s", ErrInconsistentInput, p.ModelID)
		}
		seen[p.ModelID] = true
	}
	return nil
}

func validateWeights(predictions []domain.ModelPrediction, weights map[string]float64) error {
	sum := 0.0
	for model, w := range weights {
		if w < 0 {
			return fmt.Errorf("%w: model %s weight %f is negative", ErrInvalidWeight, model, w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("%w: weights sum to %f, want 1.0", ErrInvalidWeight, sum)
	}
	for _, p := range predictions {
		if _, ok := weights[p.ModelID]; !ok {
			return fmt.Errorf("%w: no weight configured for model %s", ErrInvalidWeight, p.ModelID)
		}
	}
	return nil
}

// winningDirection picks the direction with strictly greatest total weight.
// Any tie for the maximum resolves to HOLD: an undecided ensemble must not
// trade.
func winningDirection(votes map[domain.Direction]float64) domain.Direction {
	winner := domain.DirectionHold
	best := votes[domain.DirectionHold]
	tied := false
	for _, d := range []domain.Direction{domain.DirectionBuy, domain.DirectionSell} {
		w := votes[d]
		if w > best {
			winner, best, tied = d, w, false
		} else if w == best && w > 0 && d != winner {
			tied = true
		}
	}
	if tied {
		return domain.DirectionHold
	}
	return winner
}
