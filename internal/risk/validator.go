package risk

import (
	"fmt"

	"github.com/HarshilMaks/TemporalSentimentTrader/internal/config"
	"github.com/HarshilMaks/TemporalSentimentTrader/internal/domain"
)

// Validator applies a fixed, ordered rule set to an ensemble decision and a
// portfolio snapshot. It never mutates portfolio state; the lifecycle manager
// commits through the tracker after approval. Every rule is evaluated so the
// outcome records a check per rule even past the first failure; approval
// requires all of them to pass.
type Validator struct {
	cfg config.RiskConfig
}

func NewValidator(cfg config.RiskConfig) *Validator {
	return &Validator{cfg: cfg}
}

func (v *Validator) Config() config.RiskConfig { return v.cfg }

// Validate evaluates the rule set for one decision. price is the
// evaluation-time reference price used to derive stop-loss and take-profit
// distances.
func (v *Validator) Validate(decision domain.EnsembleDecision, price float64, state domain.PortfolioState) domain.RiskOutcome {
	outcome := domain.RiskOutcome{}

	stopDistance := price * v.cfg.StopLossPct
	takeProfitDistance := price * v.cfg.TakeProfitPct
	outcome.StopLoss, outcome.TakeProfit = exitPrices(decision.Direction, price, stopDistance, takeProfitDistance)

	riskAmount := state.TotalValue * v.cfg.RiskPerTradePct
	rawSize := 0.0
	if stopDistance > 0 {
		rawSize = riskAmount / stopDistance
	}
	maxSize := state.TotalValue * v.cfg.MaxPositionPct
	size := rawSize
	if size > maxSize {
		size = maxSize
	}
	outcome.PositionSize = size

	check := func(rule string, passed bool, detail string) {
		outcome.Checks = append(outcome.Checks, domain.RuleCheck{Rule: rule, Passed: passed, Detail: detail})
	}

	check(domain.RuleConfidence,
		decision.Confidence >= v.cfg.ConfidenceThreshold,
		fmt.Sprintf("confidence %.4f, threshold %.4f", decision.Confidence, v.cfg.ConfidenceThreshold))

	check(domain.RuleDirection,
		decision.Direction == domain.DirectionBuy || decision.Direction == domain.DirectionSell,
		fmt.Sprintf("direction %s", decision.Direction))

	check(domain.RuleSizing,
		stopDistance > 0 && size > 0,
		fmt.Sprintf("size %.4f, stop distance %.4f", size, stopDistance))

	ratio := 0.0
	if stopDistance > 0 {
		ratio = takeProfitDistance / stopDistance
	}
	check(domain.RuleRiskReward,
		stopDistance > 0 && ratio >= v.cfg.MinRiskReward,
		fmt.Sprintf("risk/reward %.4f, minimum %.4f", ratio, v.cfg.MinRiskReward))

	check(domain.RuleConcurrency,
		state.OpenCount() < v.cfg.MaxConcurrentPositions,
		fmt.Sprintf("open positions %d, limit %d", state.OpenCount(), v.cfg.MaxConcurrentPositions))

	check(domain.RuleDrawdown,
		state.DrawdownPct < v.cfg.MaxDrawdownPct,
		fmt.Sprintf("drawdown %.4f, limit %.4f", state.DrawdownPct, v.cfg.MaxDrawdownPct))

	outcome.Approved = true
	for _, c := range outcome.Checks {
		if !c.Passed {
			outcome.Approved = false
			break
		}
	}
	return outcome
}

func exitPrices(direction domain.Direction, price, stopDistance, takeProfitDistance float64) (stopLoss, takeProfit float64) {
	if direction == domain.DirectionSell {
		return price + stopDistance, price - takeProfitDistance
	}
	return price - stopDistance, price + takeProfitDistance
}
