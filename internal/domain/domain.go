package domain

import "time"

type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionHold Direction = "HOLD"
)

func (d Direction) IsValid() bool {
	return d == DirectionBuy || d == DirectionSell || d == DirectionHold
}

// ModelPrediction is one model's opinion for one ticker at one evaluation
// time. Produced by the model-serving collaborator, consumed read-only.
type ModelPrediction struct {
	ModelID     string    `json:"model_id"`
	Ticker      string    `json:"ticker"`
	Direction   Direction `json:"direction"`
	Probability float64   `json:"probability"`
	FeatureRef  string    `json:"feature_ref,omitempty"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// EnsembleDecision is the aggregation output for one ticker and evaluation
// time. Immutable once created.
type EnsembleDecision struct {
	Ticker         string             `json:"ticker"`
	Direction      Direction          `json:"direction"`
	Confidence     float64            `json:"confidence"`
	AgreementRatio float64            `json:"agreement_ratio"`
	ModelWeights   map[string]float64 `json:"model_weights"`
	EvaluatedAt    time.Time          `json:"evaluated_at"`
}

// Position is an open exposure. Size is a fraction of total portfolio value.
// Closure (stop-loss, take-profit, signal flip, max holding period) is an
// external event fed back through the tracker, not computed here.
type Position struct {
	Ticker     string    `json:"ticker"`
	EntryPrice float64   `json:"entry_price"`
	Size       float64   `json:"size"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	OpenedAt   time.Time `json:"opened_at"`
}

// PortfolioState is a point-in-time copy of trading exposure, safe to read
// while the live tracker keeps mutating.
type PortfolioState struct {
	Positions   []Position `json:"positions"`
	TotalValue  float64    `json:"total_value"`
	DrawdownPct float64    `json:"drawdown_pct"`
	TakenAt     time.Time  `json:"taken_at"`
}

func (s PortfolioState) OpenCount() int { return len(s.Positions) }

func (s PortfolioState) HasPosition(ticker string) bool {
	for i := range s.Positions {
		if s.Positions[i].Ticker == ticker {
			return true
		}
	}
	return false
}

// TotalExposure is the sum of open position size fractions.
func (s PortfolioState) TotalExposure() float64 {
	total := 0.0
	for i := range s.Positions {
		total += s.Positions[i].Size
	}
	return total
}

const (
	RuleConfidence  = "confidence_threshold"
	RuleDirection   = "direction_valid"
	RuleSizing      = "position_sizing"
	RuleRiskReward  = "risk_reward"
	RuleConcurrency = "concurrency_limit"
	RuleDrawdown    = "drawdown_limit"
)

// RuleCheck is one validator rule evaluation. Checks are recorded for every
// rule, pass or fail, in evaluation order.
type RuleCheck struct {
	Rule   string `json:"rule"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// RiskOutcome is the validator verdict for one decision against one
// portfolio snapshot. Rejections are data, not errors.
type RiskOutcome struct {
	Approved     bool        `json:"approved"`
	PositionSize float64     `json:"position_size"`
	StopLoss     float64     `json:"stop_loss"`
	TakeProfit   float64     `json:"take_profit"`
	Checks       []RuleCheck `json:"checks"`
}

// FailedChecks returns the failing checks in rule order. The first entry is
// the authoritative rejection reason.
func (o RiskOutcome) FailedChecks() []RuleCheck {
	var failed []RuleCheck
	for _, c := range o.Checks {
		if !c.Passed {
			failed = append(failed, c)
		}
	}
	return failed
}

type SignalState string

const (
	StateCandidate   SignalState = "CANDIDATE"
	StateAggregated  SignalState = "AGGREGATED"
	StateRiskChecked SignalState = "RISK_CHECKED"
	StateApproved    SignalState = "APPROVED"
	StateReserved    SignalState = "RESERVED"
	StatePersisted   SignalState = "PERSISTED"
	StateRejected    SignalState = "REJECTED"
)

// Rejection reasons recorded on terminal signals alongside rule checks.
const (
	ReasonAggregationFailed    = "AggregationFailed"
	ReasonConcurrencyLimitRace = "ConcurrencyLimitRace"
)

// TradingSignal is the persisted, append-only audit record of one pipeline
// run. Rejected signals carry DirectionHold; approved signals carry the
// ensemble decision's direction.
type TradingSignal struct {
	ID           string           `json:"id"`
	Ticker       string           `json:"ticker"`
	Direction    Direction        `json:"direction"`
	Confidence   float64          `json:"confidence"`
	PositionSize float64          `json:"position_size"`
	StopLoss     float64          `json:"stop_loss"`
	TakeProfit   float64          `json:"take_profit"`
	Approved     bool             `json:"approved"`
	Reasons      []string         `json:"reasons,omitempty"`
	Checks       []RuleCheck      `json:"checks,omitempty"`
	Decision     EnsembleDecision `json:"decision"`
	State        SignalState      `json:"state"`
	CreatedAt    time.Time        `json:"created_at"`
}

type SignalFilter struct {
	Ticker   string
	Approved *bool
	Limit    int
}
