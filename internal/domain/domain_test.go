package domain

import "testing"

func TestDirectionIsValid(t *testing.T) {
	for _, d := range []Direction{DirectionBuy, DirectionSell, DirectionHold} {
		if !d.IsValid() {
			t.Fatalf("expected %s to be valid", d)
		}
	}
	if Direction("LONG").IsValid() {
		t.Fatal("expected unknown direction to be invalid")
	}
}

func TestPortfolioStateHelpers(t *testing.T) {
	state := PortfolioState{
		Positions: []Position{
			{Ticker: "AAPL", Size: 0.10},
			{Ticker: "TSLA", Size: 0.15},
		},
		TotalValue: 100000,
	}
	if state.OpenCount() != 2 {
		t.Fatalf("expected 2 open positions, got %d", state.OpenCount())
	}
	if !state.HasPosition("AAPL") || state.HasPosition("NVDA") {
		t.Fatalf("unexpected position lookup results")
	}
	if exposure := state.TotalExposure(); exposure != 0.25 {
		t.Fatalf("expected total exposure 0.25, got %f", exposure)
	}
}

func TestRiskOutcomeFailedChecks(t *testing.T) {
	outcome := RiskOutcome{
		Checks: []RuleCheck{
			{Rule: RuleConfidence, Passed: true},
			{Rule: RuleDirection, Passed: false, Detail: "direction is HOLD"},
			{Rule: RuleDrawdown, Passed: false, Detail: "drawdown 0.16 >= 0.15"},
		},
	}
	failed := outcome.FailedChecks()
	if len(failed) != 2 {
		t.Fatalf("expected 2 failed checks, got %d", len(failed))
	}
	if failed[0].Rule != RuleDirection {
		t.Fatalf("expected first failure to be the direction rule, got %s", failed[0].Rule)
	}
}
