package bot

import (
	"context"
	"strings"
	"testing"

	"github.com/HarshilMaks/TemporalSentimentTrader/internal/domain"
)

func TestStartTelegramBotSkipsWithoutToken(t *testing.T) {
	if b := StartTelegramBot("", 0, nil, nil, nil); b != nil {
		t.Fatalf("expected nil bot without token")
	}
}

func TestNilBotNotifyIsNoop(t *testing.T) {
	var b *Bot
	if err := b.NotifyOutcome(context.Background(), domain.TradingSignal{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.Stop()
}

func TestFormatSignal(t *testing.T) {
	approved := formatSignal(domain.TradingSignal{
		Ticker:       "AAPL",
		Direction:    domain.DirectionBuy,
		Confidence:   0.81,
		PositionSize: 400,
		StopLoss:     95,
		TakeProfit:   107,
		Approved:     true,
	})
	if !strings.Contains(approved, "AAPL BUY APPROVED") || !strings.Contains(approved, "$95.00") {
		t.Fatalf("unexpected approved format: %q", approved)
	}

	rejected := formatSignal(domain.TradingSignal{
		Ticker:   "TSLA",
		Approved: false,
		Reasons:  []string{domain.RuleConfidence, domain.RuleDrawdown},
	})
	if !strings.Contains(rejected, "TSLA REJECTED") || !strings.Contains(rejected, domain.RuleConfidence) {
		t.Fatalf("unexpected rejected format: %q", rejected)
	}
}
