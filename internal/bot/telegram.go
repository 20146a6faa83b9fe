package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/HarshilMaks/TemporalSentimentTrader/internal/domain"
	"github.com/HarshilMaks/TemporalSentimentTrader/internal/lifecycle"
)

// SignalReader serves the /signals command from the audit trail.
type SignalReader interface {
	ListSignals(ctx context.Context, filter domain.SignalFilter) ([]domain.TradingSignal, error)
}

// Evaluator triggers a full watchlist pass on demand.
type Evaluator interface {
	EvaluateWatchlist(ctx context.Context) ([]lifecycle.Result, error)
}

// PortfolioReader exposes the live exposure for /portfolio and /release.
type PortfolioReader interface {
	Snapshot() (domain.PortfolioState, error)
	Release(ticker string) bool
}

type Bot struct {
	bot       *tele.Bot
	chatID    int64
	signals   SignalReader
	portfolio PortfolioReader
	evaluator Evaluator
}

// StartTelegramBot wires the command handlers and begins long polling.
// Returns nil when no token is configured; all methods tolerate a nil
// receiver so callers do not need to branch.
func StartTelegramBot(token string, chatID int64, signals SignalReader, portfolio PortfolioReader, evaluator Evaluator) *Bot {
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}

	tb := &Bot{bot: b, chatID: chatID, signals: signals, portfolio: portfolio, evaluator: evaluator}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/signals", func(c tele.Context) error {
		filter := domain.SignalFilter{Limit: 5}
		if args := c.Args(); len(args) > 0 {
			filter.Ticker = strings.ToUpper(args[0])
		}
		signals, err := tb.signals.ListSignals(context.Background(), filter)
		if err != nil {
			return c.Send(fmt.Sprintf("Error listing signals: %v", err))
		}
		if len(signals) == 0 {
			return c.Send("No signals recorded yet")
		}
		var sb strings.Builder
		for _, s := range signals {
			sb.WriteString(formatSignal(s))
			sb.WriteString("\n\n")
		}
		return c.Send(strings.TrimSpace(sb.String()))
	})

	b.Handle("/portfolio", func(c tele.Context) error {
		state, err := tb.portfolio.Snapshot()
		if err != nil {
			return c.Send(fmt.Sprintf("Error reading portfolio: %v", err))
		}
		msg := fmt.Sprintf(
			"Portfolio\nValue: $%.2f\nOpen positions: %d\nExposure: %.1f%%\nDrawdown: %.1f%%",
			state.TotalValue, state.OpenCount(), state.TotalExposure()*100, state.DrawdownPct*100,
		)
		for _, p := range state.Positions {
			msg += fmt.Sprintf("\n%s  entry $%.2f  size %.1f%%  sl $%.2f  tp $%.2f",
				p.Ticker, p.EntryPrice, p.Size*100, p.StopLoss, p.TakeProfit)
		}
		return c.Send(msg)
	})

	b.Handle("/evaluate", func(c tele.Context) error {
		results, err := tb.evaluator.EvaluateWatchlist(context.Background())
		if err != nil {
			return c.Send(fmt.Sprintf("Evaluation failed: %v", err))
		}
		approved := 0
		for _, r := range results {
			if r.Err == nil && r.Signal.Approved {
				approved++
			}
		}
		return c.Send(fmt.Sprintf("Evaluated %d candidates, %d approved", len(results), approved))
	})

	b.Handle("/release", func(c tele.Context) error {
		args := c.Args()
		if len(args) == 0 {
			return c.Send("Usage: /release AAPL")
		}
		ticker := strings.ToUpper(args[0])
		if !tb.portfolio.Release(ticker) {
			return c.Send(fmt.Sprintf("No open position for %s", ticker))
		}
		return c.Send(fmt.Sprintf("Released %s", ticker))
	})

	log.Println("Telegram bot started")
	go b.Start()
	return tb
}

// NotifyOutcome pushes the result of a pipeline run to the configured chat.
func (b *Bot) NotifyOutcome(ctx context.Context, signal domain.TradingSignal) error {
	if b == nil || b.chatID == 0 {
		return nil
	}
	_, err := b.bot.Send(tele.ChatID(b.chatID), formatSignal(signal))
	return err
}

func (b *Bot) Stop() {
	if b == nil {
		return
	}
	b.bot.Stop()
}

func formatSignal(s domain.TradingSignal) string {
	if !s.Approved {
		return fmt.Sprintf(
			"%s REJECTED\nReasons: %s\nConfidence: %.2f",
			s.Ticker, strings.Join(s.Reasons, ", "), s.Decision.Confidence,
		)
	}
	return fmt.Sprintf(
		"%s %s APPROVED\nConfidence: %.2f\nSize: %.2f\nStop: $%.2f\nTake profit: $%.2f",
		s.Ticker, s.Direction, s.Confidence, s.PositionSize, s.StopLoss, s.TakeProfit,
	)
}
