package repository

import (
	"context"
	"sync"

	"github.com/HarshilMaks/TemporalSentimentTrader/internal/domain"
)

// MemorySignalStore is the fallback audit store when no database is
// configured. Signals survive only for the process lifetime.
type MemorySignalStore struct {
	mu      sync.Mutex
	signals []domain.TradingSignal
}

func NewMemorySignalStore() *MemorySignalStore {
	return &MemorySignalStore{}
}

func (s *MemorySignalStore) InsertSignal(ctx context.Context, signal domain.TradingSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals = append(s.signals, signal)
	return nil
}

// ListSignals filters newest first, matching the SQL-backed store.
func (s *MemorySignalStore) ListSignals(ctx context.Context, filter domain.SignalFilter) ([]domain.TradingSignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	var out []domain.TradingSignal
	for i := len(s.signals) - 1; i >= 0 && len(out) < limit; i-- {
		sig := s.signals[i]
		if filter.Ticker != "" && sig.Ticker != filter.Ticker {
			continue
		}
		if filter.Approved != nil && sig.Approved != *filter.Approved {
			continue
		}
		out = append(out, sig)
	}
	return out, nil
}
