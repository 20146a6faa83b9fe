package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HarshilMaks/TemporalSentimentTrader/internal/domain"
)

const latestSignalTTL = 24 * time.Hour

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// SignalCache keeps the most recent signal per ticker for cheap reads by
// query surfaces, beside the durable audit trail in Postgres.
type SignalCache struct {
	client RedisClient
}

func NewSignalCache(client RedisClient) *SignalCache {
	return &SignalCache{client: client}
}

func (c *SignalCache) SetLatest(ctx context.Context, signal domain.TradingSignal) error {
	if c.client == nil {
		return nil
	}
	payload, err := json.Marshal(signal)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, signalKey(signal.Ticker), payload, latestSignalTTL).Err()
}

// Latest returns the cached signal for a ticker, or nil on a miss.
func (c *SignalCache) Latest(ctx context.Context, ticker string) (*domain.TradingSignal, error) {
	if c.client == nil {
		return nil, nil
	}
	raw, err := c.client.Get(ctx, signalKey(ticker)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var signal domain.TradingSignal
	if err := json.Unmarshal([]byte(raw), &signal); err != nil {
		return nil, err
	}
	return &signal, nil
}

func signalKey(ticker string) string {
	return "signal:latest:" + ticker
}
