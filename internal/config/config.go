package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// RiskConfig is the threshold snapshot handed to the risk validator and the
// portfolio tracker. It is passed explicitly so a run stays reproducible
// given the same snapshot.
type RiskConfig struct {
	ConfidenceThreshold    float64
	RiskPerTradePct        float64
	MaxPositionPct         float64
	StopLossPct            float64
	TakeProfitPct          float64
	MinRiskReward          float64
	MaxConcurrentPositions int
	MaxDrawdownPct         float64
	DrawdownWindowDays     int
}

func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		ConfidenceThreshold:    0.70,
		RiskPerTradePct:        0.02,
		MaxPositionPct:         0.20,
		StopLossPct:            0.05,
		TakeProfitPct:          0.07,
		MinRiskReward:          2.0,
		MaxConcurrentPositions: 5,
		MaxDrawdownPct:         0.15,
		DrawdownWindowDays:     30,
	}
}

type Config struct {
	TelegramBotToken string
	TelegramChatID   int64
	DatabaseURL      string
	RedisURL         string

	Watchlist        []string
	ModelWeights     map[string]float64
	PortfolioValue   float64
	EvalIntervalSecs int

	// MinModelsReporting 0 means every configured model must report before
	// confidence escapes the agreement penalty.
	MinModelsReporting int

	Risk RiskConfig
}

func Load() *Config {
	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		Risk:             DefaultRiskConfig(),
	}

	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set")
	}
	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}

	if v := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TelegramChatID = n
		}
	}

	cfg.Watchlist = parseWatchlist(os.Getenv("WATCHLIST"))
	cfg.ModelWeights = parseModelWeights(os.Getenv("MODEL_WEIGHTS"))

	cfg.PortfolioValue = 100000
	if v := envFloat("PORTFOLIO_VALUE"); v > 0 {
		cfg.PortfolioValue = v
	}

	cfg.EvalIntervalSecs = 900
	if v := strings.TrimSpace(os.Getenv("EVAL_INTERVAL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EvalIntervalSecs = n
		}
	}

	cfg.MinModelsReporting = 0
	if v := strings.TrimSpace(os.Getenv("MIN_MODELS_REPORTING")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MinModelsReporting = n
		}
	}

	if v := envFloat("CONFIDENCE_THRESHOLD"); v > 0 && v < 1 {
		cfg.Risk.ConfidenceThreshold = v
	}
	if v := envFloat("RISK_PER_TRADE_PCT"); v > 0 && v < 1 {
		cfg.Risk.RiskPerTradePct = v
	}
	if v := envFloat("MAX_POSITION_PCT"); v > 0 && v <= 1 {
		cfg.Risk.MaxPositionPct = v
	}
	if v := envFloat("STOP_LOSS_PCT"); v > 0 && v < 1 {
		cfg.Risk.StopLossPct = v
	}
	if v := envFloat("TAKE_PROFIT_PCT"); v > 0 && v < 1 {
		cfg.Risk.TakeProfitPct = v
	}
	if v := envFloat("MIN_RISK_REWARD"); v > 0 {
		cfg.Risk.MinRiskReward = v
	}
	if v := strings.TrimSpace(os.Getenv("MAX_CONCURRENT_POSITIONS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Risk.MaxConcurrentPositions = n
		}
	}
	if v := envFloat("MAX_DRAWDOWN_PCT"); v > 0 && v < 1 {
		cfg.Risk.MaxDrawdownPct = v
	}
	if v := strings.TrimSpace(os.Getenv("DRAWDOWN_WINDOW_DAYS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Risk.DrawdownWindowDays = n
		}
	}

	return cfg
}

func envFloat(key string) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using default", key, v)
		return 0
	}
	return n
}

func parseWatchlist(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		ticker := strings.ToUpper(strings.TrimSpace(part))
		if ticker != "" {
			out = append(out, ticker)
		}
	}
	if len(out) == 0 {
		out = []string{"AAPL", "MSFT", "NVDA", "TSLA"}
	}
	return out
}

// parseModelWeights reads "lstm:0.4,xgboost:0.3,lightgbm:0.3". An empty or
// malformed value falls back to the default three-model ensemble.
func parseModelWeights(raw string) map[string]float64 {
	weights := make(map[string]float64)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			log.Printf("Warning: skipping malformed model weight %q", part)
			continue
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err != nil || w < 0 {
			log.Printf("Warning: skipping malformed model weight %q", part)
			continue
		}
		weights[strings.TrimSpace(kv[0])] = w
	}
	if len(weights) == 0 {
		weights = map[string]float64{"lstm": 0.4, "xgboost": 0.3, "lightgbm": 0.3}
	}
	return weights
}
