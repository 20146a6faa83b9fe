package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/HarshilMaks/TemporalSentimentTrader/internal/bot"
	"github.com/HarshilMaks/TemporalSentimentTrader/internal/cache"
	"github.com/HarshilMaks/TemporalSentimentTrader/internal/config"
	"github.com/HarshilMaks/TemporalSentimentTrader/internal/db"
	"github.com/HarshilMaks/TemporalSentimentTrader/internal/ensemble"
	"github.com/HarshilMaks/TemporalSentimentTrader/internal/job"
	"github.com/HarshilMaks/TemporalSentimentTrader/internal/lifecycle"
	"github.com/HarshilMaks/TemporalSentimentTrader/internal/portfolio"
	"github.com/HarshilMaks/TemporalSentimentTrader/internal/repository"
	"github.com/HarshilMaks/TemporalSentimentTrader/internal/risk"
	"github.com/HarshilMaks/TemporalSentimentTrader/internal/service"
	"github.com/HarshilMaks/TemporalSentimentTrader/pkg/tracing"
)

var (
	loadEnvFunc          = godotenv.Load
	loadConfigFunc       = config.Load
	initPostgresFunc     = db.InitPostgres
	initRedisFunc        = cache.InitRedis
	initTracerFunc       = tracing.InitTracer
	newLoggerFunc        = zap.NewProduction
	startJobFunc         = func(j *job.EvaluationJob, ctx context.Context) { go j.Start(ctx) }
	startTelegramBotFunc = bot.StartTelegramBot
	setupSignalNotify    = signal.Notify
	waitForSignalFunc    = func(quit <-chan os.Signal) { <-quit }
)

func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger, err := newLoggerFunc()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Init Postgres and Redis
	initPostgresFunc(ctx, cfg.DatabaseURL)
	initRedisFunc(ctx, cfg.RedisURL)

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// Create repositories and run migrations. Without Postgres the audit
	// trail degrades to process memory and there is no prediction feed.
	var (
		signalStore  lifecycle.SignalStore
		signalReader bot.SignalReader
		predictions  service.PredictionSource
		prices       service.PriceSource
	)
	if db.Pool != nil {
		signalRepo := repository.NewSignalRepository(db.Pool, tracer)
		predictionRepo := repository.NewPredictionRepository(db.Pool, tracer)
		quoteRepo := repository.NewQuoteRepository(db.Pool, tracer)
		for _, m := range []interface {
			RunMigrations(ctx context.Context) error
		}{signalRepo, predictionRepo, quoteRepo} {
			if err := m.RunMigrations(ctx); err != nil {
				log.Fatalf("failed to run migrations: %v", err)
			}
		}
		signalStore, signalReader = signalRepo, signalRepo
		predictions, prices = predictionRepo, quoteRepo
	} else {
		mem := repository.NewMemorySignalStore()
		signalStore, signalReader = mem, mem
	}

	// Decision pipeline: aggregator, validator, tracker, lifecycle manager
	tracker := portfolio.NewTracker(cfg.Risk, cfg.PortfolioValue, logger)
	manager := lifecycle.NewManager(
		tracer,
		logger,
		ensemble.NewAggregator(cfg.MinModelsReporting),
		risk.NewValidator(cfg.Risk),
		tracker,
		signalStore,
		nil,
	)

	var signalCache *cache.SignalCache
	if cache.Client != nil {
		signalCache = cache.NewSignalCache(cache.Client)
	}

	evalService := service.NewEvaluationService(
		tracer,
		logger,
		predictions,
		prices,
		manager,
		signalCache,
		cfg.Watchlist,
		cfg.ModelWeights,
	)

	// Start Telegram bot and route approvals to the configured chat
	tgBot := startTelegramBotFunc(cfg.TelegramBotToken, cfg.TelegramChatID, signalReader, tracker, evalService)
	if tgBot != nil {
		manager.SetNotifier(tgBot)
		defer tgBot.Stop()
	}

	// Start the periodic watchlist evaluation (stopped by ctx cancel)
	if predictions != nil {
		evalJob := job.NewEvaluationJob(tracer, evalService, time.Duration(cfg.EvalIntervalSecs)*time.Second)
		startJobFunc(evalJob, ctx)
	} else {
		log.Println("no prediction feed configured, periodic evaluation disabled")
	}

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down...")

	cancel()
	log.Println("Server exiting")
}
