// Package main runs the HTTP API: smart validation, examination recommendations,
// clinical flows, feedback and the teleconsultation websocket.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/faskesq-clinical-assist/internal/api"
	"github.com/faskesq-clinical-assist/internal/cache"
	"github.com/faskesq-clinical-assist/internal/config"
	"github.com/faskesq-clinical-assist/internal/database"
	"github.com/faskesq-clinical-assist/internal/domain"
	"github.com/faskesq-clinical-assist/internal/feedback"
	"github.com/faskesq-clinical-assist/internal/health"
	"github.com/faskesq-clinical-assist/internal/jobs"
	"github.com/faskesq-clinical-assist/internal/prompts"
	"github.com/faskesq-clinical-assist/internal/repository"
	"github.com/faskesq-clinical-assist/internal/service"
	"github.com/faskesq-clinical-assist/pkg/external"
)

const version = "v0.1.0"

func main() {
	// .env is optional
	_ = godotenv.Load()

	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	if err := run(ctx, configManager); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
	log.Println("Server stopped")
}

func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Output == "stderr" {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

func run(ctx context.Context, configManager *config.Manager) error {
	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging)

	rules, err := service.LoadRules(cfg.Rules.File)
	if err != nil {
		return err
	}
	engine := service.NewEngine(rules, logger)

	checker := health.NewHealthChecker(version, 0, logger)

	var responses external.ResponseCache
	if cfg.Cache.Enabled {
		if cfg.Cache.RedisURL != "" {
			redisCache, err := external.NewRedisCache(cfg.Cache)
			if err != nil {
				return fmt.Errorf("connecting to redis: %w", err)
			}
			defer redisCache.Close()
			checker.Register("redis", health.RedisCheck(redisCache.Client()), false)
			responses = redisCache
		} else {
			memoryCache, err := cache.NewMemoryCache(cfg.Cache.MaxItems, cfg.Cache.DefaultTTL)
			if err != nil {
				return err
			}
			responses = memoryCache
		}
	}

	model, err := external.NewModelClient(cfg.LLM, responses, cfg.Cache.DefaultTTL, logger)
	if err != nil {
		return err
	}
	checker.Register("llm", health.BreakerCheck(model.State), false)

	var records domain.RecommendationRepository
	if cfg.Database.Enabled {
		if err := database.Migrate(ctx, configManager.GetDatabaseURL(), cfg.Database.MigrationsPath, "up", logger); err != nil {
			return err
		}
		db, err := database.NewConnection(ctx, database.ConfigFrom(cfg.Database), logger)
		if err != nil {
			return err
		}
		defer db.Close()
		checker.Register("database", health.PoolCheck(db), true)
		records = repository.NewRecommendationRepository(db.Pool, logger)
	}

	store, err := feedback.Open(cfg.Feedback, configManager.GetDatabaseURL())
	if err != nil {
		return err
	}
	defer store.Close()
	if withDB, ok := store.(interface{ DB() *sql.DB }); ok {
		checker.Register("feedback", health.SQLCheck(withDB.DB()), false)
	}

	if cfg.Jobs.Enabled {
		scheduler := jobs.NewScheduler(logger)
		exporter := jobs.NewFeedbackExporter(store, cfg.Feedback.ExportDir, logger)
		if err := scheduler.Schedule("feedback_export", cfg.Jobs.FeedbackExport, exporter); err != nil {
			return err
		}
		scheduler.Start(ctx)
	}

	pm, err := prompts.NewDefaultPromptManager(logger)
	if err != nil {
		return err
	}
	flows := service.NewClinicalFlows(pm, model, logger)

	server := api.NewServer(configManager, api.Services{
		Engine:    engine,
		Router:    service.NewRecommendationRouter(engine.Validator, pm, model, records, logger),
		Flows:     flows,
		Diagnoses: service.NewDiagnosisIntegration(flows, engine.Fallback, logger),
		Feedback:  store,
		Records:   records,
		Health:    checker,
	}, logger)

	logger.WithFields(logrus.Fields{
		"host":     cfg.Server.Host,
		"port":     cfg.Server.Port,
		"provider": cfg.LLM.Provider,
		"audit":    records != nil,
		"feedback": cfg.Feedback.Backend,
	}).Info("Starting FaskesQ clinical assist API")

	return server.Start(ctx)
}
