package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/skybrief/avwx-risk/internal/adapter/aviationwx"
	httpadapter "github.com/skybrief/avwx-risk/internal/adapter/http"
	kafkaadapter "github.com/skybrief/avwx-risk/internal/adapter/kafka"
	"github.com/skybrief/avwx-risk/internal/adapter/openai"
	"github.com/skybrief/avwx-risk/internal/cache"
	"github.com/skybrief/avwx-risk/internal/config"
	"github.com/skybrief/avwx-risk/internal/domain"
	"github.com/skybrief/avwx-risk/internal/observability"
	"github.com/skybrief/avwx-risk/internal/risk"
	"github.com/skybrief/avwx-risk/internal/scheduler"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	responseCache := cache.New(cfg.CacheTTL, clock)
	client := aviationwx.NewClient(aviationwx.Config{
		BaseURL:        cfg.UpstreamBaseURL,
		Timeout:        cfg.UpstreamTimeout,
		RetryAttempts:  cfg.RetryAttempts,
		RetryBaseDelay: cfg.RetryBaseDelay,
	}, responseCache, clock, metrics, logger)

	// Assessment publishing (feature-flagged via KAFKA_ENABLED).
	var publisher risk.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		publisher = writer
		logger.Info("assessment publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("assessment publishing disabled")
	}

	// AI briefings (feature-flagged via OPENAI_API_KEY).
	var summarizer domain.Summarizer
	if cfg.OpenAIEnabled {
		summarizer = openai.NewClient(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAITimeout, logger)
		logger.Info("ai briefings enabled", "model", cfg.OpenAIModel)
	} else {
		logger.Info("ai briefings disabled, using template summarizer")
	}

	assessor := risk.NewAssessor(client, publisher, summarizer, clock, metrics, logger)

	srv := httpadapter.NewServer(cfg.HTTPAddr, assessor, client, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	var monitor *scheduler.Scheduler
	if cfg.MonitorEnabled {
		monitor = scheduler.New(cfg.MonitorStations, cfg.MonitorInterval, assessor, logger)
		if err := monitor.Start(); err != nil {
			logger.Error("monitor start error", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Info("monitor disabled")
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if monitor != nil {
		monitor.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
