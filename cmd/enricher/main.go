// The enricher binary consumes enrichment messages from the queue,
// normalizes video metadata and upserts canonical records.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/config"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/metrics"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/queue"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/repository"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/service"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := repository.NewPool(ctx, &cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	repo := repository.New(pool)

	consumer, err := queue.NewConsumer(&cfg.RabbitMQ)
	if err != nil {
		logger.Log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer consumer.Close()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	enricher := service.NewEnrichService(nil, repo, collector)

	// Scrape endpoint for the worker's own metrics.
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(registry))
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: mux,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("Metrics server error", zap.Error(err))
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-shutdown
		logger.Log.Info("Shutdown signal received", zap.String("signal", sig.String()))
		cancel()
		_ = metricsServer.Close()
	}()

	logger.Log.Info("Enricher starting", zap.String("queue", cfg.RabbitMQ.Queue))

	if err := consumer.Consume(ctx, enricher.Enrich); err != nil && !errors.Is(err, context.Canceled) {
		logger.Log.Fatal("Consumer stopped", zap.Error(err))
	}

	logger.Log.Info("Enricher stopped")
}
