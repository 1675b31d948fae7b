// The webhook binary serves the hub-facing callback endpoint: the
// verification handshake on GET and notification ingestion on POST.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/config"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/handler"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/metrics"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/middleware"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/queue"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/repository"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/service"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/validation"
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

	ctx := context.Background()
	pool, err := repository.NewPool(ctx, &cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	repo := repository.New(pool)

	publisher, err := queue.NewPublisher(&cfg.RabbitMQ)
	if err != nil {
		logger.Log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer publisher.Close()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	validator := validation.New(cfg.Webhook.MaxPayloadSize, cfg.Webhook.ValidationEnabled)
	if cfg.WebSub.Secret == "" {
		logger.Log.Warn("No webhook secret configured, notification signatures will not be verified")
	}
	ingest := service.NewIngestService(repo, publisher, validator, collector, cfg.WebSub.Secret)

	webhookHandler := handler.NewWebhookHandler(ingest, validator, collector)
	healthHandler := handler.NewHealthHandler(repo, publisher)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.Recovery(), middleware.RequestLogger())

	router.GET("/webhook", webhookHandler.HandleVerification)
	router.POST("/webhook", webhookHandler.HandleNotification)
	router.GET("/health", healthHandler.ReadinessProbe)
	router.GET("/health/live", healthHandler.LivenessProbe)
	router.GET("/health/ready", healthHandler.ReadinessProbe)
	router.GET("/metrics", gin.WrapH(metrics.Handler(registry)))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Log.Info("Webhook server starting", zap.Int("port", cfg.Server.Port))
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Log.Fatal("Server error", zap.Error(err))
	case sig := <-shutdown:
		logger.Log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Log.Error("Graceful shutdown failed", zap.Error(err))
			_ = server.Close()
		}
		logger.Log.Info("Webhook server stopped")
	}
}
