package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scene-prompt-server/internal/bootstrap"
	"scene-prompt-server/internal/config"
	"scene-prompt-server/internal/logger"
	"scene-prompt-server/internal/messaging"
	"scene-prompt-server/internal/worker"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LoggerConfig(), "scene-prompt-worker")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)
	log.Info("Starting scene prompt worker...", zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Локальный реестр: он же отправляется в Pushgateway.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	promptService, cleanup, err := bootstrap.PromptService(ctx, cfg, registry, log)
	if err != nil {
		log.Fatal("Failed to initialize prompt pipeline", zap.Error(err))
	}
	defer cleanup()

	mqConn, err := messaging.Connect(ctx, cfg.RabbitMQURL, cfg.MaskedRabbitMQURL(), log)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer mqConn.Close()

	resultPublisher, err := messaging.NewResultPublisher(mqConn, cfg.ResultQueueName, log)
	if err != nil {
		log.Fatal("Failed to create result publisher", zap.Error(err))
	}
	defer resultPublisher.Close()

	pusher := worker.NewPusher(cfg.PushGatewayURL, registry)
	if pusher == nil {
		log.Info("PUSHGATEWAY_URL is not set, metrics are exposed only via /metrics")
	}
	taskHandler := worker.NewHandler(promptService, resultPublisher, pusher, worker.NewMetrics(registry), log)

	// --- /metrics и /health ---
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		if mqConn.IsClosed() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	metricsServer := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("Starting metrics server", zap.String("port", cfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed", zap.Error(err))
		}
	}()

	consumerName := "scene-prompt-worker-" + uuid.NewString()[:8]
	consumer := messaging.NewTaskConsumer(mqConn, cfg.TaskQueueName, consumerName, taskHandler, log)
	consumerErr := make(chan error, 1)
	go func() { consumerErr <- consumer.Run(ctx) }()
	log.Info("Worker started", zap.String("queue", cfg.TaskQueueName), zap.String("consumer", consumerName))

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
		<-consumerErr
	case err := <-consumerErr:
		if err != nil {
			log.Error("Consumer stopped with error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Metrics server forced to shutdown", zap.Error(err))
	}
	log.Info("Worker shut down gracefully")
}
