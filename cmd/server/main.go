package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"scene-prompt-server/internal/bootstrap"
	"scene-prompt-server/internal/config"
	"scene-prompt-server/internal/handler"
	"scene-prompt-server/internal/logger"
	"scene-prompt-server/internal/messaging"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	ginprometheus "github.com/zsais/go-gin-prometheus"
)

func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	log, err := logger.New(cfg.LoggerConfig(), "scene-prompt-server")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)
	log.Info("Logger initialized", zap.String("level", cfg.LogLevel), zap.String("env", cfg.Env))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Pipeline ---
	promptService, cleanup, err := bootstrap.PromptService(rootCtx, cfg, prometheus.DefaultRegisterer, log)
	if err != nil {
		log.Fatal("Failed to initialize prompt pipeline", zap.Error(err))
	}
	defer cleanup()

	hub := handler.NewProgressHub(log)

	// --- RabbitMQ (асинхронные батчи) ---
	var (
		taskPublisher messaging.TaskPublisher
		consumerWG    sync.WaitGroup
	)
	consumerCtx, cancelConsumer := context.WithCancel(rootCtx)
	defer cancelConsumer()

	if cfg.RabbitMQURL != "" {
		mqConn, err := messaging.Connect(rootCtx, cfg.RabbitMQURL, cfg.MaskedRabbitMQURL(), log)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer mqConn.Close()

		publisher, err := messaging.NewTaskPublisher(mqConn, cfg.TaskQueueName, log)
		if err != nil {
			log.Fatal("Failed to create task publisher", zap.Error(err))
		}
		defer publisher.Close()
		taskPublisher = publisher

		consumerName := "scene-prompt-server-" + uuid.NewString()[:8]
		resultConsumer := messaging.NewResultConsumer(mqConn, cfg.ResultQueueName, consumerName, handler.NewResultForwarder(hub, log), log)
		consumerWG.Add(1)
		go func() {
			defer consumerWG.Done()
			if err := resultConsumer.Run(consumerCtx); err != nil {
				log.Error("Result consumer stopped with error", zap.Error(err))
			}
		}()
	} else {
		log.Warn("RABBITMQ_URL is empty, asynchronous generation is disabled")
	}

	// --- HTTP Server (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(handler.ZapLoggingMiddleware(log))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if origins := cfg.GetAllowedOrigins(); len(origins) > 0 {
		corsConfig.AllowOrigins = origins
	} else {
		corsConfig.AllowAllOrigins = true
		log.Info("CORS_ALLOWED_ORIGINS not set, allowing all origins")
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "HEAD", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// /metrics регистрируется middleware Prometheus поверх DefaultRegisterer
	p := ginprometheus.NewPrometheus("gin")
	p.Use(router)

	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET is not configured, API authentication is disabled")
	}
	promptHandler := handler.NewPromptHandler(promptService, taskPublisher, hub, cfg.GetAllowedOrigins(), log)
	promptHandler.RegisterRoutes(router, handler.AuthMiddleware(cfg.JWTSecret))

	// Синхронная генерация батча может идти долго, поэтому WriteTimeout зависит от AI_TIMEOUT.
	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AITimeout * 4,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-rootCtx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	cancelConsumer()
	consumerWG.Wait()

	log.Info("Server exited")
}
