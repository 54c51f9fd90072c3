// Package bootstrap собирает конвейер из конфигурации для cmd/server и cmd/worker.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"scene-prompt-server/internal/ai"
	"scene-prompt-server/internal/cache"
	"scene-prompt-server/internal/config"
	"scene-prompt-server/internal/pipeline"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// PromptService создает сервис конвейера со всеми зависимостями.
// Возвращаемая функция освобождает ресурсы (клиент Redis).
func PromptService(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *zap.Logger) (*pipeline.Service, func(), error) {
	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Safety policy loaded", zap.String("file", cfg.PolicyFile))

	cleanup := func() {}
	var redisClient *redis.Client
	if strings.EqualFold(cfg.CacheBackend, cache.BackendRedis) {
		redisClient, err = cache.ConnectRedis(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("Failed to close Redis client", zap.Error(err))
			}
		}
	}

	extractionCache, err := cache.New(cfg, redisClient, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	logger.Info("Extraction cache configured", zap.String("backend", cfg.CacheBackend), zap.Duration("ttl", cfg.CacheTTL))

	client, err := ai.NewClient(cfg, ai.NewMetrics(reg), logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to create AI client: %w", err)
	}

	svc := pipeline.NewService(client, extractionCache, policy, pipeline.OptionsFromConfig(cfg), pipeline.NewMetrics(reg), logger)
	return svc, cleanup, nil
}
