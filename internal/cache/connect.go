package cache

import (
	"context"
	"fmt"
	"time"

	"scene-prompt-server/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	redisMaxRetries = 20
	redisRetryDelay = 3 * time.Second
)

// ConnectRedis создает клиента Redis и ждет успешного PING.
func ConnectRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	logger.Info("Attempting to connect and ping Redis", zap.String("address", opts.Addr), zap.Int("db", opts.DB))

	var lastErr error
	for attempt := 1; attempt <= redisMaxRetries; attempt++ {
		client := redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			logger.Info("Successfully connected and pinged Redis", zap.Int("attempt", attempt))
			return client, nil
		}

		_ = client.Close()
		lastErr = err
		logger.Warn("Redis ping failed, retrying...", zap.Int("attempt", attempt), zap.Error(err))

		select {
		case <-time.After(redisRetryDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("redis connect cancelled: %w", ctx.Err())
		}
	}
	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", redisMaxRetries, lastErr)
}
