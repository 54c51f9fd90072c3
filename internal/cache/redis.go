package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"scene-prompt-server/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ ExtractionCache = (*RedisCache)(nil)

// RedisCache - общий для всех экземпляров кэш в Redis. Значения хранятся в JSON.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisCache"),
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (models.VisualElements, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.VisualElements{}, false, nil
		}
		return models.VisualElements{}, false, fmt.Errorf("failed to get extraction from redis: %w", err)
	}

	elements := models.EmptyVisualElements()
	if err := json.Unmarshal(data, &elements); err != nil {
		c.logger.Warn("Corrupted cache entry, ignoring", zap.String("key", key), zap.Error(err))
		return models.VisualElements{}, false, nil
	}
	return elements, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, elements models.VisualElements) error {
	data, err := json.Marshal(elements)
	if err != nil {
		return fmt.Errorf("failed to marshal extraction: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set extraction in redis: %w", err)
	}
	return nil
}
