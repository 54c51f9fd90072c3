package cache

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"scene-prompt-server/internal/config"
	"scene-prompt-server/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// Backend names
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
	BackendNone   = "none"
)

// ExtractionCache хранит результаты извлечения визуальных элементов.
// Отсутствие ключа - (zero, false, nil); ошибка означает сбой хранилища.
type ExtractionCache interface {
	Get(ctx context.Context, key string) (models.VisualElements, bool, error)
	Set(ctx context.Context, key string, elements models.VisualElements) error
}

// Key строит ключ кэша: blake2b-256 от частей, разделенных '|'.
func Key(parts ...string) string {
	sum := blake2b.Sum256([]byte(strings.Join(parts, "|")))
	return "extract:" + hex.EncodeToString(sum[:])
}

// New создает кэш по CACHE_BACKEND. Для none возвращает nil.
// client нужен только для redis.
func New(cfg *config.Config, client *redis.Client, logger *zap.Logger) (ExtractionCache, error) {
	switch strings.ToLower(cfg.CacheBackend) {
	case BackendRedis:
		if client == nil {
			return nil, fmt.Errorf("redis client не может быть nil для CACHE_BACKEND=redis")
		}
		return NewRedisCache(client, cfg.CacheTTL, logger), nil
	case BackendMemory:
		return NewMemoryCache(cfg.CacheTTL), nil
	case BackendNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("неизвестный CACHE_BACKEND: '%s'", cfg.CacheBackend)
	}
}
