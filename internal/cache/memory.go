package cache

import (
	"context"
	"time"

	"scene-prompt-server/internal/models"

	gocache "github.com/patrickmn/go-cache"
)

var _ ExtractionCache = (*MemoryCache)(nil)

const memoryCleanupInterval = 10 * time.Minute

// MemoryCache - кэш в памяти процесса.
type MemoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache создает кэш с заданным временем жизни записей.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{store: gocache.New(ttl, memoryCleanupInterval)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (models.VisualElements, bool, error) {
	v, ok := c.store.Get(key)
	if !ok {
		return models.VisualElements{}, false, nil
	}
	return cloneElements(v.(models.VisualElements)), true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, elements models.VisualElements) error {
	c.store.SetDefault(key, cloneElements(elements))
	return nil
}

// cloneElements копирует срезы, чтобы вызывающий код не менял сохраненное значение.
func cloneElements(el models.VisualElements) models.VisualElements {
	out := models.EmptyVisualElements()
	for _, c := range models.ElementCategories {
		out.Set(c, append([]string{}, el.Get(c)...))
	}
	return out
}
