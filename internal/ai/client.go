package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"scene-prompt-server/internal/config"

	"github.com/ollama/ollama/api"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// RateLimitStatus - оставшийся бюджет запросов к модели.
type RateLimitStatus struct {
	Remaining int       `json:"remaining"`
	ResetTime time.Time `json:"reset_time"`
}

// ModelClient - клиент языковой модели. Безопасен для конкурентного использования.
type ModelClient interface {
	// GenerateText отправляет инструкцию (системное сообщение) и данные (сообщение пользователя)
	// одним запросом и возвращает текст ответа.
	// Ошибки: models.ErrRateLimited, models.ErrModelUnavailable, ошибки контекста без обертки.
	GenerateText(ctx context.Context, systemPrompt string, userInput string) (string, error)
	// CheckAvailability проверяет доступность провайдера.
	CheckAvailability(ctx context.Context) bool
	// GetRateLimitStatus возвращает текущий запас запросов.
	GetRateLimitStatus() RateLimitStatus
}

const availabilityTimeout = 5 * time.Second

// NewClient создает клиент в зависимости от AI_CLIENT_TYPE.
func NewClient(cfg *config.Config, metrics *Metrics, logger *zap.Logger) (ModelClient, error) {
	if metrics == nil {
		return nil, fmt.Errorf("metrics не может быть nil")
	}
	limiter := NewRateLimiter(cfg.AIRequestsPerMinute)
	httpClient := &http.Client{Timeout: cfg.AITimeout}

	switch strings.ToLower(cfg.AIClientType) {
	case "openai":
		openaiConfig := openaigo.DefaultConfig(cfg.AIAPIKey)
		openaiConfig.BaseURL = cfg.AIBaseURL
		openaiConfig.HTTPClient = httpClient
		logger.Info("OpenAI client created",
			zap.String("base_url", cfg.AIBaseURL),
			zap.String("model", cfg.AIModel),
			zap.Duration("timeout", cfg.AITimeout),
		)
		return &openAIClient{
			client:      openaigo.NewClientWithConfig(openaiConfig),
			model:       cfg.AIModel,
			temperature: float32(cfg.AITemperature),
			limiter:     limiter,
			metrics:     metrics,
			tokens:      newTokenCounter(cfg.AIModel),
			logger:      logger.Named("OpenAIClient"),
		}, nil
	case "ollama":
		// api.NewClient ожидает адрес без /v1
		baseURL := strings.TrimSuffix(strings.TrimSuffix(cfg.AIBaseURL, "/"), "/v1")
		parsedURL, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("ошибка парсинга Ollama Base URL '%s': %w", baseURL, err)
		}
		logger.Info("Ollama client created",
			zap.String("base_url", baseURL),
			zap.String("model", cfg.AIModel),
			zap.Duration("timeout", cfg.AITimeout),
		)
		return &ollamaClient{
			client:      api.NewClient(parsedURL, httpClient),
			model:       cfg.AIModel,
			temperature: cfg.AITemperature,
			limiter:     limiter,
			metrics:     metrics,
			tokens:      newTokenCounter(cfg.AIModel),
			logger:      logger.Named("OllamaClient"),
		}, nil
	default:
		return nil, fmt.Errorf("неизвестный тип AI клиента: '%s'", cfg.AIClientType)
	}
}
