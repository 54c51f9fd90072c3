package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"scene-prompt-server/internal/models"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// ollamaClient реализует ModelClient через нативный API Ollama.
type ollamaClient struct {
	client      *api.Client
	model       string
	temperature float64
	limiter     *RateLimiter
	metrics     *Metrics
	tokens      *tokenCounter
	logger      *zap.Logger
}

var _ ModelClient = (*ollamaClient)(nil)

// GenerateText выполняет один нестриминговый запрос chat.
func (c *ollamaClient) GenerateText(ctx context.Context, systemPrompt string, userInput string) (string, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return "", fmt.Errorf("%w: системный промпт пуст", models.ErrInvalidInput)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		if errors.Is(err, models.ErrRateLimited) {
			c.metrics.rateLimit(c.model, "client")
		}
		return "", err
	}

	messages := []api.Message{{Role: "system", Content: systemPrompt}}
	if userInput != "" {
		messages = append(messages, api.Message{Role: "user", Content: userInput})
	}
	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]interface{}{
			"temperature": c.temperature,
		},
	}

	start := time.Now()
	var resp api.ChatResponse
	err := c.client.Chat(ctx, req, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	duration := time.Since(start)

	if err != nil {
		classified := c.classifyError(ctx, err)
		c.metrics.observeRequest(c.model, statusLabel(classified), duration.Seconds())
		c.logger.Warn("Ollama request failed", zap.Duration("duration", duration), zap.Error(err))
		return "", classified
	}

	text := resp.Message.Content
	if strings.TrimSpace(text) == "" {
		c.metrics.observeRequest(c.model, "error_empty_response", duration.Seconds())
		return "", fmt.Errorf("%w: получен пустой ответ", models.ErrModelUnavailable)
	}
	c.metrics.observeRequest(c.model, "success", duration.Seconds())

	promptTokens, completionTokens := resp.PromptEvalCount, resp.EvalCount
	if promptTokens == 0 && completionTokens == 0 {
		promptTokens = c.tokens.Count(systemPrompt) + c.tokens.Count(userInput)
		completionTokens = c.tokens.Count(text)
	}
	c.metrics.observeTokens(c.model, promptTokens, completionTokens)

	c.logger.Debug("Ollama response received",
		zap.Duration("duration", duration),
		zap.Int("response_len", len(text)),
	)
	return text, nil
}

func (c *ollamaClient) classifyError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var statusErr api.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests {
		c.limiter.MarkExhausted(time.Time{})
		c.metrics.rateLimit(c.model, "provider")
		return fmt.Errorf("%w: %v", models.ErrRateLimited, err)
	}
	return fmt.Errorf("%w: %v", models.ErrModelUnavailable, err)
}

// CheckAvailability проверяет сервер Ollama через heartbeat.
func (c *ollamaClient) CheckAvailability(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, availabilityTimeout)
	defer cancel()
	if err := c.client.Heartbeat(ctx); err != nil {
		c.logger.Warn("Ollama is unavailable", zap.Error(err))
		return false
	}
	return true
}

// GetRateLimitStatus возвращает текущий запас запросов.
func (c *ollamaClient) GetRateLimitStatus() RateLimitStatus {
	return c.limiter.Status()
}
