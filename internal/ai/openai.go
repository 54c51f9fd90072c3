package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"scene-prompt-server/internal/models"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// openAIClient реализует ModelClient через OpenAI-совместимый API.
type openAIClient struct {
	client      *openaigo.Client
	model       string
	temperature float32
	limiter     *RateLimiter
	metrics     *Metrics
	tokens      *tokenCounter
	logger      *zap.Logger
}

var _ ModelClient = (*openAIClient)(nil)

// GenerateText выполняет один запрос chat completion.
func (c *openAIClient) GenerateText(ctx context.Context, systemPrompt string, userInput string) (string, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return "", fmt.Errorf("%w: системный промпт пуст", models.ErrInvalidInput)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		if errors.Is(err, models.ErrRateLimited) {
			c.metrics.rateLimit(c.model, "client")
		}
		return "", err
	}

	messages := []openaigo.ChatCompletionMessage{
		{Role: openaigo.ChatMessageRoleSystem, Content: systemPrompt},
	}
	if userInput != "" {
		messages = append(messages, openaigo.ChatCompletionMessage{
			Role:    openaigo.ChatMessageRoleUser,
			Content: userInput,
		})
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	})
	duration := time.Since(start)

	if err != nil {
		classified := c.classifyError(ctx, err)
		c.metrics.observeRequest(c.model, statusLabel(classified), duration.Seconds())
		c.logger.Warn("AI request failed",
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return "", classified
	}

	if h := resp.GetRateLimitHeaders(); h.LimitRequests > 0 {
		c.limiter.Observe(h.RemainingRequests, h.ResetRequests.Time())
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		c.metrics.observeRequest(c.model, "error_empty_response", duration.Seconds())
		return "", fmt.Errorf("%w: получен пустой ответ", models.ErrModelUnavailable)
	}

	text := resp.Choices[0].Message.Content
	c.metrics.observeRequest(c.model, "success", duration.Seconds())

	promptTokens, completionTokens := resp.Usage.PromptTokens, resp.Usage.CompletionTokens
	if resp.Usage.TotalTokens == 0 {
		promptTokens = c.tokens.Count(systemPrompt) + c.tokens.Count(userInput)
		completionTokens = c.tokens.Count(text)
	}
	c.metrics.observeTokens(c.model, promptTokens, completionTokens)

	c.logger.Debug("AI response received",
		zap.Duration("duration", duration),
		zap.Int("response_len", len(text)),
		zap.Int("prompt_tokens", promptTokens),
		zap.Int("completion_tokens", completionTokens),
	)
	return text, nil
}

// classifyError приводит ошибку go-openai к ошибкам конвейера.
func (c *openAIClient) classifyError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	statusCode := 0
	var apiErr *openaigo.APIError
	var reqErr *openaigo.RequestError
	switch {
	case errors.As(err, &apiErr):
		statusCode = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		statusCode = reqErr.HTTPStatusCode
	}
	if statusCode == http.StatusTooManyRequests {
		c.limiter.MarkExhausted(time.Time{})
		c.metrics.rateLimit(c.model, "provider")
		return fmt.Errorf("%w: %v", models.ErrRateLimited, err)
	}
	return fmt.Errorf("%w: %v", models.ErrModelUnavailable, err)
}

// CheckAvailability запрашивает список моделей.
func (c *openAIClient) CheckAvailability(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, availabilityTimeout)
	defer cancel()
	if _, err := c.client.ListModels(ctx); err != nil {
		c.logger.Warn("AI provider is unavailable", zap.Error(err))
		return false
	}
	return true
}

// GetRateLimitStatus возвращает текущий запас запросов.
func (c *openAIClient) GetRateLimitStatus() RateLimitStatus {
	return c.limiter.Status()
}

// statusLabel - значение метки status для ошибки.
func statusLabel(err error) string {
	switch {
	case errors.Is(err, models.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "error"
	}
}
