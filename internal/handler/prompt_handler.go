package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"scene-prompt-server/internal/messaging"
	"scene-prompt-server/internal/models"
	"scene-prompt-server/internal/pipeline"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// PromptService - операции конвейера, доступные через HTTP.
type PromptService interface {
	GenerateScenePrompts(ctx context.Context, scenes []models.SceneInput, cfg models.ProjectConfig, opts ...pipeline.BatchOption) ([]models.PromptResult, error)
	ResolveConfig(cfg models.ProjectConfig, override *models.SafetyOverride) (models.ProjectConfig, error)
	GeneratePromptPreview(prompt string) string
	ValidateAndEditPrompt(ctx context.Context, original, edited string, cfg models.ProjectConfig) (models.ValidationResult, error)
	ModelStatus(ctx context.Context) pipeline.ModelStatus
}

type PromptHandler struct {
	service   PromptService
	publisher messaging.TaskPublisher
	hub       *ProgressHub
	upgrader  websocket.Upgrader
	logger    *zap.Logger
}

// NewPromptHandler создает обработчик. publisher может быть nil: тогда асинхронная генерация недоступна.
func NewPromptHandler(service PromptService, publisher messaging.TaskPublisher, hub *ProgressHub, allowedOrigins []string, logger *zap.Logger) *PromptHandler {
	return &PromptHandler{
		service:   service,
		publisher: publisher,
		hub:       hub,
		upgrader:  newUpgrader(allowedOrigins),
		logger:    logger.Named("PromptHandler"),
	}
}

// RegisterRoutes регистрирует маршруты. auth применяется ко всем маршрутам, кроме /health.
func (h *PromptHandler) RegisterRoutes(router gin.IRouter, auth gin.HandlerFunc) {
	router.GET("/health", h.health)
	router.HEAD("/health", h.health)

	api := router.Group("/api/v1", auth)
	{
		prompts := api.Group("/prompts")
		prompts.POST("/generate", h.generate)
		prompts.POST("/generate/async", h.generateAsync)
		prompts.POST("/preview", h.preview)
		prompts.POST("/validate", h.validate)

		api.GET("/model/status", h.modelStatus)
	}

	router.GET("/ws/batches/:batch_id", auth, h.ServeWS)
}

func (h *PromptHandler) health(c *gin.Context) {
	c.Status(http.StatusOK)
}

func (h *PromptHandler) generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}
	batchID := req.BatchID
	if batchID == "" {
		batchID = uuid.NewString()
	}

	results, err := h.service.GenerateScenePrompts(c.Request.Context(), req.Scenes, req.Config,
		pipeline.WithBatchID(batchID),
		pipeline.WithSafetyOverride(req.SafetyOverride),
		pipeline.WithResultObserver(func(r models.PromptResult) { h.hub.PublishResult(batchID, r) }),
	)
	if err != nil {
		status := string(messaging.BatchStatusRejected)
		if errors.Is(err, models.ErrBatchCancelled) {
			status = string(messaging.BatchStatusCancelled)
		}
		h.hub.CompleteBatch(batchID, status, err)
		handleServiceError(c, err)
		return
	}
	h.hub.CompleteBatch(batchID, string(messaging.BatchStatusCompleted), nil)

	c.JSON(http.StatusOK, GenerateResponse{BatchID: batchID, Results: results})
}

// generateAsync проверяет запрос и ставит батч в очередь воркеров.
func (h *PromptHandler) generateAsync(c *gin.Context) {
	if h.publisher == nil {
		handleServiceError(c, fmt.Errorf("%w: task queue is not configured", models.ErrModelUnavailable))
		return
	}
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}
	if len(req.Scenes) == 0 {
		handleServiceError(c, fmt.Errorf("%w: scene list is empty", models.ErrInvalidInput))
		return
	}
	if _, err := h.service.ResolveConfig(req.Config, req.SafetyOverride); err != nil {
		handleServiceError(c, err)
		return
	}

	batchID := req.BatchID
	if batchID == "" {
		batchID = uuid.NewString()
	}
	task := messaging.ScenePromptTaskPayload{
		BatchID:        batchID,
		UserID:         c.GetString(userIDKey),
		Scenes:         req.Scenes,
		Config:         req.Config,
		SafetyOverride: req.SafetyOverride,
		RequestedAt:    time.Now().UTC(),
	}
	if err := h.publisher.PublishTask(c.Request.Context(), task); err != nil {
		h.logger.Error("Failed to enqueue batch", zap.String("batch_id", batchID), zap.Error(err))
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, AsyncGenerateResponse{BatchID: batchID})
}

func (h *PromptHandler) preview(c *gin.Context) {
	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}
	var preview string
	if req.MaxLength > 0 {
		preview = pipeline.Preview(req.Prompt, req.MaxLength)
	} else {
		preview = h.service.GeneratePromptPreview(req.Prompt)
	}
	c.JSON(http.StatusOK, PreviewResponse{Preview: preview})
}

func (h *PromptHandler) validate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}
	result, err := h.service.ValidateAndEditPrompt(c.Request.Context(), req.OriginalPrompt, req.EditedPrompt, req.Config)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *PromptHandler) modelStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.ModelStatus(c.Request.Context()))
}
