package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"scene-prompt-server/internal/messaging"
	"scene-prompt-server/internal/models"
	"scene-prompt-server/internal/pipeline"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

// PromptGenerator - батчевая генерация промптов.
type PromptGenerator interface {
	GenerateScenePrompts(ctx context.Context, scenes []models.SceneInput, cfg models.ProjectConfig, opts ...pipeline.BatchOption) ([]models.PromptResult, error)
}

var _ messaging.DeliveryHandler = (*Handler)(nil)

// Handler обрабатывает задачи из очереди и публикует результаты батчей.
type Handler struct {
	generator PromptGenerator
	publisher messaging.ResultPublisher
	pusher    *push.Pusher
	metrics   *Metrics
	logger    *zap.Logger
}

// NewHandler создает обработчик. pusher может быть nil.
func NewHandler(generator PromptGenerator, publisher messaging.ResultPublisher, pusher *push.Pusher, metrics *Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		generator: generator,
		publisher: publisher,
		pusher:    pusher,
		metrics:   metrics,
		logger:    logger.Named("TaskHandler"),
	}
}

// Handle обрабатывает одну задачу. Ошибки отдельных сцен не мешают подтверждению:
// они уже записаны в результатах.
func (h *Handler) Handle(ctx context.Context, body []byte, correlationID string) messaging.Decision {
	start := time.Now()
	h.metrics.tasksReceived.Inc()
	defer func() {
		h.metrics.taskDuration.Observe(time.Since(start).Seconds())
		h.pushMetrics()
	}()

	var task messaging.ScenePromptTaskPayload
	if err := json.Unmarshal(body, &task); err != nil {
		h.logger.Error("Failed to unmarshal task payload",
			zap.String("correlation_id", correlationID),
			zap.Error(err),
		)
		h.metrics.tasksProcessed.WithLabelValues("error_unmarshal").Inc()
		return messaging.Reject
	}
	if task.BatchID == "" {
		task.BatchID = correlationID
	}
	if task.BatchID == "" {
		task.BatchID = uuid.NewString()
	}

	log := h.logger.With(zap.String("batch_id", task.BatchID), zap.String("user_id", task.UserID))
	log.Info("Received scene prompt task", zap.Int("scenes", len(task.Scenes)))

	results, err := h.generator.GenerateScenePrompts(ctx, task.Scenes, task.Config,
		pipeline.WithBatchID(task.BatchID),
		pipeline.WithSafetyOverride(task.SafetyOverride),
	)

	switch {
	case err == nil:
	case errors.Is(err, models.ErrBatchCancelled) && ctx.Err() != nil:
		log.Warn("Worker is stopping, returning task to queue", zap.Error(err))
		h.metrics.tasksProcessed.WithLabelValues("requeued").Inc()
		return messaging.Requeue
	case errors.Is(err, models.ErrBatchCancelled):
		log.Warn("Batch cancelled", zap.Error(err))
		h.metrics.tasksProcessed.WithLabelValues("cancelled").Inc()
		msg := err.Error()
		if !h.publish(ctx, log, messaging.ScenePromptResultPayload{
			BatchID:      task.BatchID,
			UserID:       task.UserID,
			Status:       messaging.BatchStatusCancelled,
			Results:      results,
			ErrorCode:    models.ErrCodeCancelled,
			ErrorMessage: &msg,
			CompletedAt:  time.Now().UTC(),
		}) {
			return messaging.Requeue
		}
		return messaging.Ack
	default:
		log.Warn("Task rejected", zap.Error(err))
		h.metrics.tasksProcessed.WithLabelValues("rejected").Inc()
		msg := err.Error()
		h.publish(ctx, log, messaging.ScenePromptResultPayload{
			BatchID:      task.BatchID,
			UserID:       task.UserID,
			Status:       messaging.BatchStatusRejected,
			Results:      []models.PromptResult{},
			ErrorCode:    models.CodeOf(err),
			ErrorMessage: &msg,
			CompletedAt:  time.Now().UTC(),
		})
		return messaging.Reject
	}

	if !h.publish(ctx, log, messaging.ScenePromptResultPayload{
		BatchID:     task.BatchID,
		UserID:      task.UserID,
		Status:      messaging.BatchStatusCompleted,
		Results:     results,
		CompletedAt: time.Now().UTC(),
	}) {
		h.metrics.tasksProcessed.WithLabelValues("error_publish").Inc()
		return messaging.Requeue
	}

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	h.metrics.tasksProcessed.WithLabelValues("success").Inc()
	log.Info("Batch processed and published", zap.Int("scenes", len(results)), zap.Int("unsuccessful_scenes", failed))
	return messaging.Ack
}

func (h *Handler) publish(ctx context.Context, log *zap.Logger, payload messaging.ScenePromptResultPayload) bool {
	if err := h.publisher.PublishResult(ctx, payload); err != nil {
		h.metrics.publishErrors.Inc()
		log.Error("Failed to publish batch result", zap.Error(err))
		return false
	}
	return true
}

func (h *Handler) pushMetrics() {
	if h.pusher == nil {
		return
	}
	if err := h.pusher.Push(); err != nil {
		h.logger.Error("Failed to push metrics to Pushgateway", zap.Error(err))
		return
	}
	h.logger.Debug("Metrics pushed to Pushgateway")
}
