package messaging

import (
	"time"

	"scene-prompt-server/internal/models"
)

// ScenePromptTaskPayload - задача асинхронной генерации промптов для батча сцен.
type ScenePromptTaskPayload struct {
	BatchID        string                 `json:"batch_id"`
	UserID         string                 `json:"user_id,omitempty"`
	Scenes         []models.SceneInput    `json:"scenes"`
	Config         models.ProjectConfig   `json:"config"`
	SafetyOverride *models.SafetyOverride `json:"safety_override,omitempty"`
	RequestedAt    time.Time              `json:"requested_at"`
}

// BatchStatus - итог обработки батча воркером.
type BatchStatus string

const (
	BatchStatusCompleted BatchStatus = "completed"
	BatchStatusCancelled BatchStatus = "cancelled"
	BatchStatusRejected  BatchStatus = "rejected"
)

// ScenePromptResultPayload - результат батча, публикуемый воркером.
type ScenePromptResultPayload struct {
	BatchID      string                `json:"batch_id"`
	UserID       string                `json:"user_id,omitempty"`
	Status       BatchStatus           `json:"status"`
	Results      []models.PromptResult `json:"results"`
	ErrorCode    models.ErrorCode      `json:"error_code,omitempty"`
	ErrorMessage *string               `json:"error_message,omitempty"`
	CompletedAt  time.Time             `json:"completed_at"`
}
