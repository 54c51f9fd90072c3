package handler

import (
	"scene-prompt-server/internal/models"
)

// GenerateRequest - тело запроса генерации промптов для батча сцен.
// BatchID необязателен: если он задан заранее, результаты сцен уходят подписчикам /ws/batches/:batch_id.
type GenerateRequest struct {
	BatchID        string                 `json:"batch_id"`
	Scenes         []models.SceneInput    `json:"scenes" binding:"required"`
	Config         models.ProjectConfig   `json:"config"`
	SafetyOverride *models.SafetyOverride `json:"safety_override,omitempty"`
}

type GenerateResponse struct {
	BatchID string                `json:"batch_id"`
	Results []models.PromptResult `json:"results"`
}

type AsyncGenerateResponse struct {
	BatchID string `json:"batch_id"`
}

type PreviewRequest struct {
	Prompt    string `json:"prompt" binding:"required"`
	MaxLength int    `json:"max_length"`
}

type PreviewResponse struct {
	Preview string `json:"preview"`
}

// ValidateRequest - ручная правка промпта пользователем.
type ValidateRequest struct {
	OriginalPrompt string               `json:"original_prompt"`
	EditedPrompt   string               `json:"edited_prompt" binding:"required"`
	Config         models.ProjectConfig `json:"config"`
}

// ProgressEvent - сообщение подписчику прогресса батча.
type ProgressEvent struct {
	Type    string                `json:"type"`
	BatchID string                `json:"batch_id"`
	Result  *models.PromptResult  `json:"result,omitempty"`
	Status  string                `json:"status,omitempty"`
	Error   *models.ErrorResponse `json:"error,omitempty"`
}

const (
	EventSceneResult    = "scene_result"
	EventBatchCompleted = "batch_completed"
)
