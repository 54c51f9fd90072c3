package messaging

import (
	"encoding/json"
	"testing"

	"scene-prompt-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskQueueArgs(t *testing.T) {
	args := taskQueueArgs("scene_prompt_tasks")

	assert.Equal(t, "scene_prompt_tasks_dlx", args["x-dead-letter-exchange"])
	assert.Equal(t, dlqRoutingKey, args["x-dead-letter-routing-key"])
	assert.Equal(t, "lazy", args["x-queue-mode"])
	assert.Equal(t, "scene_prompt_tasks_dlq", DeadLetterQueue("scene_prompt_tasks"))
}

func TestResultPayloadJSON(t *testing.T) {
	payload := ScenePromptResultPayload{
		BatchID: "b1",
		Status:  BatchStatusCompleted,
		Results: []models.PromptResult{{SceneID: "s1", Success: true}},
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "completed", raw["status"])
	assert.NotContains(t, raw, "error_code")
	assert.NotContains(t, raw, "error_message")
	assert.NotContains(t, raw, "user_id")
}
