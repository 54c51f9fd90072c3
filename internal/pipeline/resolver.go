package pipeline

import (
	"fmt"
	"strings"

	"scene-prompt-server/internal/models"
)

// Resolution - решение по сцене после проверки безопасности.
type Resolution struct {
	Status  models.SafetyStatus
	Prompt  string
	Success bool
	// Err задан только для стратегии fail (models.ErrSafetyViolation).
	Err error
}

// ResolveSafety применяет стратегию к результату проверки.
// Стратегия replace здесь ведет себя как mask: подбор замены выполняет вызывающий код.
func ResolveSafety(prompt string, eval models.SafetyEvaluation, strategy models.ErrorStrategy) Resolution {
	if eval.IsSafe() {
		return Resolution{Status: models.SafetyStatusSafe, Prompt: prompt, Success: true}
	}

	switch strategy {
	case models.ErrorStrategySkip:
		return Resolution{Status: models.SafetyStatusSkipped, Prompt: "", Success: false}
	case models.ErrorStrategyFail:
		return Resolution{
			Status:  models.SafetyStatusFailed,
			Prompt:  "",
			Success: false,
			Err:     fmt.Errorf("%w: %s", models.ErrSafetyViolation, strings.Join(eval.Violations, ", ")),
		}
	default:
		masked := prompt
		if eval.FilteredPrompt != nil {
			masked = *eval.FilteredPrompt
		}
		return Resolution{Status: models.SafetyStatusFiltered, Prompt: masked, Success: true}
	}
}
