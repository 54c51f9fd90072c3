package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"scene-prompt-server/internal/ai"
	"scene-prompt-server/internal/models"

	"go.uber.org/zap"
)

var (
	promptLabelRegex = regexp.MustCompile(`(?i)^\s*(?:image\s+)?prompt\s*:\s*`)
	codeFenceRegex   = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
)

// Synthesizer строит базовый промпт по тексту сцены и ее элементам.
type Synthesizer struct {
	client ai.ModelClient
	retry  *retrier
	logger *zap.Logger
}

// Synthesize возвращает базовый промпт одной строкой.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, elements models.VisualElements, cfg models.ProjectConfig) (string, error) {
	raw, err := s.retry.do(ctx, models.StageSynthesizing, cfg.Generation.RetryAttempts, func(ctx context.Context) (string, error) {
		return s.client.GenerateText(ctx, synthesisInstruction, synthesisInput(text, elements))
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrSynthesisFailed, err)
	}

	prompt := cleanPrompt(raw)
	if prompt == "" {
		s.logger.Warn("Synthesis returned empty prompt", zap.Int("response_length", len(raw)))
		return "", fmt.Errorf("%w: %w: empty prompt", models.ErrSynthesisFailed, models.ErrMalformedResponse)
	}
	return prompt, nil
}

// cleanPrompt убирает обрамление ответа: блок кода, метку "Prompt:", кавычки, переводы строк.
func cleanPrompt(raw string) string {
	s := strings.TrimSpace(raw)
	if m := codeFenceRegex.FindStringSubmatch(s); len(m) > 1 {
		s = m[1]
	}
	s = promptLabelRegex.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, "\"'`“”«» ")
	return s
}
