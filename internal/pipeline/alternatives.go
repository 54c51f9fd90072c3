package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"scene-prompt-server/internal/ai"
	"scene-prompt-server/internal/models"

	"go.uber.org/zap"
)

// DefaultMaxSuggestions - число вариантов замены, если не задано иное.
const DefaultMaxSuggestions = 3

var listMarkerRegex = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s*`)

// AlternativeGenerator предлагает безопасные переформулировки промпта.
// Предложения не перепроверяются валидатором.
type AlternativeGenerator struct {
	client ai.ModelClient
	retry  *retrier
	max    int
	logger *zap.Logger
}

// Generate возвращает от 1 до max вариантов в порядке, предложенном моделью.
func (g *AlternativeGenerator) Generate(ctx context.Context, original, edited string, eval models.SafetyEvaluation, cfg models.ProjectConfig) ([]string, error) {
	instruction := fmt.Sprintf(alternativesInstruction, g.max)
	raw, err := g.retry.do(ctx, models.StageValidating, cfg.Generation.RetryAttempts, func(ctx context.Context) (string, error) {
		return g.client.GenerateText(ctx, instruction, alternativesInput(original, edited, eval))
	})
	if err != nil {
		return nil, err
	}

	suggestions := parseSuggestions(raw, g.max)
	if len(suggestions) == 0 {
		g.logger.Warn("No suggestions parsed from model response", zap.Int("response_length", len(raw)))
		return nil, fmt.Errorf("%w: no suggestions", models.ErrMalformedResponse)
	}
	return suggestions, nil
}

// parseSuggestions принимает JSON-массив строк, объект {"suggestions": [...]} или нумерованный список.
func parseSuggestions(raw string, max int) []string {
	var candidates []string

	if js := extractJSON(raw); js != "" {
		var list []string
		var wrapped struct {
			Suggestions []string `json:"suggestions"`
		}
		if err := json.Unmarshal([]byte(js), &list); err == nil {
			candidates = list
		} else if err := json.Unmarshal([]byte(js), &wrapped); err == nil {
			candidates = wrapped.Suggestions
		}
	}
	if candidates == nil {
		for _, line := range strings.Split(raw, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "```") {
				continue
			}
			candidates = append(candidates, listMarkerRegex.ReplaceAllString(line, ""))
		}
	}

	out := make([]string, 0, max)
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		c = cleanPrompt(c)
		if c == "" {
			continue
		}
		key := strings.ToLower(c)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
		if len(out) == max {
			break
		}
	}
	return out
}
