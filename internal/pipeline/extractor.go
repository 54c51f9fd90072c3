package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"scene-prompt-server/internal/ai"
	"scene-prompt-server/internal/models"

	"go.uber.org/zap"
)

const maxDescriptorsPerCategory = 8

// Extractor извлекает визуальные элементы из текста сцены.
type Extractor struct {
	client ai.ModelClient
	retry  *retrier
	logger *zap.Logger
}

// Extract возвращает элементы сцены. degraded=true означает, что ответ модели не разобран
// и возвращен пустой набор; это не ошибка. Ошибка возвращается только при сбое вызова модели.
func (e *Extractor) Extract(ctx context.Context, text string, cfg models.ProjectConfig) (elements models.VisualElements, degraded bool, err error) {
	raw, err := e.retry.do(ctx, models.StageExtracting, cfg.Generation.RetryAttempts, func(ctx context.Context) (string, error) {
		return e.client.GenerateText(ctx, extractionInstruction, extractionInput(text, cfg))
	})
	if err != nil {
		return models.EmptyVisualElements(), false, fmt.Errorf("%w: %w", models.ErrExtractionFailed, err)
	}

	elements, ok := parseVisualElements(raw)
	if !ok {
		e.logger.Warn("Malformed extraction response, using empty visual elements",
			zap.Int("response_length", len(raw)),
		)
		return models.EmptyVisualElements(), true, nil
	}
	return elements, false, nil
}

// parseVisualElements разбирает ответ модели. Значение категории может быть массивом или строкой
// через запятую; неизвестные ключи игнорируются. ok=false, если JSON-объект не найден
// или в нем нет ни одной известной категории.
func parseVisualElements(raw string) (models.VisualElements, bool) {
	elements := models.EmptyVisualElements()

	js := extractJSON(raw)
	if js == "" {
		return elements, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(js), &obj); err != nil {
		return elements, false
	}

	byKey := make(map[string]json.RawMessage, len(obj))
	for k, v := range obj {
		byKey[strings.ToLower(strings.TrimSpace(k))] = v
	}

	recognized := false
	for _, c := range models.ElementCategories {
		v, ok := byKey[string(c)]
		if !ok {
			continue
		}
		recognized = true
		elements.Set(c, decodeDescriptors(v))
	}
	return elements, recognized
}

func decodeDescriptors(v json.RawMessage) []string {
	var values []string

	var list []interface{}
	if err := json.Unmarshal(v, &list); err == nil {
		for _, item := range list {
			if s, ok := item.(string); ok {
				values = append(values, s)
			}
		}
	} else {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			values = strings.Split(s, ",")
		}
	}

	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, s := range values {
		s = strings.Join(strings.Fields(s), " ")
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
		if len(out) == maxDescriptorsPerCategory {
			break
		}
	}
	return out
}
