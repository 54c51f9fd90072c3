package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"scene-prompt-server/internal/models"
)

// instructionVersion входит в ключ кэша извлечения; менять при правке extractionInstruction.
const instructionVersion = "v1"

const extractionInstruction = `You are a visual director preparing shots for an illustrator.
Read the scene (it may be written in any language) and extract its visual elements.
Respond ONLY with a JSON object of the form:
{"subject": [...], "environment": [...], "camera": [...], "lighting": [...], "mood": [...]}
Each value is an array of short English descriptors (1-5 words each, at most 5 per category).
Use an empty array when the scene says nothing about a category. Do not add commentary.`

const synthesisInstruction = `You write prompts for a text-to-image model.
Using the scene and its extracted visual elements, write ONE English prompt: a single
descriptive sentence or comma-separated phrase, at most 60 words, describing what is visible.
Do not mention style, art medium or aspect ratio. No quotes, no lists, no explanations.`

const alternativesInstruction = `You help users fix image prompts rejected by a content policy.
Rewrite the edited prompt so that it keeps the user's intent but avoids every flagged term
and anything similar to it. Respond ONLY with a JSON array of %d distinct English prompt strings.`

// extractionInput формирует сообщение пользователя для извлечения элементов.
func extractionInput(text string, cfg models.ProjectConfig) string {
	var sb strings.Builder
	if lang := strings.TrimSpace(cfg.Voice.Language); lang != "" {
		fmt.Fprintf(&sb, "Scene language: %s\n", lang)
	}
	sb.WriteString("Scene:\n")
	sb.WriteString(strings.TrimSpace(text))
	return sb.String()
}

// synthesisInput встраивает извлеченные категории в сообщение для синтеза.
func synthesisInput(text string, el models.VisualElements) string {
	var sb strings.Builder
	sb.WriteString("Scene:\n")
	sb.WriteString(strings.TrimSpace(text))
	sb.WriteString("\n\nVisual elements:\n")
	for _, c := range models.ElementCategories {
		values := el.Get(c)
		if len(values) == 0 {
			fmt.Fprintf(&sb, "- %s: (none)\n", c)
			continue
		}
		fmt.Fprintf(&sb, "- %s: %s\n", c, strings.Join(values, ", "))
	}
	return sb.String()
}

// alternativesInput передает исходный и отредактированный промпты вместе с нарушениями.
func alternativesInput(original, edited string, eval models.SafetyEvaluation) string {
	flagged := make([]string, 0, len(eval.Violations))
	for _, v := range eval.Violations {
		if i := strings.IndexByte(v, ':'); i >= 0 {
			v = v[i+1:]
		}
		flagged = append(flagged, v)
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"original_prompt": original,
		"edited_prompt":   edited,
		"flagged_terms":   flagged,
	})
	return string(payload)
}
