package pipeline

import (
	"testing"

	"scene-prompt-server/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain object", `{"a":1}`, `{"a":1}`},
		{"fenced block", "Sure!\n```json\n{\"a\": [1, 2]}\n```\nDone.", `{"a": [1, 2]}`},
		{"embedded in text", `Here it is: {"a":1} hope it helps`, `{"a":1}`},
		{"array", `result: ["x", "y"]`, `["x", "y"]`},
		{"truncated array in object", `{"subject": ["girl", "tree"`, `{"subject": ["girl", "tree"]}`},
		{"truncated string", `{"subject": ["gi`, `{"subject": ["gi"]}`},
		{"trailing comma", `{"subject": ["girl",`, `{"subject": ["girl"]}`},
		{"dangling key", `{"subject":`, ""},
		{"no json", "I cannot help with that.", ""},
		{"empty", "   ", ""},
		{"mismatched brackets", `{"a": [1}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.raw))
		})
	}
}

func TestParseVisualElements(t *testing.T) {
	t.Run("full response", func(t *testing.T) {
		raw := "```json\n" + `{"subject": ["young girl", "red umbrella"], "environment": ["city park"],
			"camera": ["wide shot"], "lighting": ["golden hour"], "mood": ["calm"]}` + "\n```"
		el, ok := parseVisualElements(raw)
		assert.True(t, ok)
		assert.Equal(t, []string{"young girl", "red umbrella"}, el.Subject)
		assert.Equal(t, []string{"city park"}, el.Environment)
		assert.Equal(t, []string{"wide shot"}, el.Camera)
		assert.Equal(t, []string{"golden hour"}, el.Lighting)
		assert.Equal(t, []string{"calm"}, el.Mood)
	})

	t.Run("partial and loosely typed", func(t *testing.T) {
		el, ok := parseVisualElements(`{"Subject": "old man, dog , old man", "mood": ["tense", 3, "  "], "extra": 1}`)
		assert.True(t, ok)
		assert.Equal(t, []string{"old man", "dog"}, el.Subject)
		assert.Equal(t, []string{"tense"}, el.Mood)
		assert.Equal(t, []string{}, el.Environment)
		assert.Equal(t, []string{}, el.Camera)
	})

	t.Run("truncated response keeps what was parsed", func(t *testing.T) {
		el, ok := parseVisualElements(`{"subject": ["knight"], "environment": ["castle ga`)
		assert.True(t, ok)
		assert.Equal(t, []string{"knight"}, el.Subject)
		assert.Equal(t, []string{"castle ga"}, el.Environment)
	})

	t.Run("caps descriptors per category", func(t *testing.T) {
		el, ok := parseVisualElements(`{"subject": ["a","b","c","d","e","f","g","h","i","j"]}`)
		assert.True(t, ok)
		assert.Len(t, el.Subject, maxDescriptorsPerCategory)
	})

	malformed := []string{
		"no json here",
		`["subject", "environment"]`,
		`{"characters": ["girl"]}`,
		"",
	}
	for _, raw := range malformed {
		el, ok := parseVisualElements(raw)
		assert.False(t, ok, "raw %q", raw)
		assert.Equal(t, models.EmptyVisualElements(), el)
	}
}

func TestCleanPrompt(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"A girl walks in a park.", "A girl walks in a park."},
		{`Prompt: "A girl walks in a park."`, "A girl walks in a park."},
		{"image prompt:   a lighthouse\n on a cliff  ", "a lighthouse on a cliff"},
		{"```\nA fox\nin the snow\n```", "A fox in the snow"},
		{"“A quiet harbor”", "A quiet harbor"},
		{"  \n ", ""},
		{`""`, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanPrompt(tt.raw), "raw %q", tt.raw)
	}
}

func TestParseSuggestions(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		max  int
		want []string
	}{
		{"json array", `["a calm duel of glances", "two knights bowing"]`, 3, []string{"a calm duel of glances", "two knights bowing"}},
		{"wrapped object", `{"suggestions": ["one", "two", "three", "four"]}`, 3, []string{"one", "two", "three"}},
		{"fenced array with duplicates", "```json\n[\"One\", \"one\", \"two\"]\n```", 3, []string{"One", "two"}},
		{"numbered list", "1. a bright meadow\n2) a calm river\n- a small boat\n", 5, []string{"a bright meadow", "a calm river", "a small boat"}},
		{"quoted list items", "1. \"a bright meadow\"\n", 5, []string{"a bright meadow"}},
		{"empty", "   ", 3, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSuggestions(tt.raw, tt.max))
		})
	}
}
