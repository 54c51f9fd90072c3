package pipeline

import (
	"strings"
	"testing"

	"scene-prompt-server/internal/config"
	"scene-prompt-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func standardSafety(blocked ...string) models.SafetyConfig {
	return models.SafetyConfig{
		ContentPolicy: models.ContentPolicyStandard,
		BlockedWords:  blocked,
		ErrorStrategy: models.ErrorStrategyMask,
		AdultContent:  models.AdultContentBlock,
	}
}

func TestSafetyValidator_Validate(t *testing.T) {
	v := NewSafetyValidator(config.Lexicons{})

	strict := standardSafety()
	strict.ContentPolicy = models.ContentPolicyStrict

	adultAllowed := standardSafety()
	adultAllowed.AdultContent = models.AdultContentAllow

	violence := standardSafety()
	violence.ViolenceFilter = true

	tests := []struct {
		name           string
		prompt         string
		cfg            models.SafetyConfig
		wantViolations []string
		wantFiltered   string
	}{
		{
			name:           "safe prompt",
			prompt:         "a girl walks in a park",
			cfg:            standardSafety("dragon"),
			wantViolations: []string{},
		},
		{
			name:           "blocked word is case-insensitive",
			prompt:         "VIOLENCE everywhere",
			cfg:            standardSafety("Violence"),
			wantViolations: []string{"blocked_word:violence"},
			wantFiltered:   "*** everywhere",
		},
		{
			name:           "blocked word matches as substring",
			prompt:         "a dragonfly over the pond",
			cfg:            standardSafety("dragon"),
			wantViolations: []string{"blocked_word:dragon"},
			wantFiltered:   "a ***fly over the pond",
		},
		{
			name:           "strict lexicon only under strict policy",
			prompt:         "a cocaine deal in an alley",
			cfg:            standardSafety(),
			wantViolations: []string{},
		},
		{
			name:           "strict lexicon under strict policy",
			prompt:         "a cocaine deal in an alley",
			cfg:            strict,
			wantViolations: []string{"strict_policy:cocaine"},
			wantFiltered:   "a *** deal in an alley",
		},
		{
			name:           "adult content blocked by default",
			prompt:         "a nude marble statue",
			cfg:            standardSafety(),
			wantViolations: []string{"adult_content:nude"},
			wantFiltered:   "a *** marble statue",
		},
		{
			name:           "adult content allowed",
			prompt:         "a nude marble statue",
			cfg:            adultAllowed,
			wantViolations: []string{},
		},
		{
			name:           "violence filter matches word start",
			prompt:         "a killing in the square",
			cfg:            violence,
			wantViolations: []string{"violence:kill"},
			wantFiltered:   "a *** in the square",
		},
		{
			name:           "violence filter ignores inner matches",
			prompt:         "a skillful juggler",
			cfg:            violence,
			wantViolations: []string{},
		},
		{
			name:           "violence lexicon off without filter",
			prompt:         "a killing in the square",
			cfg:            standardSafety(),
			wantViolations: []string{},
		},
		{
			name:           "categories ordered, terms by position",
			prompt:         "blood and a dragon and a gun",
			cfg:            func() models.SafetyConfig { c := violence; c.BlockedWords = []string{"dragon"}; return c }(),
			wantViolations: []string{"blocked_word:dragon", "violence:blood", "violence:gun"},
			wantFiltered:   "*** and a *** and a ***",
		},
		{
			name:           "duplicates reported once",
			prompt:         "dragon, dragon, DRAGON",
			cfg:            standardSafety("dragon", "DRAGON "),
			wantViolations: []string{"blocked_word:dragon"},
			wantFiltered:   "***, ***, ***",
		},
		{
			name:           "overlapping spans merge into one placeholder",
			prompt:         "the darkness falls",
			cfg:            standardSafety("dark", "darkness"),
			wantViolations: []string{"blocked_word:dark", "blocked_word:darkness"},
			wantFiltered:   "the *** falls",
		},
		{
			name:           "blocked word with dotted capital I",
			prompt:         "a view of İzmir harbor",
			cfg:            standardSafety("İzmir"),
			wantViolations: []string{"blocked_word:" + strings.ToLower("İzmir")},
			wantFiltered:   "a view of *** harbor",
		},
		{
			name:           "single dotted capital I",
			prompt:         "İ",
			cfg:            standardSafety("İ"),
			wantViolations: []string{"blocked_word:" + strings.ToLower("İ")},
			wantFiltered:   "***",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := v.Validate(tt.prompt, tt.cfg)
			assert.Equal(t, tt.wantViolations, eval.Violations)
			if len(tt.wantViolations) == 0 {
				assert.True(t, eval.IsSafe())
				assert.Nil(t, eval.FilteredPrompt)
				return
			}
			require.NotNil(t, eval.FilteredPrompt)
			assert.Equal(t, tt.wantFiltered, *eval.FilteredPrompt)
		})
	}
}

func TestSafetyValidator_Idempotent(t *testing.T) {
	v := NewSafetyValidator(config.Lexicons{})
	cfg := standardSafety("dragon", "castle")
	cfg.ContentPolicy = models.ContentPolicyStrict
	cfg.ViolenceFilter = true

	prompts := []string{
		"",
		"a calm lake",
		"a dragon burns the Castle with blood",
		"Dragons, DRAGONS and a knife",
		"drugs near the castle gate",
	}
	for _, p := range prompts {
		first := v.Validate(p, cfg)
		second := v.Validate(p, cfg)
		assert.Equal(t, first, second, "prompt %q", p)
	}
}

func TestSafetyValidator_MaskRemovesBlockedWords(t *testing.T) {
	v := NewSafetyValidator(config.Lexicons{})
	words := []string{"dragon", "Red", "ra"}
	cfg := standardSafety(words...)

	prompts := []string{
		"a red dragon",
		"dradragongon rises",
		"RED RAGE over a dragon's lair",
		"the rare radiant drake",
	}
	for _, p := range prompts {
		eval := v.Validate(p, cfg)
		require.NotNil(t, eval.FilteredPrompt, "prompt %q", p)
		lower := strings.ToLower(*eval.FilteredPrompt)
		for _, w := range words {
			assert.NotContains(t, lower, strings.ToLower(w), "prompt %q filtered to %q", p, *eval.FilteredPrompt)
		}
	}
}

func TestSafetyValidator_CustomLexicons(t *testing.T) {
	v := NewSafetyValidator(config.Lexicons{Violence: []string{"duel"}})
	cfg := standardSafety()
	cfg.ViolenceFilter = true

	assert.Equal(t, []string{"violence:duel"}, v.Validate("a duel at dawn", cfg).Violations)
	assert.True(t, v.Validate("blood on the snow", cfg).IsSafe(), "custom lexicon replaces the default one")
}
