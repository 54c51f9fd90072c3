package models

import (
	"fmt"
	"strings"
)

// AspectRatio - соотношение сторон итогового изображения.
type AspectRatio string

const (
	AspectRatioPortrait  AspectRatio = "9:16"
	AspectRatioLandscape AspectRatio = "16:9"
	AspectRatioSquare    AspectRatio = "1:1"
)

// IsValid проверяет, что соотношение сторон поддерживается.
func (a AspectRatio) IsValid() bool {
	switch a {
	case AspectRatioPortrait, AspectRatioLandscape, AspectRatioSquare:
		return true
	}
	return false
}

// TemplateName - имя стилевого шаблона.
type TemplateName string

const (
	TemplateClassic TemplateName = "classic"
	TemplateDark    TemplateName = "dark"
	TemplateVivid   TemplateName = "vivid"
)

// ContentPolicy - строгость политики контента.
type ContentPolicy string

const (
	ContentPolicyStrict   ContentPolicy = "strict"
	ContentPolicyStandard ContentPolicy = "standard"
)

// ErrorStrategy - способ обработки нарушения политики безопасности.
type ErrorStrategy string

const (
	ErrorStrategySkip    ErrorStrategy = "skip"
	ErrorStrategyMask    ErrorStrategy = "mask"
	ErrorStrategyFail    ErrorStrategy = "fail"
	ErrorStrategyReplace ErrorStrategy = "replace"
)

// AdultContent - политика для контента для взрослых.
type AdultContent string

const (
	AdultContentBlock AdultContent = "block"
	AdultContentAllow AdultContent = "allow"
)

// TemplateConfig - настройки шаблона проекта.
type TemplateConfig struct {
	Name               TemplateName `json:"name" yaml:"name" env:"TEMPLATE_NAME" env-default:"classic"`
	Transitions        string       `json:"transitions,omitempty" yaml:"transitions"`
	TransitionDuration float64      `json:"transition_duration,omitempty" yaml:"transition_duration"`
	BackgroundMusic    string       `json:"background_music,omitempty" yaml:"background_music"`
	BGMVolume          float64      `json:"bgm_volume,omitempty" yaml:"bgm_volume"`
}

// VoiceConfig передается насквозь, конвейером не используется.
type VoiceConfig struct {
	Type     string  `json:"type,omitempty" yaml:"type"`
	Speed    float64 `json:"speed,omitempty" yaml:"speed"`
	Language string  `json:"language,omitempty" yaml:"language"`
	Accent   string  `json:"accent,omitempty" yaml:"accent"`
}

// GenerationConfig - параметры генерации.
type GenerationConfig struct {
	ImagesPerScene int    `json:"images_per_scene,omitempty" yaml:"images_per_scene"`
	ImageQuality   string `json:"image_quality,omitempty" yaml:"image_quality"`
	RetryAttempts  int    `json:"retry_attempts" yaml:"retry_attempts" env:"GENERATION_RETRY_ATTEMPTS" env-default:"2"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds" env:"GENERATION_TIMEOUT_SECONDS" env-default:"60"`
	SmartCrop      bool   `json:"smart_crop,omitempty" yaml:"smart_crop"`
}

// SafetyConfig - политика безопасности проекта.
type SafetyConfig struct {
	ContentPolicy  ContentPolicy `json:"content_policy" yaml:"content_policy" env:"SAFETY_CONTENT_POLICY" env-default:"standard"`
	BlockedWords   []string      `json:"blocked_words" yaml:"blocked_words" env:"SAFETY_BLOCKED_WORDS" env-separator:","`
	ErrorStrategy  ErrorStrategy `json:"error_strategy" yaml:"error_strategy" env:"SAFETY_ERROR_STRATEGY" env-default:"mask"`
	AdultContent   AdultContent  `json:"adult_content" yaml:"adult_content" env:"SAFETY_ADULT_CONTENT" env-default:"block"`
	ViolenceFilter bool          `json:"violence_filter" yaml:"violence_filter" env:"SAFETY_VIOLENCE_FILTER" env-default:"false"`
}

// SafetyOverride - переопределение политики безопасности на уровне запроса.
// nil-поля не меняют значения проекта.
type SafetyOverride struct {
	ContentPolicy  *ContentPolicy `json:"content_policy,omitempty"`
	BlockedWords   []string       `json:"blocked_words,omitempty"`
	ErrorStrategy  *ErrorStrategy `json:"error_strategy,omitempty"`
	AdultContent   *AdultContent  `json:"adult_content,omitempty"`
	ViolenceFilter *bool          `json:"violence_filter,omitempty"`
}

// ProjectConfig - снимок конфигурации проекта, передаваемый в батч.
type ProjectConfig struct {
	AspectRatio AspectRatio      `json:"aspect_ratio" yaml:"aspect_ratio" env:"PROJECT_ASPECT_RATIO" env-default:"16:9"`
	Template    TemplateConfig   `json:"template" yaml:"template"`
	Voice       VoiceConfig      `json:"voice" yaml:"voice"`
	Generation  GenerationConfig `json:"generation" yaml:"generation"`
	Safety      SafetyConfig     `json:"safety" yaml:"safety"`
}

// Apply накладывает переопределение поле за полем и возвращает новую политику.
func (s SafetyConfig) Apply(o *SafetyOverride) SafetyConfig {
	if o == nil {
		return s
	}
	if o.ContentPolicy != nil {
		s.ContentPolicy = *o.ContentPolicy
	}
	if o.BlockedWords != nil {
		s.BlockedWords = append([]string(nil), o.BlockedWords...)
	}
	if o.ErrorStrategy != nil {
		s.ErrorStrategy = *o.ErrorStrategy
	}
	if o.AdultContent != nil {
		s.AdultContent = *o.AdultContent
	}
	if o.ViolenceFilter != nil {
		s.ViolenceFilter = *o.ViolenceFilter
	}
	return s
}

// WithDefaults заполняет незаданные поля значениями по умолчанию.
// Булевы флаги и списки запроса берутся как есть.
func (c ProjectConfig) WithDefaults(def ProjectConfig) ProjectConfig {
	if c.AspectRatio == "" {
		c.AspectRatio = def.AspectRatio
	}
	if c.Template.Name == "" {
		c.Template.Name = def.Template.Name
	}
	if c.Generation.RetryAttempts == 0 {
		c.Generation.RetryAttempts = def.Generation.RetryAttempts
	}
	if c.Generation.TimeoutSeconds == 0 {
		c.Generation.TimeoutSeconds = def.Generation.TimeoutSeconds
	}
	if c.Generation.ImagesPerScene == 0 {
		c.Generation.ImagesPerScene = def.Generation.ImagesPerScene
	}
	if c.Safety.ContentPolicy == "" {
		c.Safety.ContentPolicy = def.Safety.ContentPolicy
	}
	if c.Safety.ErrorStrategy == "" {
		c.Safety.ErrorStrategy = def.Safety.ErrorStrategy
	}
	if c.Safety.AdultContent == "" {
		c.Safety.AdultContent = def.Safety.AdultContent
	}
	if c.Safety.BlockedWords == nil {
		c.Safety.BlockedWords = append([]string(nil), def.Safety.BlockedWords...)
	}
	return c
}

// MaxTimeoutSeconds - верхняя граница таймаута сцены.
const MaxTimeoutSeconds = 3600

// Validate проверяет конфигурацию после слияния.
// Неизвестное имя шаблона не считается ошибкой: применяется classic.
func (c ProjectConfig) Validate() error {
	if !c.AspectRatio.IsValid() {
		return fmt.Errorf("%w: unsupported aspect_ratio '%s'", ErrInvalidInput, c.AspectRatio)
	}
	switch c.Safety.ContentPolicy {
	case ContentPolicyStrict, ContentPolicyStandard:
	default:
		return fmt.Errorf("%w: unsupported content_policy '%s'", ErrInvalidInput, c.Safety.ContentPolicy)
	}
	switch c.Safety.ErrorStrategy {
	case ErrorStrategySkip, ErrorStrategyMask, ErrorStrategyFail, ErrorStrategyReplace:
	default:
		return fmt.Errorf("%w: unsupported error_strategy '%s'", ErrInvalidInput, c.Safety.ErrorStrategy)
	}
	if c.Generation.RetryAttempts < 0 {
		return fmt.Errorf("%w: retry_attempts must be >= 0", ErrInvalidInput)
	}
	if c.Generation.TimeoutSeconds <= 0 || c.Generation.TimeoutSeconds > MaxTimeoutSeconds {
		return fmt.Errorf("%w: timeout_seconds must be in 1..%d", ErrInvalidInput, MaxTimeoutSeconds)
	}
	return nil
}

// BlockedTerm - запрещенное слово. Key в нижнем регистре идет в отчет о нарушениях,
// Word в исходном написании используется для поиска.
type BlockedTerm struct {
	Key  string
	Word string
}

// BlockedTerms возвращает непустые запрещенные слова без дубликатов (без учета регистра).
func (s SafetyConfig) BlockedTerms() []BlockedTerm {
	seen := make(map[string]struct{}, len(s.BlockedWords))
	out := make([]BlockedTerm, 0, len(s.BlockedWords))
	for _, w := range s.BlockedWords {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		key := strings.ToLower(w)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, BlockedTerm{Key: key, Word: w})
	}
	return out
}
