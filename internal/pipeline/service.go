package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"scene-prompt-server/internal/ai"
	"scene-prompt-server/internal/cache"
	"scene-prompt-server/internal/config"
	"scene-prompt-server/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options - параметры конвейера уровня процесса.
type Options struct {
	ModelName        string
	MinConcurrency   int
	MaxConcurrency   int
	RetryBaseDelay   time.Duration
	MaxSuggestions   int
	PreviewMaxLength int
}

// OptionsFromConfig берет параметры конвейера из конфигурации процесса.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ModelName:        cfg.AIModel,
		MinConcurrency:   cfg.MinConcurrency,
		MaxConcurrency:   cfg.MaxConcurrency,
		RetryBaseDelay:   cfg.RetryBaseDelay,
		MaxSuggestions:   cfg.MaxSuggestions,
		PreviewMaxLength: cfg.PreviewMaxLength,
	}
}

// ModelStatus - состояние модели для клиентов API.
type ModelStatus struct {
	Available bool      `json:"available"`
	Remaining int       `json:"remaining"`
	ResetTime time.Time `json:"reset_time"`
}

// Service - точка входа конвейера генерации промптов.
type Service struct {
	orchestrator *Orchestrator
	validator    *SafetyValidator
	alternatives *AlternativeGenerator
	client       ai.ModelClient
	defaults     models.ProjectConfig
	previewMax   int
	logger       *zap.Logger
}

// NewService собирает конвейер. extractionCache может быть nil.
func NewService(client ai.ModelClient, extractionCache cache.ExtractionCache, policy *config.Policy, opts Options, metrics *Metrics, logger *zap.Logger) *Service {
	logger = logger.Named("PromptPipeline")
	if opts.MinConcurrency < 1 {
		opts.MinConcurrency = 1
	}
	if opts.MaxConcurrency < opts.MinConcurrency {
		opts.MaxConcurrency = opts.MinConcurrency
	}
	if opts.MaxSuggestions < 1 {
		opts.MaxSuggestions = DefaultMaxSuggestions
	}
	if opts.PreviewMaxLength <= 0 {
		opts.PreviewMaxLength = DefaultPreviewLength
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = time.Second
	}

	retry := &retrier{baseDelay: opts.RetryBaseDelay, metrics: metrics, logger: logger}
	validator := NewSafetyValidator(policy.Lexicons)
	alternatives := &AlternativeGenerator{
		client: client,
		retry:  retry,
		max:    opts.MaxSuggestions,
		logger: logger.Named("Alternatives"),
	}

	return &Service{
		orchestrator: &Orchestrator{
			client:         client,
			extractor:      &Extractor{client: client, retry: retry, logger: logger.Named("Extractor")},
			synthesizer:    &Synthesizer{client: client, retry: retry, logger: logger.Named("Synthesizer")},
			validator:      validator,
			alternatives:   alternatives,
			cache:          extractionCache,
			modelName:      opts.ModelName,
			minConcurrency: opts.MinConcurrency,
			maxConcurrency: opts.MaxConcurrency,
			metrics:        metrics,
			logger:         logger.Named("Orchestrator"),
		},
		validator:    validator,
		alternatives: alternatives,
		client:       client,
		defaults:     policy.Defaults,
		previewMax:   opts.PreviewMaxLength,
		logger:       logger,
	}
}

type batchOptions struct {
	batchID  string
	observer ResultObserver
	override *models.SafetyOverride
}

// BatchOption настраивает один вызов GenerateScenePrompts.
type BatchOption func(*batchOptions)

// WithBatchID задает идентификатор батча (иначе генерируется UUID).
func WithBatchID(id string) BatchOption {
	return func(o *batchOptions) { o.batchID = id }
}

// WithResultObserver подписывает observer на результаты сцен по мере готовности.
func WithResultObserver(observer ResultObserver) BatchOption {
	return func(o *batchOptions) { o.observer = observer }
}

// WithSafetyOverride накладывает политику запроса поверх политики проекта.
func WithSafetyOverride(override *models.SafetyOverride) BatchOption {
	return func(o *batchOptions) { o.override = override }
}

// ResolveConfig дополняет конфигурацию проекта значениями по умолчанию, применяет
// переопределение безопасности и проверяет результат.
func (s *Service) ResolveConfig(cfg models.ProjectConfig, override *models.SafetyOverride) (models.ProjectConfig, error) {
	cfg = cfg.WithDefaults(s.defaults)
	cfg.Safety = cfg.Safety.Apply(override)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// GenerateScenePrompts строит промпты для всех сцен. Результатов всегда столько же, сколько сцен,
// в том же порядке. Ошибка без результатов возвращается только для некорректного запроса;
// при отмене ctx возвращаются и результаты, и ErrBatchCancelled.
func (s *Service) GenerateScenePrompts(ctx context.Context, scenes []models.SceneInput, cfg models.ProjectConfig, opts ...BatchOption) ([]models.PromptResult, error) {
	var o batchOptions
	for _, opt := range opts {
		opt(&o)
	}

	if len(scenes) == 0 {
		return nil, fmt.Errorf("%w: scene list is empty", models.ErrInvalidInput)
	}
	for i, sc := range scenes {
		if sc.Index < 0 {
			return nil, fmt.Errorf("%w: scene %d has negative index", models.ErrInvalidInput, i)
		}
	}
	cfg, err := s.ResolveConfig(cfg, o.override)
	if err != nil {
		return nil, err
	}
	if o.batchID == "" {
		o.batchID = uuid.NewString()
	}

	return s.orchestrator.Run(ctx, o.batchID, scenes, cfg, o.observer)
}

// GeneratePromptPreview возвращает короткое однострочное превью промпта.
func (s *Service) GeneratePromptPreview(prompt string) string {
	return Preview(prompt, s.previewMax)
}

// ValidateAndEditPrompt проверяет отредактированный пользователем промпт. Для небезопасного
// промпта всегда возвращается хотя бы одно предложение: при сбое генератора им становится
// замаскированный промпт.
func (s *Service) ValidateAndEditPrompt(ctx context.Context, original, edited string, cfg models.ProjectConfig) (models.ValidationResult, error) {
	if strings.TrimSpace(edited) == "" {
		return models.ValidationResult{}, fmt.Errorf("%w: edited prompt is empty", models.ErrInvalidInput)
	}
	cfg, err := s.ResolveConfig(cfg, nil)
	if err != nil {
		return models.ValidationResult{}, err
	}

	eval := s.validator.Validate(edited, cfg.Safety)
	resolution := ResolveSafety(edited, eval, cfg.Safety.ErrorStrategy)
	result := models.ValidationResult{
		IsValid:        eval.IsSafe(),
		SafetyResult:   eval,
		SafetyStatus:   resolution.Status,
		ResolvedPrompt: resolution.Prompt,
		Suggestions:    []string{},
	}
	if result.IsValid {
		return result, nil
	}

	suggestions, err := s.alternatives.Generate(ctx, original, edited, eval, cfg)
	if err != nil || len(suggestions) == 0 {
		s.logger.Warn("Alternative generation failed, suggesting masked prompt", zap.Error(err))
		masked := edited
		if eval.FilteredPrompt != nil {
			masked = *eval.FilteredPrompt
		}
		suggestions = []string{masked}
	}
	result.Suggestions = suggestions
	return result, nil
}

// ModelStatus сообщает доступность модели и остаток лимита запросов.
func (s *Service) ModelStatus(ctx context.Context) ModelStatus {
	rl := s.client.GetRateLimitStatus()
	return ModelStatus{
		Available: s.client.CheckAvailability(ctx),
		Remaining: rl.Remaining,
		ResetTime: rl.ResetTime,
	}
}
