package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"scene-prompt-server/internal/ai"
	"scene-prompt-server/internal/cache"
	"scene-prompt-server/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// callsPerScene - вызовы модели на сцену без повторов (извлечение и синтез).
const callsPerScene = 2

// WarningMalformedResponse добавляется в PromptResult.Warnings при деградации извлечения.
const WarningMalformedResponse = string(models.ErrCodeMalformedResponse)

// ResultObserver получает результат каждой сцены сразу после ее завершения.
// Вызовы сериализованы оркестратором.
type ResultObserver func(models.PromptResult)

// Orchestrator обрабатывает батч сцен пулом ограниченного размера.
type Orchestrator struct {
	client       ai.ModelClient
	extractor    *Extractor
	synthesizer  *Synthesizer
	validator    *SafetyValidator
	alternatives *AlternativeGenerator
	cache        cache.ExtractionCache
	modelName    string

	minConcurrency int
	maxConcurrency int

	metrics *Metrics
	logger  *zap.Logger
}

// poolSize = clamp(remaining/callsPerScene, min, max), но не больше числа сцен.
func (o *Orchestrator) poolSize(scenes int) int {
	size := o.client.GetRateLimitStatus().Remaining / callsPerScene
	if size < o.minConcurrency {
		size = o.minConcurrency
	}
	if size > o.maxConcurrency {
		size = o.maxConcurrency
	}
	if size > scenes {
		size = scenes
	}
	if size < 1 {
		size = 1
	}
	return size
}

// Run обрабатывает сцены и возвращает результаты в порядке входа.
// Ошибка сцены не прерывает соседние. При отмене ctx новые сцены не запускаются,
// незапущенные получают код CANCELLED, а вместе с результатами возвращается ErrBatchCancelled.
func (o *Orchestrator) Run(ctx context.Context, batchID string, scenes []models.SceneInput, cfg models.ProjectConfig, observer ResultObserver) ([]models.PromptResult, error) {
	log := o.logger.With(zap.String("batch_id", batchID))
	size := o.poolSize(len(scenes))
	o.metrics.poolSize.Set(float64(size))
	log.Info("Processing batch",
		zap.Int("scenes", len(scenes)),
		zap.Int("pool_size", size),
		zap.String("template", string(cfg.Template.Name)),
		zap.String("error_strategy", string(cfg.Safety.ErrorStrategy)),
	)

	results := make([]models.PromptResult, len(scenes))
	var observerMu sync.Mutex
	emit := func(r models.PromptResult) {
		if observer == nil {
			return
		}
		observerMu.Lock()
		defer observerMu.Unlock()
		observer(r)
	}

	sem := semaphore.NewWeighted(int64(size))
	var g errgroup.Group
	for i := range scenes {
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(scenes); j++ {
				results[j] = o.failedResult(scenes[j], fmt.Errorf("%w: scene was not started", models.ErrBatchCancelled))
				emit(results[j])
			}
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			results[i] = o.processScene(ctx, scenes[i], cfg, log)
			emit(results[i])
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		o.metrics.batches.WithLabelValues("cancelled").Inc()
		log.Warn("Batch cancelled", zap.Error(err))
		return results, fmt.Errorf("%w: %w", models.ErrBatchCancelled, err)
	}
	o.metrics.batches.WithLabelValues("completed").Inc()
	log.Info("Batch completed", zap.Int("scenes", len(results)))
	return results, nil
}

// processScene проводит сцену через все стадии. Никогда не паникует наружу и всегда
// возвращает результат.
func (o *Orchestrator) processScene(ctx context.Context, scene models.SceneInput, cfg models.ProjectConfig, batchLog *zap.Logger) (result models.PromptResult) {
	start := time.Now()
	log := batchLog.With(zap.String("scene_id", scene.ID), zap.Int("index", scene.Index))
	tracker := &stageTracker{stage: models.StagePending, since: start, metrics: o.metrics, logger: log}

	defer func() {
		tracker.enter(models.StageResolved)
		o.metrics.sceneDuration.Observe(time.Since(start).Seconds())
		o.metrics.scenes.WithLabelValues(string(result.SafetyStatus), strconv.FormatBool(result.Success)).Inc()
	}()

	if strings.TrimSpace(scene.Text) == "" {
		return o.failedResult(scene, fmt.Errorf("%w: scene text is empty", models.ErrExtractionFailed))
	}

	sceneCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Generation.TimeoutSeconds)*time.Second)
	defer cancel()

	result = models.PromptResult{
		SceneID:        scene.ID,
		Index:          scene.Index,
		OriginalText:   scene.Text,
		VisualElements: models.EmptyVisualElements(),
	}

	tracker.enter(models.StageExtracting)
	elements, degraded, err := o.extract(sceneCtx, scene.Text, cfg, log)
	if err != nil {
		return o.stageFailure(ctx, sceneCtx, result, err, log)
	}
	result.VisualElements = elements
	if degraded {
		o.metrics.degraded.Inc()
		result.Warnings = append(result.Warnings, WarningMalformedResponse)
	}

	tracker.enter(models.StageSynthesizing)
	base, err := o.synthesizer.Synthesize(sceneCtx, scene.Text, elements, cfg)
	if err != nil {
		return o.stageFailure(ctx, sceneCtx, result, err, log)
	}

	tracker.enter(models.StageTemplating)
	prompt := ApplyTemplate(base, cfg.Template.Name, cfg.AspectRatio)

	tracker.enter(models.StageValidating)
	eval := o.validator.Validate(prompt, cfg.Safety)
	for _, v := range eval.Violations {
		category, _, _ := strings.Cut(v, ":")
		o.metrics.violations.WithLabelValues(category).Inc()
	}
	resolution := ResolveSafety(prompt, eval, cfg.Safety.ErrorStrategy)
	if !eval.IsSafe() && cfg.Safety.ErrorStrategy == models.ErrorStrategyReplace {
		resolution = o.replace(sceneCtx, base, eval, cfg, resolution, log)
	}
	if !eval.IsSafe() {
		log.Info("Safety violations found",
			zap.Strings("violations", eval.Violations),
			zap.String("safety_status", string(resolution.Status)),
		)
	}

	result.VisualPrompt = resolution.Prompt
	result.SafetyStatus = resolution.Status
	result.Success = resolution.Success
	if resolution.Err != nil {
		msg := resolution.Err.Error()
		result.ErrorMessage = &msg
		result.ErrorCode = models.CodeOf(resolution.Err)
	}
	return result
}

// extract читает кэш, при промахе вызывает модель. В кэш попадают только неповрежденные ответы.
func (o *Orchestrator) extract(ctx context.Context, text string, cfg models.ProjectConfig, log *zap.Logger) (models.VisualElements, bool, error) {
	if o.cache == nil {
		return o.extractor.Extract(ctx, text, cfg)
	}

	key := cache.Key(o.modelName, instructionVersion, cfg.Voice.Language, text)
	if elements, ok, err := o.cache.Get(ctx, key); err != nil {
		o.metrics.cache.WithLabelValues("error").Inc()
		log.Warn("Extraction cache lookup failed", zap.Error(err))
	} else if ok {
		o.metrics.cache.WithLabelValues("hit").Inc()
		return elements, false, nil
	} else {
		o.metrics.cache.WithLabelValues("miss").Inc()
	}

	elements, degraded, err := o.extractor.Extract(ctx, text, cfg)
	if err != nil || degraded {
		return elements, degraded, err
	}
	if err := o.cache.Set(ctx, key, elements); err != nil {
		log.Warn("Failed to store extraction in cache", zap.Error(err))
	}
	return elements, false, nil
}

// replace подбирает первую предложенную замену, прошедшую проверку. Замена строится из базового
// промпта и проходит через шаблон, как исходный. Иначе остается маскирование.
func (o *Orchestrator) replace(ctx context.Context, base string, eval models.SafetyEvaluation, cfg models.ProjectConfig, masked Resolution, log *zap.Logger) Resolution {
	suggestions, err := o.alternatives.Generate(ctx, base, base, eval, cfg)
	if err != nil {
		log.Warn("Failed to generate replacement, falling back to mask", zap.Error(err))
		return masked
	}
	for _, s := range suggestions {
		candidate := ApplyTemplate(s, cfg.Template.Name, cfg.AspectRatio)
		if o.validator.Validate(candidate, cfg.Safety).IsSafe() {
			return Resolution{Status: models.SafetyStatusReplaced, Prompt: candidate, Success: true}
		}
	}
	log.Info("No safe replacement among suggestions, falling back to mask", zap.Int("suggestions", len(suggestions)))
	return masked
}

// stageFailure классифицирует ошибку стадии: истечение времени сцены дает TIMEOUT,
// отмена батча - CANCELLED.
func (o *Orchestrator) stageFailure(parent, sceneCtx context.Context, result models.PromptResult, err error, log *zap.Logger) models.PromptResult {
	switch {
	case parent.Err() != nil:
		err = fmt.Errorf("%w: %w", models.ErrBatchCancelled, err)
	case errors.Is(sceneCtx.Err(), context.DeadlineExceeded):
		err = fmt.Errorf("%w: %w", models.ErrTimeout, err)
	}
	log.Warn("Scene failed", zap.Error(err))

	msg := err.Error()
	result.VisualPrompt = ""
	result.SafetyStatus = models.SafetyStatusFailed
	result.Success = false
	result.ErrorMessage = &msg
	result.ErrorCode = models.CodeOf(err)
	return result
}

func (o *Orchestrator) failedResult(scene models.SceneInput, err error) models.PromptResult {
	msg := err.Error()
	return models.PromptResult{
		SceneID:        scene.ID,
		Index:          scene.Index,
		OriginalText:   scene.Text,
		VisualElements: models.EmptyVisualElements(),
		SafetyStatus:   models.SafetyStatusFailed,
		Success:        false,
		ErrorMessage:   &msg,
		ErrorCode:      models.CodeOf(err),
	}
}

// stageTracker фиксирует переходы между стадиями и их длительность.
type stageTracker struct {
	stage   models.SceneStage
	since   time.Time
	metrics *Metrics
	logger  *zap.Logger
}

func (t *stageTracker) enter(next models.SceneStage) {
	now := time.Now()
	if t.stage != models.StagePending && t.stage != models.StageResolved {
		t.metrics.stageDuration.WithLabelValues(string(t.stage)).Observe(now.Sub(t.since).Seconds())
	}
	t.logger.Debug("Scene stage transition", zap.String("from", string(t.stage)), zap.String("to", string(next)))
	t.stage = next
	t.since = now
}
