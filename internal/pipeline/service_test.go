package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"scene-prompt-server/internal/ai"
	"scene-prompt-server/internal/cache"
	"scene-prompt-server/internal/config"
	"scene-prompt-server/internal/mocks"
	"scene-prompt-server/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const extractionJSON = `{"subject": ["girl"], "environment": ["park"], "camera": ["wide shot"], "lighting": ["daylight"], "mood": ["calm"]}`

func defaultProjectConfig() models.ProjectConfig {
	return models.ProjectConfig{
		AspectRatio: models.AspectRatioLandscape,
		Template:    models.TemplateConfig{Name: models.TemplateClassic},
		Generation:  models.GenerationConfig{RetryAttempts: 2, TimeoutSeconds: 5},
		Safety: models.SafetyConfig{
			ContentPolicy: models.ContentPolicyStandard,
			ErrorStrategy: models.ErrorStrategyMask,
			AdultContent:  models.AdultContentBlock,
		},
	}
}

func newTestService(t *testing.T, client *mocks.MockModelClient, extractionCache cache.ExtractionCache) (*Service, *Metrics) {
	t.Helper()
	metrics := NewMetrics(prometheus.NewRegistry())
	policy := &config.Policy{Defaults: defaultProjectConfig()}
	opts := Options{
		ModelName:      "test-model",
		MinConcurrency: 1,
		MaxConcurrency: 4,
		RetryBaseDelay: time.Millisecond,
		MaxSuggestions: 3,
	}
	return NewService(client, extractionCache, policy, opts, metrics, zap.NewNop()), metrics
}

func newClient(t *testing.T) *mocks.MockModelClient {
	client := mocks.NewMockModelClient(t)
	client.On("GetRateLimitStatus").Return(ai.RateLimitStatus{Remaining: 100, ResetTime: time.Now()}).Maybe()
	return client
}

func containing(sub string) interface{} {
	return mock.MatchedBy(func(s string) bool { return strings.Contains(s, sub) })
}

func onExtract(client *mocks.MockModelClient, text string) *mock.Call {
	return client.On("GenerateText", mock.Anything, extractionInstruction, containing(text))
}

func onSynthesize(client *mocks.MockModelClient, text string) *mock.Call {
	return client.On("GenerateText", mock.Anything, synthesisInstruction, containing(text))
}

func scenes(texts ...string) []models.SceneInput {
	out := make([]models.SceneInput, len(texts))
	for i, text := range texts {
		out[i] = models.SceneInput{ID: fmt.Sprintf("s%d", i+1), Index: i, Text: text}
	}
	return out
}

func TestGenerateScenePrompts_SingleSafeScene(t *testing.T) {
	client := newClient(t)
	svc, metrics := newTestService(t, client, nil)

	onExtract(client, "a girl walks in a park").Return(extractionJSON, nil).Once()
	onSynthesize(client, "a girl walks in a park").Return("A young girl strolling through a sunny park", nil).Once()

	cfg := defaultProjectConfig()
	cfg.Safety.ErrorStrategy = models.ErrorStrategySkip
	cfg.Safety.BlockedWords = []string{}

	results, err := svc.GenerateScenePrompts(context.Background(), []models.SceneInput{{ID: "s1", Index: 0, Text: "a girl walks in a park"}}, cfg)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "s1", r.SceneID)
	assert.Equal(t, models.SafetyStatusSafe, r.SafetyStatus)
	assert.True(t, r.Success)
	assert.NotEmpty(t, r.VisualPrompt)
	assert.True(t, strings.HasPrefix(r.VisualPrompt, "A young girl strolling through a sunny park, "))
	assert.Contains(t, r.VisualPrompt, "classic illustration style")
	assert.Equal(t, []string{"girl"}, r.VisualElements.Subject)
	assert.Nil(t, r.ErrorMessage)
	assert.Empty(t, r.Warnings)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.scenes.WithLabelValues("safe", "true")))
	client.AssertExpectations(t)
}

func TestGenerateScenePrompts_InvalidInput(t *testing.T) {
	client := newClient(t)
	svc, _ := newTestService(t, client, nil)

	_, err := svc.GenerateScenePrompts(context.Background(), nil, defaultProjectConfig())
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	bad := defaultProjectConfig()
	bad.AspectRatio = "4:3"
	_, err = svc.GenerateScenePrompts(context.Background(), scenes("a scene"), bad)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.GenerateScenePrompts(context.Background(), []models.SceneInput{{ID: "x", Index: -1, Text: "a"}}, defaultProjectConfig())
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	client.AssertNotCalled(t, "GenerateText", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateScenePrompts_PreservesInputOrder(t *testing.T) {
	client := newClient(t)
	svc, _ := newTestService(t, client, nil)

	texts := []string{"scene zero", "scene one", "scene two", "scene three", "scene four"}
	for i, text := range texts {
		delay := time.Duration(len(texts)-i) * 10 * time.Millisecond
		onExtract(client, text).After(delay).Return(extractionJSON, nil).Once()
		onSynthesize(client, text).Return("prompt for "+text, nil).Once()
	}

	var mu sync.Mutex
	var observed []string
	results, err := svc.GenerateScenePrompts(context.Background(), scenes(texts...), defaultProjectConfig(),
		WithResultObserver(func(r models.PromptResult) {
			mu.Lock()
			defer mu.Unlock()
			observed = append(observed, r.SceneID)
		}),
	)
	require.NoError(t, err)
	require.Len(t, results, len(texts))
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, fmt.Sprintf("s%d", i+1), r.SceneID)
		assert.True(t, strings.HasPrefix(r.VisualPrompt, "prompt for "+texts[i]), r.VisualPrompt)
	}
	assert.ElementsMatch(t, []string{"s1", "s2", "s3", "s4", "s5"}, observed)
}

func TestGenerateScenePrompts_SceneTimeoutIsIsolated(t *testing.T) {
	client := newClient(t)
	svc, _ := newTestService(t, client, nil)

	onExtract(client, "slow scene").Return(
		func(ctx context.Context, _, _ string) string {
			<-ctx.Done()
			return ""
		},
		func(ctx context.Context, _, _ string) error { return ctx.Err() },
	).Once()
	for _, text := range []string{"first scene", "third scene"} {
		onExtract(client, text).Return(extractionJSON, nil).Once()
		onSynthesize(client, text).Return("prompt for "+text, nil).Once()
	}

	cfg := defaultProjectConfig()
	cfg.Generation.TimeoutSeconds = 1

	results, err := svc.GenerateScenePrompts(context.Background(), scenes("first scene", "slow scene", "third scene"), cfg)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].Success)
	assert.True(t, results[2].Success)

	slow := results[1]
	assert.False(t, slow.Success)
	assert.Equal(t, models.SafetyStatusFailed, slow.SafetyStatus)
	assert.Equal(t, models.ErrCodeTimeout, slow.ErrorCode)
	require.NotNil(t, slow.ErrorMessage)
	assert.Empty(t, slow.VisualPrompt)
}

func TestGenerateScenePrompts_SafetyStrategies(t *testing.T) {
	texts := []string{"a knight rides", "a dragon attacks", "a village sleeps"}

	setup := func(t *testing.T) (*Service, *mocks.MockModelClient) {
		client := newClient(t)
		svc, _ := newTestService(t, client, nil)
		for _, text := range texts {
			onExtract(client, text).Return(extractionJSON, nil).Once()
			onSynthesize(client, text).Return("picture of "+text, nil).Once()
		}
		return svc, client
	}
	cfgWith := func(strategy models.ErrorStrategy) models.ProjectConfig {
		cfg := defaultProjectConfig()
		cfg.Safety.BlockedWords = []string{"Dragon"}
		cfg.Safety.ErrorStrategy = strategy
		return cfg
	}
	assertSiblings := func(t *testing.T, results []models.PromptResult) {
		require.Len(t, results, 3)
		for _, i := range []int{0, 2} {
			assert.True(t, results[i].Success)
			assert.Equal(t, models.SafetyStatusSafe, results[i].SafetyStatus)
		}
	}

	t.Run("mask", func(t *testing.T) {
		svc, _ := setup(t)
		results, err := svc.GenerateScenePrompts(context.Background(), scenes(texts...), cfgWith(models.ErrorStrategyMask))
		require.NoError(t, err)
		assertSiblings(t, results)
		assert.True(t, results[1].Success)
		assert.Equal(t, models.SafetyStatusFiltered, results[1].SafetyStatus)
		assert.NotContains(t, strings.ToLower(results[1].VisualPrompt), "dragon")
		assert.Contains(t, results[1].VisualPrompt, MaskPlaceholder)
	})

	t.Run("skip", func(t *testing.T) {
		svc, _ := setup(t)
		results, err := svc.GenerateScenePrompts(context.Background(), scenes(texts...), cfgWith(models.ErrorStrategySkip))
		require.NoError(t, err)
		assertSiblings(t, results)
		assert.False(t, results[1].Success)
		assert.Equal(t, models.SafetyStatusSkipped, results[1].SafetyStatus)
		assert.Empty(t, results[1].VisualPrompt)
	})

	t.Run("fail", func(t *testing.T) {
		svc, _ := setup(t)
		results, err := svc.GenerateScenePrompts(context.Background(), scenes(texts...), cfgWith(models.ErrorStrategyFail))
		require.NoError(t, err)
		assertSiblings(t, results)
		assert.False(t, results[1].Success)
		assert.Equal(t, models.SafetyStatusFailed, results[1].SafetyStatus)
		assert.Equal(t, models.ErrCodeSafetyViolation, results[1].ErrorCode)
		require.NotNil(t, results[1].ErrorMessage)
		assert.Contains(t, *results[1].ErrorMessage, "blocked_word:dragon")
	})

	t.Run("replace picks first safe suggestion", func(t *testing.T) {
		svc, client := setup(t)
		client.On("GenerateText", mock.Anything, mock.MatchedBy(func(s string) bool {
			return strings.HasPrefix(s, "You help users fix image prompts")
		}), mock.Anything).Return(`["a dragon circles the tower", "a great bird circles the tower"]`, nil).Once()

		results, err := svc.GenerateScenePrompts(context.Background(), scenes(texts...), cfgWith(models.ErrorStrategyReplace))
		require.NoError(t, err)
		assertSiblings(t, results)
		assert.True(t, results[1].Success)
		assert.Equal(t, models.SafetyStatusReplaced, results[1].SafetyStatus)
		assert.Equal(t, ApplyTemplate("a great bird circles the tower", models.TemplateClassic, models.AspectRatioLandscape), results[1].VisualPrompt)
		assert.Contains(t, results[1].VisualPrompt, "classic illustration style")
	})

	t.Run("replace keeps template directives", func(t *testing.T) {
		svc, client := setup(t)
		client.On("GenerateText", mock.Anything, mock.MatchedBy(func(s string) bool {
			return strings.HasPrefix(s, "You help users fix image prompts")
		}), mock.Anything).Return(`["a great bird circles the tower"]`, nil).Once()

		cfg := cfgWith(models.ErrorStrategyReplace)
		cfg.Template.Name = models.TemplateDark
		cfg.AspectRatio = models.AspectRatioPortrait
		results, err := svc.GenerateScenePrompts(context.Background(), scenes(texts...), cfg)
		require.NoError(t, err)
		assert.Equal(t, models.SafetyStatusReplaced, results[1].SafetyStatus)
		assert.True(t, strings.HasPrefix(results[1].VisualPrompt, "a great bird circles the tower, "))
		assert.Contains(t, results[1].VisualPrompt, "dark cinematic style")
		assert.Contains(t, results[1].VisualPrompt, "vertical 9:16 composition")
	})

	t.Run("replace falls back to mask", func(t *testing.T) {
		svc, client := setup(t)
		client.On("GenerateText", mock.Anything, mock.MatchedBy(func(s string) bool {
			return strings.HasPrefix(s, "You help users fix image prompts")
		}), mock.Anything).Return("", errors.New("provider error")).Once()

		results, err := svc.GenerateScenePrompts(context.Background(), scenes(texts...), cfgWith(models.ErrorStrategyReplace))
		require.NoError(t, err)
		assert.True(t, results[1].Success)
		assert.Equal(t, models.SafetyStatusFiltered, results[1].SafetyStatus)
		assert.NotContains(t, strings.ToLower(results[1].VisualPrompt), "dragon")
	})
}

func TestGenerateScenePrompts_SafetyOverride(t *testing.T) {
	client := newClient(t)
	svc, _ := newTestService(t, client, nil)
	onExtract(client, "a dragon attacks").Return(extractionJSON, nil).Once()
	onSynthesize(client, "a dragon attacks").Return("a dragon attacks the town", nil).Once()

	cfg := defaultProjectConfig()
	cfg.Safety.BlockedWords = []string{"dragon"}
	skip := models.ErrorStrategySkip

	results, err := svc.GenerateScenePrompts(context.Background(), scenes("a dragon attacks"), cfg,
		WithSafetyOverride(&models.SafetyOverride{ErrorStrategy: &skip}))
	require.NoError(t, err)
	assert.Equal(t, models.SafetyStatusSkipped, results[0].SafetyStatus)
}

func TestGenerateScenePrompts_ModelFailures(t *testing.T) {
	t.Run("degraded extraction still synthesizes", func(t *testing.T) {
		client := newClient(t)
		svc, metrics := newTestService(t, client, nil)
		onExtract(client, "a foggy pier").Return("Sorry, I can only describe it in words.", nil).Once()
		onSynthesize(client, "a foggy pier").Return("a foggy pier at night", nil).Once()

		results, err := svc.GenerateScenePrompts(context.Background(), scenes("a foggy pier"), defaultProjectConfig())
		require.NoError(t, err)
		r := results[0]
		assert.True(t, r.Success)
		assert.Equal(t, []string{WarningMalformedResponse}, r.Warnings)
		assert.True(t, r.VisualElements.IsEmpty())
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.degraded))
	})

	t.Run("extraction unavailable after retries", func(t *testing.T) {
		client := newClient(t)
		svc, _ := newTestService(t, client, nil)
		onExtract(client, "a foggy pier").Return("", models.ErrModelUnavailable).Times(3)

		results, err := svc.GenerateScenePrompts(context.Background(), scenes("a foggy pier"), defaultProjectConfig())
		require.NoError(t, err)
		r := results[0]
		assert.False(t, r.Success)
		assert.Equal(t, models.SafetyStatusFailed, r.SafetyStatus)
		assert.Equal(t, models.ErrCodeExtractionFailed, r.ErrorCode)
		client.AssertNumberOfCalls(t, "GenerateText", 3)
	})

	t.Run("rate limit is retried", func(t *testing.T) {
		client := newClient(t)
		svc, _ := newTestService(t, client, nil)
		onExtract(client, "a foggy pier").Return("", models.ErrRateLimited).Once()
		onExtract(client, "a foggy pier").Return(extractionJSON, nil).Once()
		onSynthesize(client, "a foggy pier").Return("a foggy pier", nil).Once()

		results, err := svc.GenerateScenePrompts(context.Background(), scenes("a foggy pier"), defaultProjectConfig())
		require.NoError(t, err)
		assert.True(t, results[0].Success)
		client.AssertExpectations(t)
	})

	t.Run("synthesis failure is not retried when permanent", func(t *testing.T) {
		client := newClient(t)
		svc, _ := newTestService(t, client, nil)
		onExtract(client, "a foggy pier").Return(extractionJSON, nil).Once()
		onSynthesize(client, "a foggy pier").Return("", errors.New("bad request")).Once()

		results, err := svc.GenerateScenePrompts(context.Background(), scenes("a foggy pier"), defaultProjectConfig())
		require.NoError(t, err)
		r := results[0]
		assert.False(t, r.Success)
		assert.Equal(t, models.ErrCodeSynthesisFailed, r.ErrorCode)
		assert.Equal(t, []string{"girl"}, r.VisualElements.Subject)
		client.AssertNumberOfCalls(t, "GenerateText", 2)
	})

	t.Run("empty synthesis", func(t *testing.T) {
		client := newClient(t)
		svc, _ := newTestService(t, client, nil)
		onExtract(client, "a foggy pier").Return(extractionJSON, nil).Once()
		onSynthesize(client, "a foggy pier").Return(` "" `, nil).Once()

		results, err := svc.GenerateScenePrompts(context.Background(), scenes("a foggy pier"), defaultProjectConfig())
		require.NoError(t, err)
		assert.Equal(t, models.ErrCodeSynthesisFailed, results[0].ErrorCode)
	})

	t.Run("blank scene text fails without model call", func(t *testing.T) {
		client := newClient(t)
		svc, _ := newTestService(t, client, nil)
		onExtract(client, "a foggy pier").Return(extractionJSON, nil).Once()
		onSynthesize(client, "a foggy pier").Return("a foggy pier", nil).Once()

		results, err := svc.GenerateScenePrompts(context.Background(), scenes("  \n", "a foggy pier"), defaultProjectConfig())
		require.NoError(t, err)
		assert.Equal(t, models.ErrCodeExtractionFailed, results[0].ErrorCode)
		assert.False(t, results[0].Success)
		assert.True(t, results[1].Success)
		client.AssertNumberOfCalls(t, "GenerateText", 2)
	})
}

func TestGenerateScenePrompts_CancelledBatch(t *testing.T) {
	client := newClient(t)
	svc, _ := newTestService(t, client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := svc.GenerateScenePrompts(ctx, scenes("one", "two", "three"), defaultProjectConfig())
	assert.ErrorIs(t, err, models.ErrBatchCancelled)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.False(t, r.Success)
		assert.Equal(t, models.ErrCodeCancelled, r.ErrorCode)
	}
	client.AssertNotCalled(t, "GenerateText", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateScenePrompts_CancelledMidBatch(t *testing.T) {
	client := mocks.NewMockModelClient(t)
	client.On("GetRateLimitStatus").Return(ai.RateLimitStatus{Remaining: 2, ResetTime: time.Now()}).Maybe()
	svc, _ := newTestService(t, client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	onExtract(client, "one").Return(extractionJSON, nil).Once()
	onSynthesize(client, "one").Return("picture of one", nil).Once()
	onExtract(client, "two").Run(func(mock.Arguments) { cancel() }).Return("", context.Canceled).Once()
	onExtract(client, "three").Return("", context.Canceled).Maybe()

	results, err := svc.GenerateScenePrompts(ctx, scenes("one", "two", "three"), defaultProjectConfig())
	assert.ErrorIs(t, err, models.ErrBatchCancelled)
	require.Len(t, results, 3)

	assert.True(t, results[0].Success)
	assert.Equal(t, models.SafetyStatusSafe, results[0].SafetyStatus)
	assert.NotEmpty(t, results[0].VisualPrompt)

	for _, r := range results[1:] {
		assert.False(t, r.Success, r.SceneID)
		assert.Equal(t, models.SafetyStatusFailed, r.SafetyStatus, r.SceneID)
		assert.Equal(t, models.ErrCodeCancelled, r.ErrorCode, r.SceneID)
	}
}

func TestGenerateScenePrompts_PoolBoundedByRateLimit(t *testing.T) {
	client := mocks.NewMockModelClient(t)
	client.On("GetRateLimitStatus").Return(ai.RateLimitStatus{Remaining: 2, ResetTime: time.Now()}).Maybe()
	svc, metrics := newTestService(t, client, nil)

	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0
	track := func(mock.Arguments) {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
	}
	client.On("GenerateText", mock.Anything, extractionInstruction, mock.Anything).Run(track).Return(extractionJSON, nil)
	client.On("GenerateText", mock.Anything, synthesisInstruction, mock.Anything).Run(track).Return("a quiet scene", nil)

	results, err := svc.GenerateScenePrompts(context.Background(), scenes("a", "b", "c", "d", "e"), defaultProjectConfig())
	require.NoError(t, err)
	require.Len(t, results, 5)
	for _, r := range results {
		assert.True(t, r.Success, r.SceneID)
	}
	assert.Equal(t, 1, maxInFlight)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.poolSize))
}

func TestOrchestrator_PoolSize(t *testing.T) {
	tests := []struct {
		name      string
		remaining int
		min, max  int
		scenes    int
		want      int
	}{
		{"headroom split by calls per scene", 6, 1, 8, 10, 3},
		{"clamped to max", 100, 1, 4, 10, 4},
		{"clamped to min", 0, 2, 8, 10, 2},
		{"no more than scenes", 100, 1, 8, 2, 2},
		{"never below one", 0, 0, 8, 10, 1},
		{"odd headroom rounds down", 3, 1, 8, 10, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := mocks.NewMockModelClient(t)
			client.On("GetRateLimitStatus").Return(ai.RateLimitStatus{Remaining: tt.remaining}).Once()
			o := &Orchestrator{client: client, minConcurrency: tt.min, maxConcurrency: tt.max}
			assert.Equal(t, tt.want, o.poolSize(tt.scenes))
		})
	}
}

func TestGenerateScenePrompts_ExtractionCache(t *testing.T) {
	t.Run("hit skips extraction", func(t *testing.T) {
		client := newClient(t)
		c := mocks.NewMockExtractionCache(t)
		svc, _ := newTestService(t, client, c)

		cached := models.EmptyVisualElements()
		cached.Subject = []string{"cached girl"}
		c.On("Get", mock.Anything, mock.AnythingOfType("string")).Return(cached, true, nil).Once()
		onSynthesize(client, "a foggy pier").Return("a foggy pier", nil).Once()

		results, err := svc.GenerateScenePrompts(context.Background(), scenes("a foggy pier"), defaultProjectConfig())
		require.NoError(t, err)
		assert.Equal(t, []string{"cached girl"}, results[0].VisualElements.Subject)
		c.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
		client.AssertNumberOfCalls(t, "GenerateText", 1)
	})

	t.Run("miss stores extraction", func(t *testing.T) {
		client := newClient(t)
		c := mocks.NewMockExtractionCache(t)
		svc, _ := newTestService(t, client, c)

		key := cache.Key("test-model", instructionVersion, "", "a foggy pier")
		c.On("Get", mock.Anything, key).Return(models.VisualElements{}, false, nil).Once()
		c.On("Set", mock.Anything, key, mock.MatchedBy(func(el models.VisualElements) bool {
			return len(el.Subject) == 1 && el.Subject[0] == "girl"
		})).Return(nil).Once()
		onExtract(client, "a foggy pier").Return(extractionJSON, nil).Once()
		onSynthesize(client, "a foggy pier").Return("a foggy pier", nil).Once()

		_, err := svc.GenerateScenePrompts(context.Background(), scenes("a foggy pier"), defaultProjectConfig())
		require.NoError(t, err)
		c.AssertExpectations(t)
	})

	t.Run("cache errors are ignored and degraded results are not stored", func(t *testing.T) {
		client := newClient(t)
		c := mocks.NewMockExtractionCache(t)
		svc, _ := newTestService(t, client, c)

		c.On("Get", mock.Anything, mock.Anything).Return(models.VisualElements{}, false, errors.New("connection refused")).Once()
		onExtract(client, "a foggy pier").Return("not json", nil).Once()
		onSynthesize(client, "a foggy pier").Return("a foggy pier", nil).Once()

		results, err := svc.GenerateScenePrompts(context.Background(), scenes("a foggy pier"), defaultProjectConfig())
		require.NoError(t, err)
		assert.True(t, results[0].Success)
		c.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestValidateAndEditPrompt(t *testing.T) {
	cfg := defaultProjectConfig()
	cfg.Safety.BlockedWords = []string{"violence"}

	t.Run("invalid prompt gets suggestions", func(t *testing.T) {
		client := newClient(t)
		svc, _ := newTestService(t, client, nil)
		client.On("GenerateText", mock.Anything, mock.Anything, containing("prompt with violence")).
			Return(`["a tense standoff", "a heated argument"]`, nil).Once()

		res, err := svc.ValidateAndEditPrompt(context.Background(), "orig", "prompt with violence", cfg)
		require.NoError(t, err)
		assert.False(t, res.IsValid)
		assert.Contains(t, res.SafetyResult.Violations, "blocked_word:violence")
		assert.Equal(t, []string{"a tense standoff", "a heated argument"}, res.Suggestions)
		assert.Equal(t, models.SafetyStatusFiltered, res.SafetyStatus)
		assert.Equal(t, "prompt with ***", res.ResolvedPrompt)
	})

	t.Run("generator failure falls back to masked prompt", func(t *testing.T) {
		client := newClient(t)
		svc, _ := newTestService(t, client, nil)
		client.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("boom")).Once()

		res, err := svc.ValidateAndEditPrompt(context.Background(), "orig", "prompt with violence", cfg)
		require.NoError(t, err)
		assert.False(t, res.IsValid)
		assert.Equal(t, []string{"prompt with ***"}, res.Suggestions)
	})

	t.Run("valid prompt needs no model call", func(t *testing.T) {
		client := newClient(t)
		svc, _ := newTestService(t, client, nil)

		res, err := svc.ValidateAndEditPrompt(context.Background(), "orig", "a peaceful meadow", cfg)
		require.NoError(t, err)
		assert.True(t, res.IsValid)
		assert.Empty(t, res.SafetyResult.Violations)
		assert.Equal(t, []string{}, res.Suggestions)
		assert.Equal(t, "a peaceful meadow", res.ResolvedPrompt)
		client.AssertNotCalled(t, "GenerateText", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("blank edited prompt", func(t *testing.T) {
		client := newClient(t)
		svc, _ := newTestService(t, client, nil)
		_, err := svc.ValidateAndEditPrompt(context.Background(), "orig", "  ", cfg)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})
}

func TestServicePreviewAndModelStatus(t *testing.T) {
	client := mocks.NewMockModelClient(t)
	reset := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	client.On("GetRateLimitStatus").Return(ai.RateLimitStatus{Remaining: 7, ResetTime: reset})
	client.On("CheckAvailability", mock.Anything).Return(true)
	svc, _ := newTestService(t, client, nil)

	assert.Equal(t, "a short prompt", svc.GeneratePromptPreview(" a short\nprompt "))

	status := svc.ModelStatus(context.Background())
	assert.True(t, status.Available)
	assert.Equal(t, 7, status.Remaining)
	assert.Equal(t, reset, status.ResetTime)
}
