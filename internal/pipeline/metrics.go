package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics - метрики конвейера. Создаются явно и регистрируются в переданном реестре,
// в тестах - в свежем prometheus.NewRegistry().
type Metrics struct {
	scenes        *prometheus.CounterVec
	sceneDuration prometheus.Histogram
	stageDuration *prometheus.HistogramVec
	violations    *prometheus.CounterVec
	retries       *prometheus.CounterVec
	batches       *prometheus.CounterVec
	poolSize      prometheus.Gauge
	cache         *prometheus.CounterVec
	degraded      prometheus.Counter
}

// NewMetrics создает метрики конвейера.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		scenes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scene_prompt_scenes_total",
			Help: "Scenes processed, partitioned by safety status and outcome.",
		}, []string{"safety_status", "success"}),
		sceneDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "scene_prompt_scene_duration_seconds",
			Help:    "End-to-end duration of a single scene pipeline.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scene_prompt_stage_duration_seconds",
			Help:    "Duration of each scene pipeline stage.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
		violations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scene_prompt_safety_violations_total",
			Help: "Safety violations found, partitioned by category.",
		}, []string{"category"}),
		retries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scene_prompt_model_retries_total",
			Help: "Retried model calls, partitioned by stage.",
		}, []string{"stage"}),
		batches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scene_prompt_batches_total",
			Help: "Batches processed, partitioned by outcome.",
		}, []string{"outcome"}),
		poolSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "scene_prompt_worker_pool_size",
			Help: "Worker pool size chosen for the most recent batch.",
		}),
		cache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scene_prompt_extraction_cache_total",
			Help: "Extraction cache lookups, partitioned by result.",
		}, []string{"result"}),
		degraded: f.NewCounter(prometheus.CounterOpts{
			Name: "scene_prompt_extraction_degraded_total",
			Help: "Extractions that degraded to empty visual elements after a malformed response.",
		}),
	}
}
