package ai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics - метрики обращений к модели. Регистрируются в переданном реестре.
type Metrics struct {
	requests         *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	promptTokens     *prometheus.HistogramVec
	completionTokens *prometheus.HistogramVec
	rateLimited      *prometheus.CounterVec
}

// NewMetrics создает и регистрирует метрики клиента.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scene_prompt_ai_requests_total",
			Help: "Total number of requests to the language model.",
		}, []string{"model", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scene_prompt_ai_request_duration_seconds",
			Help:    "Histogram of language model request durations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"model"}),
		promptTokens: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scene_prompt_ai_prompt_tokens",
			Help:    "Histogram of prompt token counts.",
			Buckets: prometheus.LinearBuckets(100, 100, 20),
		}, []string{"model"}),
		completionTokens: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scene_prompt_ai_completion_tokens",
			Help:    "Histogram of completion token counts.",
			Buckets: prometheus.LinearBuckets(25, 25, 20),
		}, []string{"model"}),
		rateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scene_prompt_ai_rate_limited_total",
			Help: "Requests rejected by the client-side or provider rate limit.",
		}, []string{"model", "source"}),
	}
}

func (m *Metrics) observeRequest(model, status string, seconds float64) {
	m.requests.WithLabelValues(model, status).Inc()
	if status == "success" {
		m.duration.WithLabelValues(model).Observe(seconds)
	}
}

func (m *Metrics) observeTokens(model string, prompt, completion int) {
	if prompt > 0 {
		m.promptTokens.WithLabelValues(model).Observe(float64(prompt))
	}
	if completion > 0 {
		m.completionTokens.WithLabelValues(model).Observe(float64(completion))
	}
}

func (m *Metrics) rateLimit(model, source string) {
	m.rateLimited.WithLabelValues(model, source).Inc()
}
