package worker

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const jobName = "scene_prompt_worker"

// Metrics - метрики воркера.
type Metrics struct {
	tasksReceived  prometheus.Counter
	tasksProcessed *prometheus.CounterVec
	taskDuration   prometheus.Histogram
	publishErrors  prometheus.Counter
}

// NewMetrics регистрирует метрики воркера в reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		tasksReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "scene_prompt_worker_tasks_received_total",
			Help: "Total number of batch tasks received by the worker.",
		}),
		tasksProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scene_prompt_worker_tasks_processed_total",
			Help: "Total number of batch tasks processed, partitioned by outcome.",
		}, []string{"status"}),
		taskDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "scene_prompt_worker_task_duration_seconds",
			Help:    "Duration of batch task processing.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		publishErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "scene_prompt_worker_publish_errors_total",
			Help: "Total number of errors publishing batch results.",
		}),
	}
}

// NewPusher создает клиент Pushgateway. Пустой URL отключает отправку.
func NewPusher(url string, gatherer prometheus.Gatherer) *push.Pusher {
	if url == "" {
		return nil
	}
	instanceID, err := os.Hostname()
	if err != nil || instanceID == "" {
		instanceID = "unknown"
	}
	return push.New(url, jobName).Gatherer(gatherer).Grouping("instance", instanceID)
}
