package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements ports.MetricsCollector using Prometheus
type Collector struct {
	tasksExecuted     *prometheus.CounterVec
	taskDuration      *prometheus.HistogramVec
	backendCalls      *prometheus.CounterVec
	backendTokens     *prometheus.CounterVec
	backendLatency    *prometheus.HistogramVec
	fallbackExhausted prometheus.Counter
	messagesPublished *prometheus.CounterVec
	routingDecisions  *prometheus.CounterVec
	workersActive     prometheus.Gauge
	workersBusy       prometheus.Gauge
	workersInactive   prometheus.Gauge
}

// NewCollector creates a new Prometheus metrics collector
func NewCollector() *Collector {
	return &Collector{
		tasksExecuted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskmesh_tasks_executed_total",
				Help: "Total number of coordinated tasks executed",
			},
			[]string{"pattern", "status"},
		),
		taskDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskmesh_task_duration_seconds",
				Help:    "Coordinated task duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"pattern"},
		),
		backendCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskmesh_backend_calls_total",
				Help: "Total number of successful backend invocations",
			},
			[]string{"backend", "tier"},
		),
		backendTokens: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskmesh_backend_tokens_total",
				Help: "Total number of tokens consumed per backend",
			},
			[]string{"backend"},
		),
		backendLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskmesh_backend_latency_seconds",
				Help:    "Backend invocation latency in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 60},
			},
			[]string{"backend"},
		),
		fallbackExhausted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "taskmesh_fallback_exhausted_total",
				Help: "Total number of tasks that exhausted every fallback tier",
			},
		),
		messagesPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskmesh_messages_published_total",
				Help: "Total number of messages published per channel",
			},
			[]string{"channel"},
		),
		routingDecisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskmesh_routing_decisions_total",
				Help: "Total number of routing decisions per strategy",
			},
			[]string{"strategy"},
		),
		workersActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "taskmesh_workers_active",
				Help: "Number of active workers",
			},
		),
		workersBusy: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "taskmesh_workers_busy",
				Help: "Number of busy workers",
			},
		),
		workersInactive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "taskmesh_workers_inactive",
				Help: "Number of inactive or errored workers",
			},
		),
	}
}

// RecordTaskExecuted records one coordinated task outcome
func (c *Collector) RecordTaskExecuted(pattern, status string, elapsed time.Duration) {
	c.tasksExecuted.WithLabelValues(pattern, status).Inc()
	c.taskDuration.WithLabelValues(pattern).Observe(elapsed.Seconds())
}

// RecordBackendCall records one successful backend invocation
func (c *Collector) RecordBackendCall(backend string, tier, tokens int, elapsed time.Duration) {
	c.backendCalls.WithLabelValues(backend, tierLabel(tier)).Inc()
	c.backendTokens.WithLabelValues(backend).Add(float64(tokens))
	c.backendLatency.WithLabelValues(backend).Observe(elapsed.Seconds())
}

// RecordFallbackExhausted records a task that failed on every tier
func (c *Collector) RecordFallbackExhausted() {
	c.fallbackExhausted.Inc()
}

// RecordMessagePublished records one bus publish
func (c *Collector) RecordMessagePublished(channel string) {
	c.messagesPublished.WithLabelValues(channel).Inc()
}

// RecordWorkerPoolStatus records the worker lifecycle distribution
func (c *Collector) RecordWorkerPoolStatus(active, busy, inactive int) {
	c.workersActive.Set(float64(active))
	c.workersBusy.Set(float64(busy))
	c.workersInactive.Set(float64(inactive))
}

// RecordRouting records one routing decision
func (c *Collector) RecordRouting(strategy string) {
	c.routingDecisions.WithLabelValues(strategy).Inc()
}

func tierLabel(tier int) string {
	switch tier {
	case 0:
		return "primary"
	case 1:
		return "secondary"
	default:
		return "local"
	}
}
