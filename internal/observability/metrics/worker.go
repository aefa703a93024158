package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry   *prometheus.Registry
	generation *GenerationMetrics

	consumeTotal  *prometheus.CounterVec
	queueLag      prometheus.Histogram
	staleReleased prometheus.Counter
	breakerState  *prometheus.GaugeVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	consumeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "memento",
			Subsystem:   "worker",
			Name:        "triggers_consumed_total",
			Help:        "Triggers consumed from the queue by status.",
			ConstLabels: constLabels,
		},
		[]string{"status"},
	)
	queueLag := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   "memento",
			Subsystem:   "worker",
			Name:        "queue_lag_seconds",
			Help:        "Delay between a trigger occurring and a worker handling it.",
			Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			ConstLabels: constLabels,
		},
	)
	staleReleased := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   "memento",
			Subsystem:   "worker",
			Name:        "stale_locks_released_total",
			Help:        "Generation locks released by the reconciler.",
			ConstLabels: constLabels,
		},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   "memento",
			Subsystem:   "worker",
			Name:        "circuit_breaker_state",
			Help:        "Circuit breaker state per operation (0 closed, 1 half-open, 2 open).",
			ConstLabels: constLabels,
		},
		[]string{"operation"},
	)

	registry.MustRegister(consumeTotal, queueLag, staleReleased, breakerState)

	return &WorkerMetrics{
		registry:      registry,
		generation:    newGenerationMetrics(service, registry),
		consumeTotal:  consumeTotal,
		queueLag:      queueLag,
		staleReleased: staleReleased,
		breakerState:  breakerState,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) Generation() *GenerationMetrics {
	return m.generation
}

func (m *WorkerMetrics) ObserveConsumed(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.consumeTotal.WithLabelValues(status).Inc()
}

func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.Observe(lag.Seconds())
}

func (m *WorkerMetrics) ObserveStaleReleased(count int) {
	if count <= 0 {
		return
	}
	m.staleReleased.Add(float64(count))
}

// SetBreakerState records a gobreaker state value for operation.
func (m *WorkerMetrics) SetBreakerState(operation string, state int) {
	m.breakerState.WithLabelValues(operation).Set(float64(state))
}
