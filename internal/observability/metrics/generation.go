package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
)

// GenerationMetrics implements ports.GenerationObserver.
type GenerationMetrics struct {
	triggersTotal      *prometheus.CounterVec
	generationInFlight prometheus.Gauge
	generationTotal    *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	cacheLookupsTotal  *prometheus.CounterVec
	rankDuration       prometheus.Histogram
	rankReturned       prometheus.Histogram
}

func newGenerationMetrics(service string, registerer prometheus.Registerer) *GenerationMetrics {
	constLabels := prometheus.Labels{"service": service}

	m := &GenerationMetrics{
		triggersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   "memento",
				Subsystem:   "scheduler",
				Name:        "triggers_total",
				Help:        "Generation triggers by event and outcome.",
				ConstLabels: constLabels,
			},
			[]string{"event", "outcome"},
		),
		generationInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   "memento",
				Subsystem:   "scheduler",
				Name:        "generations_in_flight",
				Help:        "Number of generation jobs currently running in this process.",
				ConstLabels: constLabels,
			},
		),
		generationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   "memento",
				Subsystem:   "scheduler",
				Name:        "generations_total",
				Help:        "Finished generation jobs by status.",
				ConstLabels: constLabels,
			},
			[]string{"status"},
		),
		generationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   "memento",
				Subsystem:   "scheduler",
				Name:        "generation_duration_seconds",
				Help:        "Generation job duration in seconds by status.",
				Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
				ConstLabels: constLabels,
			},
			[]string{"status"},
		),
		cacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   "memento",
				Subsystem:   "cache",
				Name:        "lookups_total",
				Help:        "Artifact cache lookups by artifact type and result.",
				ConstLabels: constLabels,
			},
			[]string{"type", "result"},
		),
		rankDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace:   "memento",
				Subsystem:   "ranker",
				Name:        "duration_seconds",
				Help:        "Prompt ranking duration in seconds.",
				Buckets:     []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
				ConstLabels: constLabels,
			},
		),
		rankReturned: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace:   "memento",
				Subsystem:   "ranker",
				Name:        "returned_candidates",
				Help:        "Candidates returned per ranking call.",
				Buckets:     []float64{0, 1, 2, 3, 5, 8, 13},
				ConstLabels: constLabels,
			},
		),
	}

	registerer.MustRegister(
		m.triggersTotal,
		m.generationInFlight,
		m.generationTotal,
		m.generationDuration,
		m.cacheLookupsTotal,
		m.rankDuration,
		m.rankReturned,
	)
	return m
}

func (m *GenerationMetrics) ObserveTrigger(event domain.TriggerEvent, outcome string) {
	if event == "" {
		event = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.triggersTotal.WithLabelValues(string(event), outcome).Inc()
}

func (m *GenerationMetrics) StartGeneration() {
	m.generationInFlight.Inc()
}

func (m *GenerationMetrics) FinishGeneration(duration time.Duration, err error) {
	m.generationInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.generationTotal.WithLabelValues(status).Inc()
	m.generationDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *GenerationMetrics) ObserveCacheLookup(artifactType domain.ArtifactType, result string) {
	m.cacheLookupsTotal.WithLabelValues(string(artifactType), result).Inc()
}

func (m *GenerationMetrics) ObserveRank(duration time.Duration, returned int) {
	m.rankDuration.Observe(duration.Seconds())
	m.rankReturned.Observe(float64(returned))
}
