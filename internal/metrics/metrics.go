// Package metrics collects run counters and exports them as a Prometheus textfile.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sgryjp/cldb/internal/equipment"
)

const (
	// MetricsNamespace is the namespace for all cldb metrics.
	MetricsNamespace = "cldb"

	// MetricsSubsystem is the subsystem for fetch run metrics.
	MetricsSubsystem = "fetch"
)

// Metrics holds the Prometheus metrics of one fetch run.
type Metrics struct {
	registry *prometheus.Registry

	TasksTotal         *prometheus.CounterVec
	IDsReusedTotal     *prometheus.CounterVec
	PageFetchesTotal   *prometheus.CounterVec
	PageFetchDuration  *prometheus.HistogramVec
	RunDurationSeconds *prometheus.GaugeVec
	LastRunTimestamp   *prometheus.GaugeVec
	Workers            prometheus.Gauge
}

// New creates the run metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{registry: reg}
	m.initTaskMetrics(factory)
	m.initFetchMetrics(factory)
	m.initRunMetrics(factory)

	return m
}

func (m *Metrics) initTaskMetrics(factory promauto.Factory) {
	m.TasksTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystem,
			Name:      "tasks_total",
			Help:      "Product pages processed, by outcome (record, skip, failure)",
		},
		[]string{"category", "outcome"},
	)

	m.IDsReusedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystem,
			Name:      "ids_reused_total",
			Help:      "Records whose identifier was carried over from the prior snapshot",
		},
		[]string{"category"},
	)
}

func (m *Metrics) initFetchMetrics(factory promauto.Factory) {
	m.PageFetchesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystem,
			Name:      "page_requests_total",
			Help:      "HTTP attempts, by outcome",
		},
		[]string{"outcome"},
	)

	m.PageFetchDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystem,
			Name:      "page_request_duration_seconds",
			Help:      "Duration of HTTP attempts",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"outcome"},
	)
}

func (m *Metrics) initRunMetrics(factory promauto.Factory) {
	m.RunDurationSeconds = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystem,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run",
		},
		[]string{"category"},
	)

	m.LastRunTimestamp = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystem,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		},
		[]string{"category", "status"},
	)

	m.Workers = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystem,
		Name:      "workers",
		Help:      "Worker pool size of the last run",
	})
}

// ObserveFetch records one HTTP attempt.
func (m *Metrics) ObserveFetch(outcome string, elapsed time.Duration) {
	m.PageFetchesTotal.WithLabelValues(outcome).Inc()
	m.PageFetchDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveTask records the outcome of one product page.
func (m *Metrics) ObserveTask(category equipment.Category, outcome string, reusedID bool) {
	m.TasksTotal.WithLabelValues(string(category), outcome).Inc()
	if reusedID {
		m.IDsReusedTotal.WithLabelValues(string(category)).Inc()
	}
}

// ObserveRun records the end of a run.
func (m *Metrics) ObserveRun(category equipment.Category, workers int, elapsed time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.Workers.Set(float64(workers))
	m.RunDurationSeconds.WithLabelValues(string(category)).Set(elapsed.Seconds())
	m.LastRunTimestamp.WithLabelValues(string(category), status).SetToCurrentTime()
}

// Gatherer exposes the registry, e.g. for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes every metric in the text exposition format, for the
// node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
