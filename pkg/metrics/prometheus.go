// Package metrics provides Prometheus metrics for a report run. A batch job
// has nobody to scrape it, so the registry is written once to a textfile
// for the node exporter's textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Status label values for step outcomes.
const (
	StatusComputed    = "computed"
	StatusUnavailable = "unavailable"
)

// Manager manages all Prometheus metrics for a run.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         *prometheus.Registry

	// Cohort
	patientsLoaded prometheus.Gauge
	yearsDerived   prometheus.Counter

	// Follow-up merge
	followUpMatched    prometheus.Gauge
	followUpDuplicates prometheus.Counter

	// Survival
	kmRows   prometheus.Gauge
	kmEvents prometheus.Gauge

	// Pipeline
	stepOutcomes   *prometheus.CounterVec
	figuresWritten *prometheus.CounterVec
	runDuration    prometheus.Histogram
	runLastUnix    prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "evalfast",
		subsystem:        "report",
		histogramBuckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.NewRegistry(),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.patientsLoaded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "patients_loaded",
		Help:        "Number of patient rows read from the cohort table",
		ConstLabels: labels,
	})

	m.yearsDerived = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "matched_years_derived_total",
		Help:        "Matched survival years filled in from the relative survival bucket",
		ConstLabels: labels,
	})

	m.followUpMatched = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "followup_matched",
		Help:        "Distinct follow-up records matched to the cohort ids",
		ConstLabels: labels,
	})

	m.followUpDuplicates = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "followup_duplicates_total",
		Help:        "Follow-up records dropped because their id was already seen",
		ConstLabels: labels,
	})

	m.kmRows = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "km_rows",
		Help:        "Rows used by the Kaplan-Meier estimator",
		ConstLabels: labels,
	})

	m.kmEvents = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "km_events",
		Help:        "Events used by the Kaplan-Meier estimator",
		ConstLabels: labels,
	})

	m.stepOutcomes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "step_outcomes_total",
		Help:        "Pipeline step results by step and status",
		ConstLabels: labels,
	}, []string{"step", "status"})

	m.figuresWritten = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "figures_written_total",
		Help:        "Figure files written by format",
		ConstLabels: labels,
	}, []string{"figure", "format"})

	m.runDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "run_duration_seconds",
		Help:        "Wall time of a report run",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.runLastUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "run_last_timestamp_seconds",
		Help:        "Unix time the last run finished",
		ConstLabels: labels,
	})
}

// SetPatientsLoaded records the cohort size.
func (m *Manager) SetPatientsLoaded(n int) {
	if m.enabled {
		m.patientsLoaded.Set(float64(n))
	}
}

// AddYearsDerived counts derived matched years.
func (m *Manager) AddYearsDerived(n int) {
	if m.enabled && n > 0 {
		m.yearsDerived.Add(float64(n))
	}
}

// RecordFollowUp records the merge result.
func (m *Manager) RecordFollowUp(matched, duplicates int) {
	if !m.enabled {
		return
	}
	m.followUpMatched.Set(float64(matched))
	if duplicates > 0 {
		m.followUpDuplicates.Add(float64(duplicates))
	}
}

// RecordKaplanMeier records the rows and events the estimator used.
func (m *Manager) RecordKaplanMeier(rows, events int) {
	if !m.enabled {
		return
	}
	m.kmRows.Set(float64(rows))
	m.kmEvents.Set(float64(events))
}

// RecordStep counts one step outcome.
func (m *Manager) RecordStep(step string, computed bool) {
	if !m.enabled {
		return
	}
	status := StatusUnavailable
	if computed {
		status = StatusComputed
	}
	m.stepOutcomes.WithLabelValues(step, status).Inc()
}

// RecordFigure counts a written figure file.
func (m *Manager) RecordFigure(figure, format string) {
	if m.enabled {
		m.figuresWritten.WithLabelValues(figure, format).Inc()
	}
}

// ObserveRun records the duration of a finished run.
func (m *Manager) ObserveRun(d time.Duration) {
	if !m.enabled {
		return
	}
	m.runDuration.Observe(d.Seconds())
	m.runLastUnix.SetToCurrentTime()
}

// Registry returns the registry backing the manager.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes every metric in the registry to path in the text
// exposition format. The file is replaced atomically.
func (m *Manager) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

// Default returns the process-wide manager.
func Default() *Manager {
	return globalManager
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
