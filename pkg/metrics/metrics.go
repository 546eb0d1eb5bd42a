package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	projectSync = "project_sync"

	// Record metrics
	recordsLoadedTotal = "records_loaded_total"
	recordsFailedTotal = "records_failed_total"

	// Export metrics
	exportsTotal = "exports_total"

	// Run metrics
	runDurationSeconds = "run_duration_seconds"
	lastRunTimestamp   = "last_run_timestamp_seconds"

	// Labels
	familyLabel  = "family"
	outcomeLabel = "outcome"
)

var recordsLabels = []string{
	familyLabel,
}

var exportsLabels = []string{
	familyLabel,
	outcomeLabel,
}

/**
* Metrics definition
**/
var recordsLoadedMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: projectSync,
		Name:      recordsLoadedTotal,
		Help:      "number of records created in the record store",
	},
	recordsLabels,
)

var recordsFailedMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: projectSync,
		Name:      recordsFailedTotal,
		Help:      "number of records given up after retries",
	},
	recordsLabels,
)

var exportsMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: projectSync,
		Name:      exportsTotal,
		Help:      "number of survey exports by outcome",
	},
	exportsLabels,
)

var runDurationMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: projectSync,
		Name:      runDurationSeconds,
		Help:      "duration of the last run",
	},
)

var lastRunMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: projectSync,
		Name:      lastRunTimestamp,
		Help:      "unix time the last run finished",
	},
)

// registry holds only the run metrics so a push does not carry the Go runtime collectors.
var registry = prometheus.NewRegistry()

func IncreaseRecordsLoadedMetric(family string, count int) {
	labels := prometheus.Labels{
		familyLabel: family,
	}
	recordsLoadedMetric.With(labels).Add(float64(count))
}

func IncreaseRecordsFailedMetric(family string, count int) {
	labels := prometheus.Labels{
		familyLabel: family,
	}
	recordsFailedMetric.With(labels).Add(float64(count))
}

func IncreaseExportsMetric(family, outcome string) {
	labels := prometheus.Labels{
		familyLabel:  family,
		outcomeLabel: outcome,
	}
	exportsMetric.With(labels).Inc()
}

func UpdateRunMetrics(duration time.Duration, finished time.Time) {
	runDurationMetric.Set(duration.Seconds())
	lastRunMetric.Set(float64(finished.Unix()))
}

// Gatherer exposes the run metrics.
func Gatherer() prometheus.Gatherer {
	return registry
}

// Push sends the run metrics to a Prometheus push gateway under job.
func Push(ctx context.Context, url, job string) error {
	return push.New(url, job).Gatherer(registry).PushContext(ctx)
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	registry.MustRegister(recordsLoadedMetric)
	registry.MustRegister(recordsFailedMetric)
	registry.MustRegister(exportsMetric)
	registry.MustRegister(runDurationMetric)
	registry.MustRegister(lastRunMetric)
}
