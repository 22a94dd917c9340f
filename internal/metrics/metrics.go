// Package metrics exposes Prometheus instruments for analysis runs and feedback intake.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "autotriage"

var (
	// AnalysisRuns counts analysis runs.
	// Labels: mode (by_fault, by_make), result (success, empty, error)
	AnalysisRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "runs_total",
			Help:      "Total number of analysis runs by mode and result",
		},
		[]string{"mode", "result"},
	)

	// AnalysisDuration tracks wall time of complete analysis runs.
	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Duration of analysis runs in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	// AnalysisClusters is the number of clusters produced by the last run per mode.
	AnalysisClusters = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "clusters",
			Help:      "Number of clusters produced by the most recent run",
		},
		[]string{"mode"},
	)

	// WriteBackRecords counts fault-cluster labels committed to storage.
	WriteBackRecords = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "writeback_records_total",
			Help:      "Total number of feedback records relabelled by by-fault runs",
		},
	)

	// FeedbackCreated counts stored feedback records.
	FeedbackCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feedback",
			Name:      "created_total",
			Help:      "Total number of feedback records stored",
		},
	)
)

// ObserveRun records the outcome of one analysis run.
func ObserveRun(mode, result string, seconds float64, clusters int) {
	AnalysisRuns.WithLabelValues(mode, result).Inc()
	AnalysisDuration.WithLabelValues(mode).Observe(seconds)
	if result != "error" {
		AnalysisClusters.WithLabelValues(mode).Set(float64(clusters))
	}
}
