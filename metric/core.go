// Package metric provides Prometheus-based metrics for the ingestion
// pipeline: run outcomes, per-stage durations, record counts, and NATS
// connectivity. A registry owns the collectors and the HTTP handler exposes
// them for scraping.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the pipeline-level collectors
type Metrics struct {
	RunsTotal        *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	StageFailures    *prometheus.CounterVec
	RecordsTotal     *prometheus.CounterVec
	FilesByType      *prometheus.CounterVec
	ReportsPublished *prometheus.CounterVec
	NATSConnected    prometheus.Gauge
}

// NewMetrics creates the pipeline collectors
func NewMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fileingest",
				Subsystem: "pipeline",
				Name:      "runs_total",
				Help:      "Total pipeline runs by terminal status",
			},
			[]string{"status"},
		),

		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "fileingest",
				Subsystem: "pipeline",
				Name:      "stage_duration_seconds",
				Help:      "Stage execution duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage"},
		),

		StageFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fileingest",
				Subsystem: "pipeline",
				Name:      "stage_failures_total",
				Help:      "Total stage failures by stage and error kind",
			},
			[]string{"stage", "kind"},
		),

		RecordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fileingest",
				Subsystem: "records",
				Name:      "total",
				Help:      "Total records by outcome (valid, invalid, saved, failed)",
			},
			[]string{"outcome"},
		),

		FilesByType: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fileingest",
				Subsystem: "files",
				Name:      "by_type_total",
				Help:      "Total files processed by detected type",
			},
			[]string{"type"},
		),

		ReportsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fileingest",
				Subsystem: "reports",
				Name:      "published_total",
				Help:      "Total terminal reports published by status",
			},
			[]string{"status"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "fileingest",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),
	}
}

// collectors returns every core collector for registration
func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RunsTotal,
		m.StageDuration,
		m.StageFailures,
		m.RecordsTotal,
		m.FilesByType,
		m.ReportsPublished,
		m.NATSConnected,
	}
}

// RecordRun increments the run counter for a terminal status
func (m *Metrics) RecordRun(status string) {
	m.RunsTotal.WithLabelValues(status).Inc()
}

// ObserveStage records one stage execution
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordStageFailure counts a stage failure by error kind
func (m *Metrics) RecordStageFailure(stage, kind string) {
	m.StageFailures.WithLabelValues(stage, kind).Inc()
}

// RecordRecords adds to the record counter for an outcome
func (m *Metrics) RecordRecords(outcome string, n int) {
	if n > 0 {
		m.RecordsTotal.WithLabelValues(outcome).Add(float64(n))
	}
}

// RecordFileType counts a processed file by its detected type
func (m *Metrics) RecordFileType(fileType string) {
	m.FilesByType.WithLabelValues(fileType).Inc()
}

// RecordReport counts a published terminal report
func (m *Metrics) RecordReport(status string) {
	m.ReportsPublished.WithLabelValues(status).Inc()
}

// RecordNATSHealth sets the NATS connectivity gauge
func (m *Metrics) RecordNATSHealth(connected bool) {
	if connected {
		m.NATSConnected.Set(1)
	} else {
		m.NATSConnected.Set(0)
	}
}
