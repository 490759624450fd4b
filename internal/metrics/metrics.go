// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons used as the reason label of RecordsDropped.
const (
	DropMalformed    = "malformed"
	DropUnrecognized = "unrecognized"
	DropFailed       = "failed"
)

// Registry holds every trailguard metric. It is separate from the default
// registry so the textfile only carries pipeline metrics plus process stats.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// Input Metrics
	LinesRead = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "trailguard_lines_read_total",
			Help: "Total number of physical input lines read",
		},
	)

	RecordsProcessed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trailguard_records_processed_total",
			Help: "Total number of records parsed and evaluated",
		},
		[]string{"source"}, // "cloudtrail", "guardduty", "vpcflow"
	)

	RecordsDropped = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trailguard_records_dropped_total",
			Help: "Total number of input lines dropped without evaluation",
		},
		[]string{"source", "reason"},
	)

	FilesSkipped = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "trailguard_files_skipped_total",
			Help: "Total number of input files that could not be read or were not recognized",
		},
	)

	// Alert Metrics
	AlertsEmitted = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trailguard_alerts_emitted_total",
			Help: "Total number of alerts handed to the output sink",
		},
		[]string{"threat_type", "severity"},
	)

	AlertsFiltered = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "trailguard_alerts_filtered_total",
			Help: "Total number of alerts suppressed by the minimum severity filter",
		},
	)

	SinkFailures = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "trailguard_sink_failures_total",
			Help: "Total number of alerts the output sink failed to write",
		},
	)

	// Run Metrics
	RunDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trailguard_run_duration_seconds",
			Help:    "Duration of detection runs in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		},
		[]string{"mode", "status"},
	)

	LastRunTimestamp = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "trailguard_last_run_timestamp_seconds",
			Help: "Unix time the last detection run finished",
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// RecordLine counts one input line.
func RecordLine() {
	LinesRead.Inc()
}

// RecordRecord counts one evaluated record.
func RecordRecord(source string) {
	RecordsProcessed.WithLabelValues(source).Inc()
}

// RecordDrop counts one dropped line. source may be empty for unrecognized lines.
func RecordDrop(source, reason string) {
	if source == "" {
		source = "unknown"
	}
	RecordsDropped.WithLabelValues(source, reason).Inc()
}

// RecordFileSkipped counts one skipped input file.
func RecordFileSkipped() {
	FilesSkipped.Inc()
}

// RecordAlert counts one emitted alert.
func RecordAlert(threatType, severity string) {
	AlertsEmitted.WithLabelValues(threatType, severity).Inc()
}

// RecordAlertFiltered counts one alert below the minimum severity.
func RecordAlertFiltered() {
	AlertsFiltered.Inc()
}

// RecordSinkFailures adds n sink failures.
func RecordSinkFailures(n int) {
	if n > 0 {
		SinkFailures.Add(float64(n))
	}
}

// RecordRun records a finished run.
func RecordRun(mode string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	RunDuration.WithLabelValues(mode, status).Observe(duration.Seconds())
	LastRunTimestamp.Set(float64(time.Now().Unix()))
}

// WriteTextfile writes Registry to path in the Prometheus text format, for
// node_exporter's textfile collector. The write is atomic.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
