// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

package logging

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RecordLogger provides specialized logging for record processing.
// Each method corresponds to one step of a record's life in a pipeline run,
// so diagnostics carry the same field names everywhere. Output goes to the
// logger stored in the context, falling back to the global logger.
type RecordLogger struct {
	component string
}

// NewRecordLogger creates a record logger tagging entries with component.
func NewRecordLogger(component string) *RecordLogger {
	return &RecordLogger{component: component}
}

// loggerWithContext returns the context logger with run id and component.
func (r *RecordLogger) loggerWithContext(ctx context.Context) zerolog.Logger {
	return Ctx(ctx).With().Str("component", r.component).Logger()
}

// LogRecordDropped logs a malformed record that the loaders rejected.
func (r *RecordLogger) LogRecordDropped(ctx context.Context, path string, line int, kind, reason string) {
	l := r.loggerWithContext(ctx)
	l.Warn().
		Str("path", path).
		Int("line", line).
		Str("kind", kind).
		Str("reason", reason).
		Msg("record dropped")
}

// LogLineUnrecognized logs a line that matched no known source format.
func (r *RecordLogger) LogLineUnrecognized(ctx context.Context, path string, line int) {
	l := r.loggerWithContext(ctx)
	l.Warn().
		Str("path", path).
		Int("line", line).
		Msg("unrecognized record skipped")
}

// LogRecordFailed logs a record whose evaluation failed.
func (r *RecordLogger) LogRecordFailed(ctx context.Context, path string, line int, err error) {
	l := r.loggerWithContext(ctx)
	l.Error().
		Str("path", path).
		Int("line", line).
		Err(err).
		Msg("record processing failed")
}

// LogFileSkipped logs a file the current mode has no loader for.
func (r *RecordLogger) LogFileSkipped(ctx context.Context, path, reason string) {
	l := r.loggerWithContext(ctx)
	l.Warn().
		Str("path", path).
		Str("reason", reason).
		Msg("file skipped")
}

// LogAlert logs an emitted alert at debug level.
func (r *RecordLogger) LogAlert(ctx context.Context, threatType, severity, id string) {
	l := r.loggerWithContext(ctx)
	l.Debug().
		Str("threat_type", threatType).
		Str("severity", severity).
		Str("id", id).
		Msg("alert emitted")
}

// LogRunStarted logs the start of a pipeline run.
func (r *RecordLogger) LogRunStarted(ctx context.Context, input, mode string, workers int) {
	l := r.loggerWithContext(ctx)
	l.Info().
		Str("input", input).
		Str("mode", mode).
		Int("workers", workers).
		Msg("pipeline run started")
}

// LogRunCompleted logs the end of a pipeline run.
func (r *RecordLogger) LogRunCompleted(ctx context.Context, lines, records, alerts int, elapsed time.Duration) {
	l := r.loggerWithContext(ctx)
	l.Info().
		Int("lines", lines).
		Int("records", records).
		Int("alerts", alerts).
		Dur("elapsed", elapsed).
		Msg("pipeline run completed")
}
