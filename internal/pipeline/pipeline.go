// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

// Package pipeline drives a detection run: it reads the input, routes each
// record to the engine, stamps the resulting alerts and hands them to a Writer.
//
// Record-level problems (malformed lines, unrecognized lines, a panicking
// rule) are logged, counted and skipped. Only run-level problems, such as a
// missing input path or cancellation, are returned from Run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/trailguard/internal/detection"
	"github.com/tomtom215/trailguard/internal/logging"
	"github.com/tomtom215/trailguard/internal/metrics"
	"github.com/tomtom215/trailguard/internal/models"
	"github.com/tomtom215/trailguard/internal/reader"
	"github.com/tomtom215/trailguard/internal/sources"
)

// Run modes.
const (
	ModeStream = "stream"
	ModeBatch  = "batch"
)

// TimestampLayout formats the fallback alert timestamp, microsecond UTC.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Writer receives emitted alerts. Implementations must be safe for
// concurrent use when Workers > 1.
type Writer interface {
	Write(alert models.Alert)
}

// Config controls a run. Zero values select defaults.
type Config struct {
	// Mode is ModeStream (default) or ModeBatch.
	Mode string

	// Workers is the number of files processed concurrently. Default 1.
	Workers int

	// FlowComma separates flow-record fields. Default ','.
	FlowComma rune

	// MaxLineBytes bounds one input line. Default reader.DefaultMaxLineBytes.
	MaxLineBytes int

	// MinSeverity suppresses lower-ranked alerts. Default low.
	MinSeverity models.Severity

	// Clock supplies the fallback timestamp. Default time.Now.
	Clock func() time.Time

	// Logger overrides the global logger.
	Logger *zerolog.Logger
}

func (c Config) withDefaults() Config {
	if c.Mode == "" {
		c.Mode = ModeStream
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.FlowComma == 0 {
		c.FlowComma = sources.DefaultFlowDelimiter
	}
	if c.MaxLineBytes <= 0 {
		c.MaxLineBytes = reader.DefaultMaxLineBytes
	}
	if !c.MinSeverity.Valid() {
		c.MinSeverity = models.SeverityLow
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}

// ErrUnknownMode is returned by New for an unsupported mode.
var ErrUnknownMode = errors.New("unknown pipeline mode")

// Pipeline runs detection over an input path.
type Pipeline struct {
	engine  *detection.Engine
	out     Writer
	cfg     Config
	records *logging.RecordLogger
	logger  zerolog.Logger
}

// New creates a pipeline writing alerts from engine to out.
func New(engine *detection.Engine, out Writer, cfg Config) (*Pipeline, error) {
	if engine == nil {
		return nil, errors.New("pipeline: nil engine")
	}
	if out == nil {
		return nil, errors.New("pipeline: nil writer")
	}
	cfg = cfg.withDefaults()
	if cfg.Mode != ModeStream && cfg.Mode != ModeBatch {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, cfg.Mode)
	}

	p := &Pipeline{engine: engine, out: out, cfg: cfg, records: logging.NewRecordLogger("pipeline")}
	if cfg.Logger != nil {
		p.logger = *cfg.Logger
	} else {
		p.logger = logging.Logger()
	}
	return p, nil
}

// Run processes every file under input. It returns reader.ErrNotFound for a
// missing input and ctx.Err() when cancelled; in the latter case the summary
// covers the work done before cancellation.
func (p *Pipeline) Run(ctx context.Context, input string) (*Summary, error) {
	start := time.Now()
	runID := logging.GenerateRunID()
	ctx = logging.ContextWithRunID(logging.ContextWithLogger(ctx, p.logger), runID)

	rd, err := reader.Open(input,
		reader.WithMaxLineBytes(p.cfg.MaxLineBytes),
		reader.WithLogger(logging.Ctx(ctx).With().Str("component", "reader").Logger()),
	)
	if err != nil {
		metrics.RecordRun(p.cfg.Mode, time.Since(start), err)
		return nil, err
	}

	files := rd.Files()
	summary := newSummary(runID, input, p.cfg.Mode, start)
	summary.Files = len(files)
	p.records.LogRunStarted(ctx, input, p.cfg.Mode, p.cfg.Workers)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for _, path := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			st := p.processFile(gctx, rd, path)
			mu.Lock()
			summary.merge(st)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	summary.FilesSkipped += rd.SkippedFiles()
	summary.Duration = time.Since(start)

	runErr := ctx.Err()
	metrics.RecordRun(p.cfg.Mode, summary.Duration, runErr)
	p.records.LogRunCompleted(ctx, int(summary.Lines), int(summary.RecordsTotal()), int(summary.Alerts), summary.Duration)

	if runErr != nil {
		return summary, fmt.Errorf("run cancelled: %w", runErr)
	}
	return summary, nil
}

// processFile handles one file and returns its counts.
func (p *Pipeline) processFile(ctx context.Context, rd *reader.Reader, path string) *fileStats {
	st := newFileStats()
	lines := p.countLines(rd.FileLines(ctx, path), st)

	if p.cfg.Mode == ModeBatch {
		p.processBatchFile(ctx, path, lines, st)
		return st
	}

	for line := range lines {
		p.safely(ctx, line, "", st, func() {
			p.processLine(ctx, line, st)
		})
	}
	return st
}

func (p *Pipeline) countLines(lines iter.Seq[reader.Line], st *fileStats) iter.Seq[reader.Line] {
	return func(yield func(reader.Line) bool) {
		for line := range lines {
			st.lines++
			metrics.RecordLine()
			if !yield(line) {
				return
			}
		}
	}
}

// processLine classifies and evaluates one line in stream mode.
func (p *Pipeline) processLine(ctx context.Context, line reader.Line, st *fileStats) {
	rec, err := sources.Classify(line.Text, p.cfg.FlowComma)
	switch {
	case err == nil:
	case errors.Is(err, sources.ErrBlank):
		return
	case errors.Is(err, sources.ErrUnrecognized):
		st.unrecognized++
		metrics.RecordDrop("", metrics.DropUnrecognized)
		p.records.LogLineUnrecognized(ctx, line.Path, line.Number)
		return
	default:
		p.drop(ctx, line, rec.Kind, err, st)
		return
	}

	switch rec.Kind {
	case models.SourceCloudTrail:
		p.evaluateAudit(ctx, *rec.Audit, st)
	case models.SourceGuardDuty:
		p.evaluateFinding(ctx, *rec.Finding, st)
	case models.SourceVPCFlow:
		p.evaluateFlow(ctx, *rec.Flow, st)
	}
}

// processBatchFile parses a whole file with the loader its name selects.
func (p *Pipeline) processBatchFile(ctx context.Context, path string, lines iter.Seq[reader.Line], st *fileStats) {
	kind, ok := sources.KindForFile(path)
	if !ok {
		st.filesSkipped++
		metrics.RecordFileSkipped()
		p.records.LogFileSkipped(ctx, path, "no loader for file name in batch mode")
		return
	}

	drop := func(line reader.Line, kind models.SourceKind, err error) {
		p.drop(ctx, line, kind, err, st)
	}

	switch kind {
	case models.SourceCloudTrail:
		for line, ev := range sources.AuditEvents(lines, drop) {
			p.safely(ctx, line, kind, st, func() { p.evaluateAudit(ctx, ev, st) })
		}
	case models.SourceGuardDuty:
		for line, f := range sources.Findings(lines, drop) {
			p.safely(ctx, line, kind, st, func() { p.evaluateFinding(ctx, f, st) })
		}
	case models.SourceVPCFlow:
		for line, rec := range sources.FlowRecords(lines, p.cfg.FlowComma, drop) {
			p.safely(ctx, line, kind, st, func() { p.evaluateFlow(ctx, rec, st) })
		}
	}
}

func (p *Pipeline) evaluateAudit(ctx context.Context, ev models.AuditEvent, st *fileStats) {
	st.record(models.SourceCloudTrail)
	metrics.RecordRecord(string(models.SourceCloudTrail))
	p.emitAll(ctx, p.engine.AuditAlerts(ev), ev.EventTime, st)
}

func (p *Pipeline) evaluateFinding(ctx context.Context, f models.Finding, st *fileStats) {
	st.record(models.SourceGuardDuty)
	metrics.RecordRecord(string(models.SourceGuardDuty))
	p.emitAll(ctx, p.engine.FindingAlerts(f), f.Service.EventLastSeen, st)
}

func (p *Pipeline) evaluateFlow(ctx context.Context, rec models.FlowRecord, st *fileStats) {
	st.record(models.SourceVPCFlow)
	metrics.RecordRecord(string(models.SourceVPCFlow))
	p.emitAll(ctx, p.engine.FlowAlerts(rec), "", st)
}

// emitAll stamps, filters and writes alerts. recordTime wins over the clock.
func (p *Pipeline) emitAll(ctx context.Context, alerts iter.Seq[models.Alert], recordTime string, st *fileStats) {
	for alert := range alerts {
		ts := recordTime
		if ts == "" {
			ts = p.cfg.Clock().UTC().Format(TimestampLayout)
		}
		alert = alert.WithTimestamp(ts)

		if !alert.Severity.AtLeast(p.cfg.MinSeverity) {
			st.filtered++
			metrics.RecordAlertFiltered()
			continue
		}

		p.out.Write(alert)
		st.alert(alert.ThreatType)
		metrics.RecordAlert(alert.ThreatType, string(alert.Severity))
		p.records.LogAlert(ctx, alert.ThreatType, string(alert.Severity), alert.RecordID())
	}
}

func (p *Pipeline) drop(ctx context.Context, line reader.Line, kind models.SourceKind, err error, st *fileStats) {
	st.dropped++
	metrics.RecordDrop(string(kind), metrics.DropMalformed)
	p.records.LogRecordDropped(ctx, line.Path, line.Number, string(kind), err.Error())
}

// safely runs fn, turning a panic into a logged, counted record failure.
func (p *Pipeline) safely(ctx context.Context, line reader.Line, kind models.SourceKind, st *fileStats, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			st.failed++
			metrics.RecordDrop(string(kind), metrics.DropFailed)
			p.records.LogRecordFailed(ctx, line.Path, line.Number, fmt.Errorf("panic: %v", r))
		}
	}()
	fn()
}
