// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

package pipeline

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/tomtom215/trailguard/internal/models"
)

// Summary reports what a run did.
type Summary struct {
	RunID     string    `json:"run_id"`
	Input     string    `json:"input"`
	Mode      string    `json:"mode"`
	StartedAt time.Time `json:"started_at"`

	Files        int   `json:"files"`
	FilesSkipped int   `json:"files_skipped"`
	Lines        int64 `json:"lines"`

	Records      map[models.SourceKind]int64 `json:"records"`
	Dropped      int64                       `json:"dropped"`
	Unrecognized int64                       `json:"unrecognized"`
	Failed       int64                       `json:"failed"`

	Alerts       int64            `json:"alerts"`
	Filtered     int64            `json:"filtered"`
	AlertsByType map[string]int64 `json:"alerts_by_type"`

	Duration time.Duration `json:"duration_ns"`
}

func newSummary(runID, input, mode string, start time.Time) *Summary {
	return &Summary{
		RunID:        runID,
		Input:        input,
		Mode:         mode,
		StartedAt:    start,
		Records:      make(map[models.SourceKind]int64),
		AlertsByType: make(map[string]int64),
	}
}

// RecordsTotal returns the number of records evaluated across all sources.
func (s *Summary) RecordsTotal() int64 {
	var n int64
	for _, c := range s.Records {
		n += c
	}
	return n
}

// ThreatTypes returns the threat types that fired, sorted.
func (s *Summary) ThreatTypes() []string {
	return slices.Sorted(maps.Keys(s.AlertsByType))
}

func (s *Summary) merge(st *fileStats) {
	s.Lines += st.lines
	s.FilesSkipped += st.filesSkipped
	s.Dropped += st.dropped
	s.Unrecognized += st.unrecognized
	s.Failed += st.failed
	s.Alerts += st.alerts
	s.Filtered += st.filtered
	for k, v := range st.records {
		s.Records[k] += v
	}
	for k, v := range st.byType {
		s.AlertsByType[k] += v
	}
}

// fileStats are the counts of one file. Each is owned by one goroutine.
type fileStats struct {
	lines        int64
	filesSkipped int
	dropped      int64
	unrecognized int64
	failed       int64
	alerts       int64
	filtered     int64
	records      map[models.SourceKind]int64
	byType       map[string]int64
}

func newFileStats() *fileStats {
	return &fileStats{
		records: make(map[models.SourceKind]int64, 3),
		byType:  make(map[string]int64),
	}
}

func (f *fileStats) record(kind models.SourceKind) {
	f.records[kind]++
}

func (f *fileStats) alert(threatType string) {
	f.alerts++
	f.byType[threatType]++
}

// Collector is a Writer that keeps alerts in memory.
type Collector struct {
	mu     sync.Mutex
	alerts []models.Alert
}

// Write implements Writer.
func (c *Collector) Write(alert models.Alert) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, alert)
}

// Alerts returns a copy of the collected alerts in write order.
func (c *Collector) Alerts() []models.Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.alerts)
}

// Len returns the number of collected alerts.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.alerts)
}
