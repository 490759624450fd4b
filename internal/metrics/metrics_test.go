// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestRecordRecord tests per-source record counting
func TestRecordRecord(t *testing.T) {
	before := testutil.ToFloat64(RecordsProcessed.WithLabelValues("cloudtrail"))
	RecordRecord("cloudtrail")
	RecordRecord("cloudtrail")
	after := testutil.ToFloat64(RecordsProcessed.WithLabelValues("cloudtrail"))

	if after-before != 2 {
		t.Errorf("expected +2, got %v", after-before)
	}
}

// TestRecordDrop tests drop counting and the unknown source fallback
func TestRecordDrop(t *testing.T) {
	tests := []struct {
		name      string
		source    string
		reason    string
		wantLabel string
	}{
		{name: "malformed flow row", source: "vpcflow", reason: DropMalformed, wantLabel: "vpcflow"},
		{name: "unrecognized line", source: "", reason: DropUnrecognized, wantLabel: "unknown"},
		{name: "recovered failure", source: "guardduty", reason: DropFailed, wantLabel: "guardduty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := RecordsDropped.WithLabelValues(tt.wantLabel, tt.reason)
			before := testutil.ToFloat64(c)
			RecordDrop(tt.source, tt.reason)
			if got := testutil.ToFloat64(c) - before; got != 1 {
				t.Errorf("expected +1, got %v", got)
			}
		})
	}
}

// TestRecordAlert tests alert counting by threat type and severity
func TestRecordAlert(t *testing.T) {
	c := AlertsEmitted.WithLabelValues("IAMPrivilegeTampering", "high")
	before := testutil.ToFloat64(c)
	RecordAlert("IAMPrivilegeTampering", "high")
	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Errorf("expected +1, got %v", got)
	}
}

// TestRecordSinkFailures tests that non-positive counts are ignored
func TestRecordSinkFailures(t *testing.T) {
	before := testutil.ToFloat64(SinkFailures)
	RecordSinkFailures(0)
	RecordSinkFailures(-3)
	RecordSinkFailures(2)
	if got := testutil.ToFloat64(SinkFailures) - before; got != 2 {
		t.Errorf("expected +2, got %v", got)
	}
}

// TestRecordRun tests run duration and status labels
func TestRecordRun(t *testing.T) {
	before := testutil.CollectAndCount(RunDuration)
	RecordRun("stream", 120*time.Millisecond, nil)
	RecordRun("stream", 5*time.Millisecond, errors.New("boom"))

	if got := testutil.CollectAndCount(RunDuration); got < before || got < 2 {
		t.Errorf("expected success and error series, got %d", got)
	}
	if testutil.ToFloat64(LastRunTimestamp) <= 0 {
		t.Error("last run timestamp not set")
	}
}

// TestConcurrentRecording tests that counters are safe under concurrency
func TestConcurrentRecording(t *testing.T) {
	before := testutil.ToFloat64(LinesRead)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				RecordLine()
			}
		}()
	}
	wg.Wait()

	if got := testutil.ToFloat64(LinesRead) - before; got != 1000 {
		t.Errorf("expected +1000, got %v", got)
	}
}

// TestWriteTextfile tests the node_exporter textfile output
func TestWriteTextfile(t *testing.T) {
	RecordFileSkipped()
	RecordAlertFiltered()

	path := filepath.Join(t.TempDir(), "trailguard.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"trailguard_files_skipped_total", "trailguard_alerts_filtered_total", "go_goroutines"} {
		if !strings.Contains(string(data), name) {
			t.Errorf("textfile missing %s", name)
		}
	}
}

// TestWriteTextfile_BadPath tests error wrapping for unwritable paths
func TestWriteTextfile_BadPath(t *testing.T) {
	err := WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"))
	if err == nil || !strings.Contains(err.Error(), "write metrics textfile") {
		t.Errorf("expected wrapped error, got %v", err)
	}
}
