// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

// Package grade scores an alert artifact against a labelled truth file.
//
// Both files are JSON arrays of alert-shaped objects. Each entry is reduced to
// a (kind, id, threat_type) key, where kind is "event" for entries carrying
// event_id and "finding" for entries carrying finding_id. Scoring is set
// based: duplicates count once.
package grade

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/goccy/go-json"
)

// Key kinds.
const (
	KindEvent   = "event"
	KindFinding = "finding"
)

// Key identifies one detection for scoring.
type Key struct {
	Kind       string `json:"kind"`
	ID         string `json:"id"`
	ThreatType string `json:"threat_type"`
}

// Entry is the subset of an alert the grader reads. Pointers distinguish an
// absent id from an empty one.
type Entry struct {
	ThreatType string  `json:"threat_type"`
	EventID    *string `json:"event_id"`
	FindingID  *string `json:"finding_id"`
}

// Report is the grading result.
type Report struct {
	TruePositives  int     `json:"true_positives"`
	FalsePositives int     `json:"false_positives"`
	FalseNegatives int     `json:"false_negatives"`
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	F1             float64 `json:"f1"`
	Missed         []Key   `json:"missed,omitempty"`
	Spurious       []Key   `json:"spurious,omitempty"`
}

// Load reads a JSON array of entries from path.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return entries, nil
}

// truthKeys keys truth entries by event_id when present, else finding_id.
func truthKeys(entries []Entry) map[Key]struct{} {
	keys := make(map[Key]struct{}, len(entries))
	for _, e := range entries {
		switch {
		case e.EventID != nil:
			keys[Key{KindEvent, *e.EventID, e.ThreatType}] = struct{}{}
		case e.FindingID != nil:
			keys[Key{KindFinding, *e.FindingID, e.ThreatType}] = struct{}{}
		}
	}
	return keys
}

// alertKeys keys alerts by every non-empty id they carry. Alerts without a
// threat type are ignored.
func alertKeys(entries []Entry) map[Key]struct{} {
	keys := make(map[Key]struct{}, len(entries))
	for _, e := range entries {
		if e.ThreatType == "" {
			continue
		}
		if e.EventID != nil && *e.EventID != "" {
			keys[Key{KindEvent, *e.EventID, e.ThreatType}] = struct{}{}
		}
		if e.FindingID != nil && *e.FindingID != "" {
			keys[Key{KindFinding, *e.FindingID, e.ThreatType}] = struct{}{}
		}
	}
	return keys
}

// Grade compares alerts against truth.
func Grade(truth, alerts []Entry) Report {
	want := truthKeys(truth)
	got := alertKeys(alerts)

	var r Report
	for k := range got {
		if _, ok := want[k]; ok {
			r.TruePositives++
		} else {
			r.FalsePositives++
			r.Spurious = append(r.Spurious, k)
		}
	}
	for k := range want {
		if _, ok := got[k]; !ok {
			r.FalseNegatives++
			r.Missed = append(r.Missed, k)
		}
	}

	if d := r.TruePositives + r.FalsePositives; d > 0 {
		r.Precision = float64(r.TruePositives) / float64(d)
	}
	if d := r.TruePositives + r.FalseNegatives; d > 0 {
		r.Recall = float64(r.TruePositives) / float64(d)
	}
	if s := r.Precision + r.Recall; s > 0 {
		r.F1 = 2 * r.Precision * r.Recall / s
	}

	sortKeys(r.Missed)
	sortKeys(r.Spurious)
	return r
}

// GradeFiles loads both files and grades them.
func GradeFiles(truthPath, alertsPath string) (Report, error) {
	truth, err := Load(truthPath)
	if err != nil {
		return Report{}, err
	}
	alerts, err := Load(alertsPath)
	if err != nil {
		return Report{}, err
	}
	return Grade(truth, alerts), nil
}

func sortKeys(keys []Key) {
	slices.SortFunc(keys, func(a, b Key) int {
		return cmp.Or(
			cmp.Compare(a.Kind, b.Kind),
			cmp.Compare(a.ID, b.ID),
			cmp.Compare(a.ThreatType, b.ThreatType),
		)
	})
}

// WriteText writes a human-readable report.
func (r Report) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"=== Grading Report ===\nTrue Positives: %d\nFalse Positives: %d\nFalse Negatives: %d\nPrecision: %.2f  Recall: %.2f  F1: %.2f\n",
		r.TruePositives, r.FalsePositives, r.FalseNegatives, r.Precision, r.Recall, r.F1)
	if err != nil {
		return err
	}
	if len(r.Missed) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "\nMissed:"); err != nil {
		return err
	}
	for _, k := range r.Missed {
		source := "CloudTrail"
		if k.Kind == KindFinding {
			source = "GuardDuty"
		}
		if _, err := fmt.Fprintf(w, " - %s id=%s threat_type=%s\n", source, k.ID, k.ThreatType); err != nil {
			return err
		}
	}
	return nil
}
