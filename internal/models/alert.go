// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

package models

// Alert states that one input record matched one detection rule.
// The engine builds alerts without a timestamp; the pipeline attaches one
// through WithTimestamp before the alert is written.
type Alert struct {
	ThreatType string     `json:"threat_type"`
	Severity   Severity   `json:"severity"`
	Reason     string     `json:"reason"`
	EventID    string     `json:"event_id,omitempty"`
	FindingID  string     `json:"finding_id,omitempty"`
	Source     SourceKind `json:"source,omitempty"`
	Timestamp  string     `json:"ts,omitempty"`
}

// WithTimestamp returns a copy of a carrying ts.
func (a Alert) WithTimestamp(ts string) Alert {
	a.Timestamp = ts
	return a
}

// RecordID returns the identifier correlating the alert to its source record.
func (a Alert) RecordID() string {
	if a.EventID != "" {
		return a.EventID
	}
	return a.FindingID
}
