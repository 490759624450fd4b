// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

package models

import "testing"

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		input   string
		want    Severity
		wantErr bool
	}{
		{"low", SeverityLow, false},
		{"Medium", SeverityMedium, false},
		{" HIGH ", SeverityHigh, false},
		{"critical", SeverityCritical, false},
		{"info", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSeverity(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSeverity(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSeverity(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSeverityOrdering(t *testing.T) {
	for i := 1; i < len(Severities); i++ {
		if Severities[i].Rank() <= Severities[i-1].Rank() {
			t.Errorf("%s should rank above %s", Severities[i], Severities[i-1])
		}
	}
	if !SeverityCritical.AtLeast(SeverityHigh) {
		t.Error("critical should be at least high")
	}
	if SeverityLow.AtLeast(SeverityMedium) {
		t.Error("low should not be at least medium")
	}
	if Severity("bogus").Valid() {
		t.Error("unknown severity should be invalid")
	}
}

func TestAlertWithTimestamp(t *testing.T) {
	a := Alert{ThreatType: "X", Severity: SeverityHigh, Reason: "r", EventID: "e1"}
	b := a.WithTimestamp("2024-01-01T00:00:00Z")

	if a.Timestamp != "" {
		t.Errorf("original alert mutated: %q", a.Timestamp)
	}
	if b.Timestamp != "2024-01-01T00:00:00Z" {
		t.Errorf("Timestamp = %q", b.Timestamp)
	}
	if b.RecordID() != "e1" {
		t.Errorf("RecordID() = %q, want e1", b.RecordID())
	}
	if id := (Alert{FindingID: "f1"}).RecordID(); id != "f1" {
		t.Errorf("RecordID() = %q, want f1", id)
	}
}

func TestAuditEventAccessors(t *testing.T) {
	ev := AuditEvent{
		RequestParameters:   map[string]any{"bucketName": "b", "n": 3.0},
		AdditionalEventData: map[string]any{"MFAUsed": "No"},
	}
	if got := ev.RequestParam("bucketName"); got != "b" {
		t.Errorf("RequestParam(bucketName) = %q", got)
	}
	if got := ev.RequestParam("n"); got != "" {
		t.Errorf("non-string param should read as empty, got %q", got)
	}
	if got := ev.AdditionalData("MFAUsed"); got != "No" {
		t.Errorf("AdditionalData(MFAUsed) = %v", got)
	}
	var empty AuditEvent
	if empty.RequestParam("x") != "" || empty.AdditionalData("x") != nil {
		t.Error("nil maps should read as empty")
	}
}
