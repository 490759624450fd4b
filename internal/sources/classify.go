// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

package sources

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/trailguard/internal/models"
)

// ErrUnrecognized is returned by Classify for lines that match no source layout.
var ErrUnrecognized = errors.New("unrecognized record")

// Record is one classified input line. Exactly one of Audit, Finding and Flow
// is set, matching Kind.
type Record struct {
	Kind    models.SourceKind
	Audit   *models.AuditEvent
	Finding *models.Finding
	Flow    *models.FlowRecord
}

// probe holds the discriminating keys of the JSON record layouts.
type probe struct {
	EventSource string `json:"eventSource"`
	EventName   string `json:"eventName"`
	EventID     string `json:"eventID"`
	Type        string `json:"type"`
	ID          string `json:"id"`
	Service     any    `json:"service"`
}

// Classify decides which source a line belongs to and parses it.
//
// JSON objects carrying eventSource or eventName are audit events; objects
// carrying a type and an id or service block are findings. A non-JSON line
// with at least 14 delimited fields is a flow row. A line that is recognized
// but malformed returns its Kind together with the parse error, so callers can
// tell a bad record from an unrecognized one.
func Classify(text string, comma rune) (Record, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Record{}, ErrBlank
	}

	if trimmed[0] == '{' {
		return classifyObject(trimmed)
	}
	if trimmed[0] == '[' {
		return Record{}, ErrUnrecognized
	}

	fields, err := SplitFlowFields(trimmed, comma)
	if err != nil || len(fields) < models.FlowFieldCount {
		return Record{}, ErrUnrecognized
	}
	flow, err := flowFromFields(fields)
	if err != nil {
		return Record{Kind: models.SourceVPCFlow}, err
	}
	return Record{Kind: models.SourceVPCFlow, Flow: &flow}, nil
}

func classifyObject(text string) (Record, error) {
	var p probe
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrUnrecognized, err)
	}

	switch {
	case p.EventSource != "" || p.EventName != "":
		ev, err := ParseAuditEvent(text)
		if err != nil {
			return Record{Kind: models.SourceCloudTrail}, err
		}
		return Record{Kind: models.SourceCloudTrail, Audit: &ev}, nil
	case p.Type != "" && (p.ID != "" || p.Service != nil):
		f, err := ParseFinding(text)
		if err != nil {
			return Record{Kind: models.SourceGuardDuty}, err
		}
		return Record{Kind: models.SourceGuardDuty, Finding: &f}, nil
	default:
		return Record{}, ErrUnrecognized
	}
}
