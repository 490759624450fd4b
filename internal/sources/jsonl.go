// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

package sources

import (
	"fmt"
	"iter"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/trailguard/internal/models"
	"github.com/tomtom215/trailguard/internal/reader"
)

// ParseAuditEvent parses one line-delimited JSON audit event.
func ParseAuditEvent(text string) (models.AuditEvent, error) {
	var ev models.AuditEvent
	if err := decodeObject(text, &ev); err != nil {
		return models.AuditEvent{}, err
	}
	return ev, nil
}

// ParseFinding parses one line-delimited JSON threat finding.
func ParseFinding(text string) (models.Finding, error) {
	var f models.Finding
	if err := decodeObject(text, &f); err != nil {
		return models.Finding{}, err
	}
	return f, nil
}

// decodeObject unmarshals text into v, accepting only a single JSON object.
func decodeObject(text string, v any) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrBlank
	}
	if trimmed[0] != '{' {
		return ErrNotObject
	}
	if err := json.Unmarshal([]byte(trimmed), v); err != nil {
		return fmt.Errorf("%w: %w", ErrNotObject, err)
	}
	return nil
}

// AuditEvents adapts a line sequence into parsed audit events. Blank lines are
// skipped; unparseable lines are dropped and reported to drop when non-nil.
func AuditEvents(lines iter.Seq[reader.Line], drop DropFunc) iter.Seq2[reader.Line, models.AuditEvent] {
	return parsed(lines, models.SourceCloudTrail, drop, ParseAuditEvent)
}

// Findings adapts a line sequence into parsed threat findings.
func Findings(lines iter.Seq[reader.Line], drop DropFunc) iter.Seq2[reader.Line, models.Finding] {
	return parsed(lines, models.SourceGuardDuty, drop, ParseFinding)
}

// parsed is the shared body of the typed sequence helpers.
func parsed[T any](
	lines iter.Seq[reader.Line],
	kind models.SourceKind,
	drop DropFunc,
	parse func(string) (T, error),
) iter.Seq2[reader.Line, T] {
	return func(yield func(reader.Line, T) bool) {
		for line := range lines {
			rec, err := parse(line.Text)
			if err == ErrBlank {
				continue
			}
			if err != nil {
				if drop != nil {
					drop(line, kind, err)
				}
				continue
			}
			if !yield(line, rec) {
				return
			}
		}
	}
}
