// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

// Package sources parses raw input lines into typed records: audit events and
// threat findings from line-delimited JSON, flow records from delimited text.
//
// Malformed records are never fatal. The Parse functions report why a line was
// rejected; the sequence helpers drop rejected lines and, when a DropFunc is
// supplied, report each drop to it.
package sources

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/tomtom215/trailguard/internal/models"
	"github.com/tomtom215/trailguard/internal/reader"
)

var (
	// ErrBlank is returned for empty or whitespace-only lines.
	ErrBlank = errors.New("blank line")

	// ErrNotObject is returned when a line is not a single JSON object.
	ErrNotObject = errors.New("not a JSON object")

	// ErrShortRow is returned for flow rows with fewer than 14 fields.
	ErrShortRow = errors.New("flow row has too few fields")

	// ErrBadNumber is returned when a numeric flow field does not parse.
	ErrBadNumber = errors.New("non-numeric value in numeric flow field")
)

// Legacy whole-file input names.
const (
	CloudTrailFile = "cloudtrail.jsonl"
	GuardDutyFile  = "guardduty_findings.jsonl"
	VPCFlowFile    = "vpc_flow.csv"
)

// DropFunc receives every line a loader rejects, with the reason.
type DropFunc func(line reader.Line, kind models.SourceKind, err error)

// KindForFile maps a legacy input file name to its source kind. A trailing
// .gz is ignored. ok is false for any other name.
func KindForFile(path string) (kind models.SourceKind, ok bool) {
	name := strings.ToLower(filepath.Base(path))
	name = strings.TrimSuffix(name, ".gz")

	switch name {
	case CloudTrailFile:
		return models.SourceCloudTrail, true
	case GuardDutyFile:
		return models.SourceGuardDuty, true
	case VPCFlowFile:
		return models.SourceVPCFlow, true
	default:
		return "", false
	}
}
