// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

package sources

import (
	"encoding/csv"
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/tomtom215/trailguard/internal/models"
	"github.com/tomtom215/trailguard/internal/reader"
)

// DefaultFlowDelimiter is the field separator of the CSV flow export.
const DefaultFlowDelimiter = ','

// SplitFlowFields splits a flow row on comma. A comma of ' ' splits on runs of
// whitespace, which is the layout of the native flow-log text format. Any
// other delimiter is parsed as CSV so quoted fields survive.
func SplitFlowFields(text string, comma rune) ([]string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrBlank
	}
	if comma == ' ' {
		return strings.Fields(trimmed), nil
	}

	r := csv.NewReader(strings.NewReader(trimmed))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true

	fields, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrShortRow, err)
	}
	return fields, nil
}

// ParseFlowRecord parses one delimited flow row. Rows with fewer than 14
// fields fail with ErrShortRow, rows with a non-numeric port, protocol,
// counter or epoch field fail with ErrBadNumber. Fields past the 14th are ignored.
func ParseFlowRecord(text string, comma rune) (models.FlowRecord, error) {
	fields, err := SplitFlowFields(text, comma)
	if err != nil {
		return models.FlowRecord{}, err
	}
	return flowFromFields(fields)
}

func flowFromFields(f []string) (models.FlowRecord, error) {
	if len(f) < models.FlowFieldCount {
		return models.FlowRecord{}, fmt.Errorf("%w: got %d, want %d", ErrShortRow, len(f), models.FlowFieldCount)
	}

	p := numberParser{fields: f}
	rec := models.FlowRecord{
		Version:     f[0],
		Account:     f[1],
		InterfaceID: f[2],
		SrcAddr:     f[3],
		DstAddr:     f[4],
		SrcPort:     p.int(5, "srcport"),
		DstPort:     p.int(6, "dstport"),
		Protocol:    p.int(7, "protocol"),
		Packets:     p.int64(8, "packets"),
		Bytes:       p.int64(9, "bytes"),
		Start:       p.int64(10, "start"),
		End:         p.int64(11, "end"),
		Action:      f[12],
		Status:      f[13],
	}
	if p.err != nil {
		return models.FlowRecord{}, p.err
	}
	return rec, nil
}

// numberParser keeps the first conversion error so a row is parsed in one pass.
type numberParser struct {
	fields []string
	err    error
}

func (p *numberParser) int64(i int, name string) int64 {
	if p.err != nil {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimSpace(p.fields[i]), 10, 64)
	if err != nil {
		p.err = fmt.Errorf("%w: %s=%q", ErrBadNumber, name, p.fields[i])
		return 0
	}
	return n
}

func (p *numberParser) int(i int, name string) int {
	return int(p.int64(i, name))
}

// FlowRecords adapts a line sequence into parsed flow records. Short and
// non-numeric rows are dropped and reported to drop when non-nil.
func FlowRecords(lines iter.Seq[reader.Line], comma rune, drop DropFunc) iter.Seq2[reader.Line, models.FlowRecord] {
	return parsed(lines, models.SourceVPCFlow, drop, func(text string) (models.FlowRecord, error) {
		return ParseFlowRecord(text, comma)
	})
}
