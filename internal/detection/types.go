// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

package detection

import (
	"github.com/tomtom215/trailguard/internal/models"
)

// RuleID identifies a detection rule.
type RuleID string

// Rule evaluates one record of type R. Evaluate must be pure: no I/O, no
// retained state, and the same alerts for the same record.
type Rule[R any] interface {
	ID() RuleID
	Evaluate(rec R) []models.Alert
}

// RuleInfo describes a rule for listings.
type RuleInfo struct {
	ID          RuleID            `json:"id"`
	Source      models.SourceKind `json:"source"`
	ThreatType  string            `json:"threat_type,omitempty"`
	Severity    models.Severity   `json:"severity,omitempty"`
	Description string            `json:"description,omitempty"`
	Enabled     bool              `json:"enabled"`
}

// Describer is implemented by rules that can describe themselves.
type Describer interface {
	Describe() RuleInfo
}

// RuleFunc adapts a plain function into a Rule.
type RuleFunc[R any] struct {
	RuleID RuleID
	Fn     func(rec R) []models.Alert
}

// NewRuleFunc returns a Rule backed by fn.
func NewRuleFunc[R any](id RuleID, fn func(rec R) []models.Alert) RuleFunc[R] {
	return RuleFunc[R]{RuleID: id, Fn: fn}
}

// ID implements Rule.
func (f RuleFunc[R]) ID() RuleID { return f.RuleID }

// Evaluate implements Rule.
func (f RuleFunc[R]) Evaluate(rec R) []models.Alert {
	if f.Fn == nil {
		return nil
	}
	return f.Fn(rec)
}
