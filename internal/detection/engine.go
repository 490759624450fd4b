// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

package detection

import (
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/tomtom215/trailguard/internal/logging"
	"github.com/tomtom215/trailguard/internal/models"
)

// ErrUnknownRule is returned when a disabled rule id matches no registered rule.
var ErrUnknownRule = errors.New("unknown rule")

// Engine evaluates records against the registered rules. It is immutable
// after construction and safe for concurrent use.
type Engine struct {
	ref      *ReferenceData
	audit    []Rule[models.AuditEvent]
	findings []Rule[models.Finding]
	flows    []Rule[models.FlowRecord]
	catalog  []RuleInfo
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	audit    []Rule[models.AuditEvent]
	findings []Rule[models.Finding]
	flows    []Rule[models.FlowRecord]
	disabled []RuleID
}

// WithAuditRules appends audit rules after the built-in ones.
func WithAuditRules(rules ...Rule[models.AuditEvent]) Option {
	return func(o *engineOptions) { o.audit = append(o.audit, rules...) }
}

// WithFindingRules appends finding rules after the built-in ones.
func WithFindingRules(rules ...Rule[models.Finding]) Option {
	return func(o *engineOptions) { o.findings = append(o.findings, rules...) }
}

// WithFlowRules registers flow rules. There are none by default.
func WithFlowRules(rules ...Rule[models.FlowRecord]) Option {
	return func(o *engineOptions) { o.flows = append(o.flows, rules...) }
}

// WithDisabledRules removes rules by id. Unknown ids make NewEngine fail.
func WithDisabledRules(ids ...RuleID) Option {
	return func(o *engineOptions) { o.disabled = append(o.disabled, ids...) }
}

// NewEngine creates an engine with the built-in rules bound to ref, plus any
// rules added through options. A nil ref selects DefaultReferenceData.
func NewEngine(ref *ReferenceData, opts ...Option) (*Engine, error) {
	if ref == nil {
		ref = DefaultReferenceData()
	}

	o := engineOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	audit := []Rule[models.AuditEvent]{
		NewIAMPrivilegeTamperingRule(ref),
		NewS3DataExfiltrationRule(ref),
		NewConsoleLoginNoMFARule(ref),
	}
	audit = append(audit, o.audit...)

	var findings []Rule[models.Finding]
	for _, r := range DefaultFindingRules() {
		findings = append(findings, r)
	}
	findings = append(findings, o.findings...)

	e := &Engine{ref: ref}
	disabled := make(map[RuleID]bool, len(o.disabled))
	for _, id := range o.disabled {
		disabled[id] = true
	}

	e.audit = register(e, models.SourceCloudTrail, audit, disabled)
	e.findings = register(e, models.SourceGuardDuty, findings, disabled)
	e.flows = register(e, models.SourceVPCFlow, o.flows, disabled)

	for id := range disabled {
		if !slices.ContainsFunc(e.catalog, func(info RuleInfo) bool { return info.ID == id }) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRule, id)
		}
	}

	return e, nil
}

// register records every rule in the catalog and returns the enabled ones.
func register[R any](e *Engine, source models.SourceKind, rules []Rule[R], disabled map[RuleID]bool) []Rule[R] {
	enabled := make([]Rule[R], 0, len(rules))
	for _, r := range rules {
		info := RuleInfo{ID: r.ID(), Source: source}
		if d, ok := r.(Describer); ok {
			info = d.Describe()
			info.Source = source
		}
		info.Enabled = !disabled[r.ID()]
		e.catalog = append(e.catalog, info)

		if !info.Enabled {
			logging.Debug().Str("rule", string(r.ID())).Msg("rule disabled")
			continue
		}
		enabled = append(enabled, r)
		logging.Debug().Str("rule", string(r.ID())).Str("source", string(source)).Msg("registered rule")
	}
	return enabled
}

// AuditAlerts yields the alerts an audit event triggers, in rule order.
func (e *Engine) AuditAlerts(ev models.AuditEvent) iter.Seq[models.Alert] {
	return evaluate(e.audit, ev)
}

// FindingAlerts yields the alerts a finding triggers, in rule order.
func (e *Engine) FindingAlerts(f models.Finding) iter.Seq[models.Alert] {
	return evaluate(e.findings, f)
}

// FlowAlerts yields the alerts a flow record triggers. Empty unless flow rules
// were registered.
func (e *Engine) FlowAlerts(rec models.FlowRecord) iter.Seq[models.Alert] {
	return evaluate(e.flows, rec)
}

func evaluate[R any](rules []Rule[R], rec R) iter.Seq[models.Alert] {
	return func(yield func(models.Alert) bool) {
		for _, r := range rules {
			for _, alert := range r.Evaluate(rec) {
				if !yield(alert) {
					return
				}
			}
		}
	}
}

// Rules lists every registered rule, disabled ones included, in evaluation order.
func (e *Engine) Rules() []RuleInfo {
	return slices.Clone(e.catalog)
}

// ReferenceData returns the reference data the engine was built with.
func (e *Engine) ReferenceData() *ReferenceData {
	return e.ref
}
