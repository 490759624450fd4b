// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

package detection

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/trailguard/internal/models"
)

// Audit rule identifiers.
const (
	RuleIAMPrivilegeTampering RuleID = "iam_privilege_tampering"
	RuleS3DataExfiltration    RuleID = "s3_data_exfiltration"
	RuleConsoleLoginNoMFA     RuleID = "console_login_no_mfa"
)

// Audit threat types.
const (
	ThreatIAMPrivilegeTampering = "IAMPrivilegeTampering"
	ThreatS3DataExfiltration    = "S3DataExfiltration"
	ThreatConsoleLoginNoMFA     = "ConsoleLoginNoMFAAnomalousIP"
)

const (
	iamEventSource = "iam.amazonaws.com"
	s3EventSource  = "s3.amazonaws.com"
)

// IAMPrivilegeTamperingRule flags user deletion from a known-bad IP.
type IAMPrivilegeTamperingRule struct {
	ref *ReferenceData
}

// NewIAMPrivilegeTamperingRule creates the rule.
func NewIAMPrivilegeTamperingRule(ref *ReferenceData) *IAMPrivilegeTamperingRule {
	return &IAMPrivilegeTamperingRule{ref: ref}
}

// ID implements Rule.
func (r *IAMPrivilegeTamperingRule) ID() RuleID { return RuleIAMPrivilegeTampering }

// Describe implements Describer.
func (r *IAMPrivilegeTamperingRule) Describe() RuleInfo {
	return RuleInfo{
		ID:          RuleIAMPrivilegeTampering,
		Source:      models.SourceCloudTrail,
		ThreatType:  ThreatIAMPrivilegeTampering,
		Severity:    models.SeverityHigh,
		Description: "IAM DeleteUser called from a known-bad IP",
	}
}

// Evaluate implements Rule.
func (r *IAMPrivilegeTamperingRule) Evaluate(ev models.AuditEvent) []models.Alert {
	if ev.EventSource != iamEventSource || ev.EventName != "DeleteUser" {
		return nil
	}
	if !r.ref.IsKnownBadIP(ev.SourceIPAddress) {
		return nil
	}
	return []models.Alert{{
		ThreatType: ThreatIAMPrivilegeTampering,
		Severity:   models.SeverityHigh,
		Reason:     fmt.Sprintf("IAM user deletion from known-bad IP %s", ev.SourceIPAddress),
		EventID:    ev.EventID,
		Source:     models.SourceCloudTrail,
	}}
}

// S3DataExfiltrationRule flags large object reads from sensitive buckets.
type S3DataExfiltrationRule struct {
	ref *ReferenceData
}

// NewS3DataExfiltrationRule creates the rule.
func NewS3DataExfiltrationRule(ref *ReferenceData) *S3DataExfiltrationRule {
	return &S3DataExfiltrationRule{ref: ref}
}

// ID implements Rule.
func (r *S3DataExfiltrationRule) ID() RuleID { return RuleS3DataExfiltration }

// Describe implements Describer.
func (r *S3DataExfiltrationRule) Describe() RuleInfo {
	return RuleInfo{
		ID:          RuleS3DataExfiltration,
		Source:      models.SourceCloudTrail,
		ThreatType:  ThreatS3DataExfiltration,
		Severity:    models.SeverityCritical,
		Description: fmt.Sprintf("S3 GetObject from a sensitive bucket above %d bytes", r.ref.ExfilThreshold()),
	}
}

// Evaluate implements Rule.
func (r *S3DataExfiltrationRule) Evaluate(ev models.AuditEvent) []models.Alert {
	if ev.EventSource != s3EventSource || ev.EventName != "GetObject" {
		return nil
	}
	bucket := ev.RequestParam("bucketName")
	if !r.ref.IsSensitiveBucket(bucket) {
		return nil
	}
	n, ok := numericValue(ev.AdditionalData("bytesTransferredOut"))
	if !ok || !r.ref.ExceedsExfilThreshold(n) {
		return nil
	}
	return []models.Alert{{
		ThreatType: ThreatS3DataExfiltration,
		Severity:   models.SeverityCritical,
		Reason: fmt.Sprintf("%s bytes read from sensitive bucket %s (threshold %d)",
			strconv.FormatFloat(n, 'f', -1, 64), bucket, r.ref.ExfilThreshold()),
		EventID: ev.EventID,
		Source:  models.SourceCloudTrail,
	}}
}

// ConsoleLoginNoMFARule flags console logins without MFA from a known-bad IP.
type ConsoleLoginNoMFARule struct {
	ref *ReferenceData
}

// NewConsoleLoginNoMFARule creates the rule.
func NewConsoleLoginNoMFARule(ref *ReferenceData) *ConsoleLoginNoMFARule {
	return &ConsoleLoginNoMFARule{ref: ref}
}

// ID implements Rule.
func (r *ConsoleLoginNoMFARule) ID() RuleID { return RuleConsoleLoginNoMFA }

// Describe implements Describer.
func (r *ConsoleLoginNoMFARule) Describe() RuleInfo {
	return RuleInfo{
		ID:          RuleConsoleLoginNoMFA,
		Source:      models.SourceCloudTrail,
		ThreatType:  ThreatConsoleLoginNoMFA,
		Severity:    models.SeverityMedium,
		Description: "Console login without MFA from a known-bad IP",
	}
}

// Evaluate implements Rule.
func (r *ConsoleLoginNoMFARule) Evaluate(ev models.AuditEvent) []models.Alert {
	if ev.EventName != "ConsoleLogin" {
		return nil
	}
	if mfa, _ := ev.AdditionalData("MFAUsed").(string); mfa != "No" {
		return nil
	}
	if !r.ref.IsKnownBadIP(ev.SourceIPAddress) {
		return nil
	}
	return []models.Alert{{
		ThreatType: ThreatConsoleLoginNoMFA,
		Severity:   models.SeverityMedium,
		Reason:     fmt.Sprintf("console login without MFA from known-bad IP %s", ev.SourceIPAddress),
		EventID:    ev.EventID,
		Source:     models.SourceCloudTrail,
	}}
}

// numericValue accepts JSON numbers and numeric strings.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
