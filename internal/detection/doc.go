// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

// Package detection maps single records to zero or more alerts.
//
// Detection Architecture:
//
//	AuditEvent  -> audit rules   -+
//	Finding     -> finding rules -+-> iter.Seq[models.Alert]
//	FlowRecord  -> flow rules    -+
//
// The Engine holds three ordered rule lists, one per source kind, and a
// ReferenceData snapshot (known-bad IPs, sensitive buckets, exfiltration
// threshold) injected at construction. Evaluation is pure: the same record
// always yields the same alerts in the same order, and no state is kept
// between records. Alerts carry no timestamp; the caller stamps them.
//
// Built-in Rules:
//   - iam_privilege_tampering: DeleteUser from a known-bad IP (high)
//   - s3_data_exfiltration: large GetObject from a sensitive bucket (critical)
//   - console_login_no_mfa: console login without MFA from a known-bad IP (medium)
//   - guardduty_*: one rule per known finding-type substring
//
// No flow rules are registered by default. WithFlowRules adds them.
package detection
