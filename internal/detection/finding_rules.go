// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

package detection

import (
	"fmt"
	"strings"

	"github.com/tomtom215/trailguard/internal/models"
)

// FindingTypeRule maps findings whose type contains a substring to one alert.
type FindingTypeRule struct {
	RuleID     RuleID
	Substring  string
	ThreatType string
	Severity   models.Severity
	Reason     string
}

// DefaultFindingRules returns the built-in finding-type table, in evaluation order.
func DefaultFindingRules() []*FindingTypeRule {
	return []*FindingTypeRule{
		{
			RuleID:     "guardduty_anonymous_ip_caller",
			Substring:  "UnauthorizedAccess:AnonymousIPCaller",
			ThreatType: "GD_UnauthorizedAccess_AnonymousIP",
			Severity:   models.SeverityHigh,
			Reason:     "API invoked from an anonymizing proxy or Tor exit node",
		},
		{
			RuleID:     "guardduty_port_probe",
			Substring:  "Recon:EC2/PortProbeUnprotectedPort",
			ThreatType: "GD_Recon_PortProbe",
			Severity:   models.SeverityMedium,
			Reason:     "unprotected port on an EC2 instance is being probed",
		},
		{
			RuleID:     "guardduty_bitcoin_tool",
			Substring:  "CryptoCurrency:EC2/BitcoinTool",
			ThreatType: "GD_CryptoCurrency_BitcoinTool",
			Severity:   models.SeverityHigh,
			Reason:     "EC2 instance is communicating with cryptocurrency infrastructure",
		},
		{
			RuleID:     "guardduty_dns_exfiltration",
			Substring:  "Trojan:EC2/DNSDataExfiltration",
			ThreatType: "GD_Trojan_DNSExfiltration",
			Severity:   models.SeverityCritical,
			Reason:     "EC2 instance is exfiltrating data through DNS queries",
		},
	}
}

// ID implements Rule.
func (r *FindingTypeRule) ID() RuleID { return r.RuleID }

// Describe implements Describer.
func (r *FindingTypeRule) Describe() RuleInfo {
	return RuleInfo{
		ID:          r.RuleID,
		Source:      models.SourceGuardDuty,
		ThreatType:  r.ThreatType,
		Severity:    r.Severity,
		Description: fmt.Sprintf("finding type contains %q", r.Substring),
	}
}

// Evaluate implements Rule.
func (r *FindingTypeRule) Evaluate(f models.Finding) []models.Alert {
	if r.Substring == "" || !strings.Contains(f.Type, r.Substring) {
		return nil
	}
	return []models.Alert{{
		ThreatType: r.ThreatType,
		Severity:   r.Severity,
		Reason:     r.Reason,
		FindingID:  f.ID,
		Source:     models.SourceGuardDuty,
	}}
}
