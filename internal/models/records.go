// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

package models

// SourceKind identifies the telemetry source a record came from.
type SourceKind string

const (
	SourceCloudTrail SourceKind = "cloudtrail"
	SourceGuardDuty  SourceKind = "guardduty"
	SourceVPCFlow    SourceKind = "vpcflow"
)

// UserIdentity is the caller block of an audit event.
type UserIdentity struct {
	Type     string `json:"type,omitempty"`
	ARN      string `json:"arn,omitempty"`
	UserName string `json:"userName,omitempty"`
}

// AuditEvent is one API call recorded by the cloud audit trail.
type AuditEvent struct {
	EventID             string         `json:"eventID,omitempty"`
	EventTime           string         `json:"eventTime,omitempty"`
	EventSource         string         `json:"eventSource"`
	EventName           string         `json:"eventName"`
	AWSRegion           string         `json:"awsRegion,omitempty"`
	SourceIPAddress     string         `json:"sourceIPAddress,omitempty"`
	UserIdentity        UserIdentity   `json:"userIdentity"`
	RequestParameters   map[string]any `json:"requestParameters,omitempty"`
	AdditionalEventData map[string]any `json:"additionalEventData,omitempty"`
}

// RequestParam returns a request parameter as a string, or "" if absent or not a string.
func (e *AuditEvent) RequestParam(key string) string {
	s, _ := e.RequestParameters[key].(string)
	return s
}

// AdditionalData returns an additional event data value, or nil if absent.
func (e *AuditEvent) AdditionalData(key string) any {
	return e.AdditionalEventData[key]
}

// FindingService carries the detection service's own observation window.
type FindingService struct {
	EventFirstSeen string `json:"eventFirstSeen,omitempty"`
	EventLastSeen  string `json:"eventLastSeen,omitempty"`
	Count          int    `json:"count,omitempty"`
}

// Finding is a pre-classified observation from the managed threat-detection service.
// Severity ranges from 0.0 to 8.0.
type Finding struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Severity  float64        `json:"severity"`
	Title     string         `json:"title,omitempty"`
	AccountID string         `json:"accountId,omitempty"`
	Region    string         `json:"region,omitempty"`
	Service   FindingService `json:"service"`
}

// FlowFieldCount is the minimum number of fields in a flow row.
const FlowFieldCount = 14

// FlowRecord is one summarized network connection in the default flow-log column order.
type FlowRecord struct {
	Version     string
	Account     string
	InterfaceID string
	SrcAddr     string
	DstAddr     string
	SrcPort     int
	DstPort     int
	Protocol    int
	Packets     int64
	Bytes       int64
	Start       int64
	End         int64
	Action      string
	Status      string
}
