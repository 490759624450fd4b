// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

// Package validation provides struct validation using go-playground/validator v10.
//
// # Overview
//
// The package provides:
//   - Thread-safe singleton validator (initialized once, cached struct info)
//   - Error translation to human-readable messages keyed by field path
//   - Custom tags for the detection domain
//
// # Quick Start
//
//	type OutputConfig struct {
//	    Path        string `validate:"required"`
//	    MinSeverity string `validate:"severity"`
//	}
//
//	if verr := validation.ValidateStruct(&cfg); verr != nil {
//	    return fmt.Errorf("invalid configuration: %w", verr)
//	}
//
// # Custom Validation Tags
//
//   - severity: one of low, medium, high, critical
//   - ip_or_cidr: a single IPv4/IPv6 address or a CIDR prefix
//
// Use dive to apply a tag to every slice element:
//
//	KnownBadIPs []string `validate:"dive,ip_or_cidr"`
//
// # Thread Safety
//
// GetValidator and ValidateStruct are safe for concurrent use.
package validation
