// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

package validation

import (
	"strings"
	"testing"
)

// ===================================================================================================
// Singleton Validator Tests
// ===================================================================================================

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}

	if v1 == nil {
		t.Error("GetValidator() should not return nil")
	}
}

// ===================================================================================================
// ValidateStruct Tests
// ===================================================================================================

type innerConfig struct {
	MinSeverity string   `validate:"severity"`
	KnownBadIPs []string `validate:"dive,ip_or_cidr"`
}

type testConfig struct {
	Path    string `validate:"required"`
	Mode    string `validate:"oneof=stream batch"`
	Workers int    `validate:"min=1,max=64"`
	Inner   innerConfig
}

func validConfig() testConfig {
	return testConfig{
		Path:    "alerts.json",
		Mode:    "stream",
		Workers: 4,
		Inner: innerConfig{
			MinSeverity: "medium",
			KnownBadIPs: []string{"192.0.2.1", "10.0.0.0/8", "2001:db8::1"},
		},
	}
}

func TestValidateStruct_Valid(t *testing.T) {
	cfg := validConfig()
	if err := ValidateStruct(&cfg); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*testConfig)
		wantTag string
		wantMsg string
	}{
		{
			name:    "missing path",
			mutate:  func(c *testConfig) { c.Path = "" },
			wantTag: "required",
			wantMsg: "Path is required",
		},
		{
			name:    "bad mode",
			mutate:  func(c *testConfig) { c.Mode = "parallel" },
			wantTag: "oneof",
			wantMsg: "Mode must be one of: stream batch",
		},
		{
			name:    "too many workers",
			mutate:  func(c *testConfig) { c.Workers = 1000 },
			wantTag: "max",
			wantMsg: "Workers must be at most 64",
		},
		{
			name:    "bad severity",
			mutate:  func(c *testConfig) { c.Inner.MinSeverity = "urgent" },
			wantTag: "severity",
			wantMsg: "Inner.MinSeverity must be one of: low, medium, high, critical",
		},
		{
			name:    "bad indicator",
			mutate:  func(c *testConfig) { c.Inner.KnownBadIPs = []string{"192.0.2.1", "evil.example"} },
			wantTag: "ip_or_cidr",
			wantMsg: "Inner.KnownBadIPs[1] must be an IP address or CIDR prefix",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := ValidateStruct(&cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			errs := err.Errors()
			if len(errs) != 1 {
				t.Fatalf("expected 1 error, got %d: %v", len(errs), err)
			}
			if errs[0].Tag() != tt.wantTag {
				t.Errorf("Tag() = %q, want %q", errs[0].Tag(), tt.wantTag)
			}
			if errs[0].Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", errs[0].Error(), tt.wantMsg)
			}
		})
	}
}

func TestValidateStruct_MultipleErrorsJoined(t *testing.T) {
	cfg := validConfig()
	cfg.Path = ""
	cfg.Workers = 0

	err := ValidateStruct(&cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(err.Errors()) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(err.Errors()))
	}
	if !strings.Contains(err.Error(), "; ") {
		t.Errorf("errors should be joined with '; ': %q", err.Error())
	}
	if err.Errors()[0].Namespace() == "" || err.Errors()[0].Value() == nil {
		t.Error("field metadata missing")
	}
}

func TestValidateStruct_NonStruct(t *testing.T) {
	err := ValidateStruct("not a struct")
	if err == nil {
		t.Fatal("expected error for non-struct input")
	}
	if err.Errors()[0].Tag() != "unknown" {
		t.Errorf("Tag() = %q, want unknown", err.Errors()[0].Tag())
	}
}

func TestEmptyStructValidationError(t *testing.T) {
	ve := &StructValidationError{}
	if ve.Error() != "validation failed" {
		t.Errorf("Error() = %q", ve.Error())
	}
}
