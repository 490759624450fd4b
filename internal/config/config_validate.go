// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

package config

import (
	"fmt"
	"unicode/utf8"

	"github.com/tomtom215/trailguard/internal/logging"
	"github.com/tomtom215/trailguard/internal/validation"
)

// Validate checks struct tags first, then the rules tags cannot express.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	if err := validateFlowDelimiter(c.Input.FlowDelimiter); err != nil {
		return err
	}

	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level %q is not a valid level", c.Logging.Level)
	}

	return nil
}

func validateFlowDelimiter(d string) error {
	switch d {
	case "space", "tab":
		return nil
	}
	if utf8.RuneCountInString(d) != 1 {
		return fmt.Errorf("input.flow_delimiter must be a single character, \"space\" or \"tab\": got %q", d)
	}
	if d == "\n" || d == "\r" || d == "\"" {
		return fmt.Errorf("input.flow_delimiter %q cannot be used as a field separator", d)
	}
	return nil
}
