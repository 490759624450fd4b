// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

package config

import (
	"unicode/utf8"

	"github.com/tomtom215/trailguard/internal/logging"
	"github.com/tomtom215/trailguard/internal/models"
)

// Run modes.
const (
	ModeStream = "stream"
	ModeBatch  = "batch"
)

// Config holds the settings of one detection run.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in values from defaultConfig
//  2. Config File: optional YAML file (--config, TRAILGUARD_CONFIG, or a default path)
//  3. Environment Variables: TRAILGUARD_* overrides
//
// Command-line flags are applied by the CLI after Load and win over all layers.
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Input     InputConfig     `koanf:"input"`
	Output    OutputConfig    `koanf:"output"`
	Detection DetectionConfig `koanf:"detection"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// InputConfig controls how telemetry is read.
type InputConfig struct {
	// Path is a file or directory of telemetry. Usually set by --in.
	Path string `koanf:"path"`

	// Mode is stream (classify every line) or batch (pick the parser by file name).
	// Default: stream
	Mode string `koanf:"mode" validate:"oneof=stream batch"`

	// Workers is the number of files processed concurrently.
	// Default: 1
	Workers int `koanf:"workers" validate:"min=1,max=256"`

	// FlowDelimiter separates flow-record fields. A single character, or
	// "space" / "tab".
	// Default: ","
	FlowDelimiter string `koanf:"flow_delimiter" validate:"required"`

	// MaxLineBytes bounds the length of one input line.
	// Default: 8 MiB
	MaxLineBytes int `koanf:"max_line_bytes" validate:"min=1024"`
}

// OutputConfig controls the alert artifact.
type OutputConfig struct {
	// Path of the JSON array file. Usually set by --out.
	// Default: alerts.json
	Path string `koanf:"path" validate:"required"`

	// Fsync syncs the file after every alert.
	// Default: true
	Fsync bool `koanf:"fsync"`

	// MinSeverity drops alerts ranked below it.
	// Default: low
	MinSeverity string `koanf:"min_severity" validate:"severity"`
}

// DetectionConfig supplies the rule engine's reference data.
type DetectionConfig struct {
	// KnownBadIPs lists indicator addresses or CIDR prefixes.
	KnownBadIPs []string `koanf:"known_bad_ips" validate:"dive,ip_or_cidr"`

	// SensitiveBuckets lists bucket names whose bulk reads are exfiltration.
	SensitiveBuckets []string `koanf:"sensitive_buckets" validate:"dive,required"`

	// ExfilThresholdBytes is the strict lower bound for S3DataExfiltration.
	// Default: 1000000000
	ExfilThresholdBytes int64 `koanf:"exfil_threshold_bytes" validate:"min=1"`

	// DisabledRules lists rule ids to skip.
	DisabledRules []string `koanf:"disabled_rules" validate:"dive,required"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	// Textfile is written at the end of the run when set.
	Textfile string `koanf:"textfile"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// FlowComma returns the flow delimiter as a rune.
func (c *InputConfig) FlowComma() rune {
	switch c.FlowDelimiter {
	case "space":
		return ' '
	case "tab":
		return '\t'
	}
	r, _ := utf8.DecodeRuneInString(c.FlowDelimiter)
	return r
}

// MinSeverityLevel returns the parsed minimum severity, low when unset.
func (c *OutputConfig) MinSeverityLevel() models.Severity {
	sev, err := models.ParseSeverity(c.MinSeverity)
	if err != nil {
		return models.SeverityLow
	}
	return sev
}

// LoggingInit converts the section into a logging.Config.
func (c *LoggingConfig) LoggingInit() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Level
	cfg.Format = c.Format
	cfg.Caller = c.Caller
	return cfg
}
