// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/trailguard/internal/detection"
	"github.com/tomtom215/trailguard/internal/reader"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"trailguard.yaml",
	"trailguard.yml",
	"/etc/trailguard/config.yaml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "TRAILGUARD_CONFIG"

// envPrefix scopes the environment layer to TRAILGUARD_* variables.
const envPrefix = "TRAILGUARD_"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			Mode:          ModeStream,
			Workers:       1,
			FlowDelimiter: ",",
			MaxLineBytes:  reader.DefaultMaxLineBytes,
		},
		Output: OutputConfig{
			Path:        "alerts.json",
			Fsync:       true,
			MinSeverity: "low",
		},
		Detection: DetectionConfig{
			KnownBadIPs:         append([]string(nil), detection.DefaultKnownBadIPs...),
			SensitiveBuckets:    append([]string(nil), detection.DefaultSensitiveBuckets...),
			ExfilThresholdBytes: detection.DefaultExfilThresholdBytes,
			DisabledRules:       []string{},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	return defaultConfig()
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: explicitPath, else TRAILGUARD_CONFIG, else the first of DefaultConfigPaths
//  3. Environment Variables: TRAILGUARD_* overrides
//
// An explicitPath that does not exist is an error; a missing default file is not.
func Load(explicitPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath, err := findConfigFile(explicitPath)
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// TRAILGUARD_MIN_SEVERITY -> output.min_severity
	if err := k.Load(env.Provider(envPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile resolves the config file to load, or "" for none.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicitPath, err)
		}
		return explicitPath, nil
	}

	// Check environment variable next
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("config file %s (from %s): %w", envPath, ConfigPathEnvVar, err)
		}
		return envPath, nil
	}

	// Search default paths
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", nil
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"detection.known_bad_ips",
	"detection.sensitive_buckets",
	"detection.disabled_rules",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// This is necessary because env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// If it's already a slice (from YAML file or defaults), skip
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		// An empty variable clears the list.
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lowercased TRAILGUARD_* variables to koanf paths.
var envMappings = map[string]string{
	// Input
	"trailguard_input":          "input.path",
	"trailguard_mode":           "input.mode",
	"trailguard_workers":        "input.workers",
	"trailguard_flow_delimiter": "input.flow_delimiter",
	"trailguard_max_line_bytes": "input.max_line_bytes",

	// Output
	"trailguard_output":       "output.path",
	"trailguard_fsync":        "output.fsync",
	"trailguard_min_severity": "output.min_severity",

	// Detection reference data
	"trailguard_known_bad_ips":         "detection.known_bad_ips",
	"trailguard_sensitive_buckets":     "detection.sensitive_buckets",
	"trailguard_exfil_threshold_bytes": "detection.exfil_threshold_bytes",
	"trailguard_disabled_rules":        "detection.disabled_rules",

	// Metrics
	"trailguard_metrics_textfile": "metrics.textfile",

	// Logging
	"trailguard_log_level":  "logging.level",
	"trailguard_log_format": "logging.format",
	"trailguard_log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unmapped variables, TRAILGUARD_CONFIG included, return "" and are ignored.
//
// Examples:
//   - TRAILGUARD_WORKERS -> input.workers
//   - TRAILGUARD_KNOWN_BAD_IPS -> detection.known_bad_ips
//   - TRAILGUARD_LOG_LEVEL -> logging.level
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
