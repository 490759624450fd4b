// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

/*
Package config loads run configuration with Koanf v2.

# Layers

Sources are applied in order, later layers overriding earlier ones:

 1. Built-in defaults
 2. A YAML file: the --config flag, else TRAILGUARD_CONFIG, else the first
    existing path in DefaultConfigPaths
 3. TRAILGUARD_* environment variables

The CLI applies its own flags on top of the loaded Config.

# Example File

	input:
	  mode: stream
	  workers: 4
	  flow_delimiter: ","
	output:
	  path: out/alerts.json
	  min_severity: medium
	detection:
	  known_bad_ips: [203.0.113.66, 45.155.205.0/24]
	  sensitive_buckets: [prod-customer-data]
	  exfil_threshold_bytes: 1000000000
	  disabled_rules: [console_login_no_mfa]
	metrics:
	  textfile: /var/lib/node_exporter/textfile/trailguard.prom
	logging:
	  level: info
	  format: console

# Environment Variables

	TRAILGUARD_MODE, TRAILGUARD_WORKERS, TRAILGUARD_FLOW_DELIMITER,
	TRAILGUARD_MAX_LINE_BYTES, TRAILGUARD_INPUT, TRAILGUARD_OUTPUT,
	TRAILGUARD_FSYNC, TRAILGUARD_MIN_SEVERITY, TRAILGUARD_KNOWN_BAD_IPS,
	TRAILGUARD_SENSITIVE_BUCKETS, TRAILGUARD_EXFIL_THRESHOLD_BYTES,
	TRAILGUARD_DISABLED_RULES, TRAILGUARD_METRICS_TEXTFILE,
	TRAILGUARD_LOG_LEVEL, TRAILGUARD_LOG_FORMAT, TRAILGUARD_LOG_CALLER

List variables are comma-separated. An empty list variable clears the list.

# Validation

Load validates the result through internal/validation; an invalid value
fails the whole load.
*/
package config
