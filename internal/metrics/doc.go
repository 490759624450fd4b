// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

/*
Package metrics provides Prometheus instrumentation for detection runs.

Every metric lives on a dedicated Registry rather than the default one. A run
is a short-lived process with no HTTP listener, so the registry is exported by
writing a node_exporter textfile at the end of the run:

	trailguard detect --in logs/ --config trailguard.yaml
	# metrics.textfile: /var/lib/node_exporter/textfile/trailguard.prom

# Available Metrics

Input Metrics:
  - trailguard_lines_read_total: Physical lines read (counter)
  - trailguard_records_processed_total: Records evaluated (counter)
    Labels: source
  - trailguard_records_dropped_total: Lines dropped before evaluation (counter)
    Labels: source, reason (malformed, unrecognized, failed)
  - trailguard_files_skipped_total: Unreadable or unrecognized files (counter)

Alert Metrics:
  - trailguard_alerts_emitted_total: Alerts handed to the sink (counter)
    Labels: threat_type, severity
  - trailguard_alerts_filtered_total: Alerts below the minimum severity (counter)
  - trailguard_sink_failures_total: Alerts the sink could not write (counter)

Run Metrics:
  - trailguard_run_duration_seconds: Run wall time (histogram)
    Labels: mode, status
  - trailguard_last_run_timestamp_seconds: Finish time of the last run (gauge)

Go runtime and process collectors are registered as well.

# Usage

	metrics.RecordRecord("cloudtrail")
	metrics.RecordAlert("S3DataExfiltration", "critical")
	if err := metrics.WriteTextfile(path); err != nil {
		logging.Warn().Err(err).Msg("metrics not written")
	}

# Thread Safety

All Record functions are safe for concurrent use.
*/
package metrics
