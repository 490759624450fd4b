// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

// Package logging provides centralized zerolog-based structured logging for Trailguard.
//
// All diagnostics (warnings about skipped files, dropped records, sink
// failures) go to stderr through this package. Standard output is left to
// the CLI for progress and summary lines.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "console",
//	})
//
//	logging.Info().Str("input", path).Msg("pipeline run started")
//	logging.Warn().Err(err).Str("path", path).Msg("skipping unreadable file")
//
// # Run Correlation
//
// Every pipeline run gets a short run id stored in its context:
//
//	ctx = logging.ContextWithRunID(ctx, logging.GenerateRunID())
//	logging.Ctx(ctx).Info().Msg("processing")
//
// # Record Logging
//
// RecordLogger wraps the per-record events of a run (dropped, unrecognized,
// failed, alert emitted) so their field names stay consistent.
//
// # Testing
//
//	var buf bytes.Buffer
//	logging.SetLogger(logging.NewTestLogger(&buf))
package logging
