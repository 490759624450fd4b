// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

// Package models defines the records Trailguard ingests (audit events,
// threat findings, flow records) and the Alert it emits.
package models
