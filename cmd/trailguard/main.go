// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

// Package main is the entry point for the trailguard command.
//
// trailguard reads CloudTrail events, GuardDuty findings and VPC flow records
// from a file or directory, evaluates them against the detection rules, and
// writes alerts as a JSON array. See internal/cli for the command surface and
// internal/config for the configuration layers.
//
// # Example Usage
//
//	trailguard detect --in ./data --out out/alerts.json
//	TRAILGUARD_WORKERS=4 TRAILGUARD_LOG_FORMAT=console trailguard detect --in ./data
//	trailguard grade --alerts out/alerts.json --truth data/truth.json
//
// # Exit Status
//
// 0 on success, 1 on any error including an interrupted run.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tomtom215/trailguard/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
