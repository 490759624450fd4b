// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

package cli

import (
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/trailguard/internal/grade"
)

func newGradeCommand() *cobra.Command {
	var (
		alertsPath string
		truthPath  string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Score an alert file against labelled truth",
		Long: `Compare the alerts produced by detect with a truth file and report true
positives, false positives, false negatives, precision and recall.

Entries match on (event_id or finding_id, threat_type).

Examples:
  trailguard grade --truth data/truth.json
  trailguard grade --alerts out/alerts.json --truth data/truth.json --json
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := grade.GradeFiles(truthPath, alertsPath)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return report.WriteText(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&alertsPath, "alerts", "a", "alerts.json", "Alert file written by detect")
	cmd.Flags().StringVarP(&truthPath, "truth", "t", "", "Truth file (required)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	_ = cmd.MarkFlagRequired("truth")
	return cmd
}
