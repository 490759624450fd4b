// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func newRulesCommand(root *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the detection rules and their state",
		Long: `List every registered detection rule with its source, threat type, severity
and whether the loaded configuration disables it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			engine, err := newEngine(cfg)
			if err != nil {
				return err
			}
			rules := engine.Rules()

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rules)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSOURCE\tTHREAT TYPE\tSEVERITY\tENABLED")
			for _, r := range rules {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", r.ID, r.Source, r.ThreatType, r.Severity, r.Enabled)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			ref := engine.ReferenceData()
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "\nknown-bad indicators: %d, sensitive buckets: %d, exfil threshold: %d bytes\n",
				ref.KnownBadCount(), ref.SensitiveBucketCount(), ref.ExfilThreshold())
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the catalog as JSON")
	return cmd
}
